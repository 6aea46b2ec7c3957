package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/askweb/internal/model"
)

// Cache defines the interface for caching extracted articles and transcripts
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Namespaces keep article text and transcripts apart under one backend
const (
	NamespaceArticle    = "article"
	NamespaceTranscript = "transcript"
)

// CacheKey generates a cache key from a namespace and a URL or video id
func CacheKey(namespace, id string) string {
	hash := sha256.Sum256([]byte(id))
	return "askweb:v1:" + namespace + ":" + hex.EncodeToString(hash[:])
}

// New builds the backend named in the configuration. A disabled cache returns nil.
func New(cfg model.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch strings.ToLower(cfg.Backend) {
	case "memory":
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute), nil
	case "disk":
		return NewDiskCache(cfg.Dir, cfg.DiskTTL), nil
	case "", "layered":
		return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis cache requires redis_addr")
		}
		return NewRedisCache(cfg.RedisAddr, cfg.DiskTTL)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: memory, disk, layered, redis)", cfg.Backend)
	}
}
