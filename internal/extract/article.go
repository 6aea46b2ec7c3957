// Package extract turns fetched web pages into plain article text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/ppiankov/askweb/internal/cache"
	"github.com/ppiankov/askweb/internal/fetch"
	"github.com/ppiankov/askweb/internal/metrics"
	"github.com/ppiankov/askweb/internal/model"
	"go.uber.org/zap"
)

const (
	// MaxArticleChars caps the stored article text
	MaxArticleChars = 32000

	// Readability output shorter than this falls back to the page's visible text
	minReadableChars = 100
)

// ArticleExtractor fetches a page and returns its main text
type ArticleExtractor interface {
	Extract(ctx context.Context, rawURL string) model.Result[string]
}

// Extractor extracts articles with readability, falling back to visible text
type Extractor struct {
	fetcher  *fetch.Fetcher
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewExtractor creates an extractor. c may be nil.
func NewExtractor(fetcher *fetch.Fetcher, c cache.Cache, cacheTTL time.Duration, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		fetcher:  fetcher,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Extract returns the article text, or a failure reading
// "Error extracting content from <url>: <reason>".
func (e *Extractor) Extract(ctx context.Context, rawURL string) model.Result[string] {
	key := cache.CacheKey(cache.NamespaceArticle, rawURL)
	if e.cache != nil {
		if data, ok := e.cache.Get(key); ok {
			metrics.RecordCacheLookup(cache.NamespaceArticle, true)
			return model.Success(string(data))
		}
		metrics.RecordCacheLookup(cache.NamespaceArticle, false)
	}

	text, err := e.extract(ctx, rawURL)
	if err != nil {
		e.logger.Debug("extraction failed", zap.String("url", rawURL), zap.Error(err))
		return model.Failuref[string]("Error extracting content from %s: %v", rawURL, err)
	}

	if e.cache != nil {
		if err := e.cache.Set(key, []byte(text), e.cacheTTL); err != nil {
			e.logger.Warn("cache article", zap.String("url", rawURL), zap.Error(err))
		}
	}
	return model.Success(text)
}

func (e *Extractor) extract(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	result, err := e.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(result.ContentType, "text/plain") {
		return Truncate(strings.TrimSpace(result.Text()), MaxArticleChars), nil
	}

	text := ""
	article, err := readability.FromReader(bytes.NewReader(result.Body), pageURL)
	if err == nil {
		text = strings.TrimSpace(article.TextContent)
	} else {
		e.logger.Debug("readability failed", zap.String("url", rawURL), zap.Error(err))
	}

	if utf8.RuneCountInString(text) < minReadableChars {
		fallback, err := VisibleTextFromHTML(result.Text())
		if err != nil {
			return "", fmt.Errorf("parse html: %w", err)
		}
		e.logger.Debug("using visible text fallback",
			zap.String("url", rawURL),
			zap.Int("readability_chars", utf8.RuneCountInString(text)),
			zap.Int("fallback_chars", utf8.RuneCountInString(fallback)))
		text = fallback
	}

	return Truncate(text, MaxArticleChars), nil
}
