package model

import "time"

// Config is the full askweb configuration. It is built by the CLI from defaults,
// the config file, environment and flags, and passed explicitly to collaborators.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Search       SearchConfig       `yaml:"search" mapstructure:"search"`
	YouTube      YouTubeConfig      `yaml:"youtube" mapstructure:"youtube"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// HTTPConfig controls outbound fetches
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// SearchConfig controls web search
type SearchConfig struct {
	Mode          string `yaml:"mode" mapstructure:"mode"` // both, web, youtube
	MaxWebResults int    `yaml:"max_web_results" mapstructure:"max_web_results"`
	Region        string `yaml:"region" mapstructure:"region"`
	Endpoint      string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
}

// YouTubeConfig controls video search and transcripts
type YouTubeConfig struct {
	APIKey          string   `yaml:"api_key,omitempty" mapstructure:"api_key"`
	MaxResults      int      `yaml:"max_results" mapstructure:"max_results"`
	Languages       []string `yaml:"languages" mapstructure:"languages"`
	DataAPIEndpoint string   `yaml:"data_api_endpoint,omitempty" mapstructure:"data_api_endpoint"`
	WatchEndpoint   string   `yaml:"watch_endpoint,omitempty" mapstructure:"watch_endpoint"`
}

// LLMConfig controls the answer-generation provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // gemini, openai, anthropic, ollama
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
	TopP        float32 `yaml:"top_p" mapstructure:"top_p"`
}

// CacheConfig controls the fetch cache for article bodies and transcripts
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, disk, layered, redis
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	RedisAddr string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
}

// ConcurrencyConfig controls fan-out of fetches and batch questions
type ConcurrencyConfig struct {
	Workers      int `yaml:"workers" mapstructure:"workers"`             // Questions in parallel (batch)
	FetchWorkers int `yaml:"fetch_workers" mapstructure:"fetch_workers"` // Pages/transcripts in parallel per question
}

// RateLimitingConfig controls per-domain request pacing
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose      bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeDebug bool `yaml:"include_debug" mapstructure:"include_debug"`
}

// ServerConfig controls the HTTP UI
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LoggingConfig controls structured logs
type LoggingConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       10 * time.Second,
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			MaxBodyBytes:  5_000_000,
			RespectRobots: true,
		},
		Search: SearchConfig{
			Mode:          string(ModeBoth),
			MaxWebResults: 5,
			Region:        "wt-wt",
		},
		YouTube: YouTubeConfig{
			MaxResults: 3,
			Languages:  []string{"en"},
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-1.5-flash-latest",
			Timeout:     60,
			MaxTokens:   1500,
			Temperature: 0.2,
			TopP:        0.95,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Backend:   "layered",
			Dir:       ".askweb-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:      2,
			FetchWorkers: 5,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Output: OutputConfig{
			Verbose:      false,
			IncludeDebug: false,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
