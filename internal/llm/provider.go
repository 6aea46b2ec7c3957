package llm

import (
	"context"
	"strings"

	"github.com/ppiankov/askweb/internal/model"
)

// Provider defines the interface for answer-generation providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate returns the model's answer to a fully built prompt
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for answer generation
type GenerateRequest struct {
	// Prompt is the instruction template with the question and evidence filled in
	Prompt string

	// Model overrides the configured model (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Sampling parameters; zero means use the configured value
	Temperature float32
	TopP        float32
}

// GenerateResponse contains the provider's raw answer
type GenerateResponse struct {
	// Text is the answer, including inline citations and the SOURCES: section
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "gemini", "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for Gemini/OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// Generation parameters
	MaxTokens   int
	Temperature float32
	TopP        float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns the generation settings the answer prompt was tuned for
func DefaultConfig() Config {
	return Config{
		Provider:    "gemini",
		Model:       DefaultGeminiModel,
		Timeout:     60,
		MaxTokens:   1500,
		Temperature: 0.2,
		TopP:        0.95,
	}
}

// ConfigFromModel converts model.Config to llm.Config
func ConfigFromModel(cfg *model.Config) Config {
	modelName := cfg.LLM.Model
	switch strings.ToLower(cfg.LLM.Provider) {
	case "gemini", "google":
	default:
		// The built-in default names a Gemini model; other providers pick their own
		if modelName == DefaultGeminiModel {
			modelName = ""
		}
	}

	return Config{
		Provider:    cfg.LLM.Provider,
		Model:       modelName,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     cfg.LLM.Timeout,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
		HTTPProxy:   cfg.HTTP.HTTPProxy,
		HTTPSProxy:  cfg.HTTP.HTTPSProxy,
		NoProxy:     cfg.HTTP.NoProxy,
	}
}

// resolve fills request fields left empty from the provider config
func (c Config) resolve(req GenerateRequest, fallbackModel string) GenerateRequest {
	if req.Model == "" {
		req.Model = c.Model
	}
	if req.Model == "" {
		req.Model = fallbackModel
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.MaxTokens
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 1500
	}
	if req.Temperature == 0 {
		req.Temperature = c.Temperature
	}
	if req.TopP == 0 {
		req.TopP = c.TopP
	}
	return req
}
