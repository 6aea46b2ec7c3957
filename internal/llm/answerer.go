package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/askweb/internal/model"
	"go.uber.org/zap"
)

// ErrNoProvider is reported when no generation provider is configured
var ErrNoProvider = errors.New("no LLM provider configured")

// Answerer turns a question plus evidence into a cited answer.
// Generation never aborts the pipeline: failures come back as answer text.
type Answerer struct {
	provider Provider
	config   Config
	logger   *zap.Logger
}

// NewAnswerer builds the configured provider. A construction error (missing key,
// unknown provider) is returned alongside a usable Answerer that reports it on
// every call, so callers may warn and continue.
func NewAnswerer(config Config, logger *zap.Logger) (*Answerer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Answerer{config: config, logger: logger}

	provider, err := NewProvider(config, logger)
	if err != nil {
		return a, err
	}
	a.provider = provider
	return a, nil
}

// NewAnswererWithProvider wraps an existing provider
func NewAnswererWithProvider(provider Provider, config Config, logger *zap.Logger) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{provider: provider, config: config, logger: logger}
}

// IsEnabled returns true if a provider is available
func (a *Answerer) IsEnabled() bool {
	return a.provider != nil
}

// ProviderName returns the provider name, or "" when disabled
func (a *Answerer) ProviderName() string {
	if a.provider == nil {
		return ""
	}
	return a.provider.Name()
}

// Provider returns the underlying provider (nil when disabled)
func (a *Answerer) Provider() Provider {
	return a.provider
}

// Answer sends the prompt to the provider. On failure the returned result carries
// "Error generating answer: ..." which downstream stages treat as the answer text.
func (a *Answerer) Answer(ctx context.Context, prompt string) (model.Result[string], *model.LLMInfo) {
	info := &model.LLMInfo{
		Provider: a.ProviderName(),
		Model:    a.config.Model,
	}

	if a.provider == nil {
		info.Error = ErrNoProvider.Error()
		return failedAnswer(ErrNoProvider), info
	}

	resp, err := a.provider.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
		TopP:        a.config.TopP,
	})
	if err != nil {
		a.logger.Warn("answer generation failed", zap.String("provider", info.Provider), zap.Error(err))
		info.Error = err.Error()
		return failedAnswer(err), info
	}

	info.Model = resp.Model
	info.TokensUsed = resp.TokensUsed
	a.logger.Debug("answer generated",
		zap.String("provider", info.Provider),
		zap.String("model", resp.Model),
		zap.Int("tokens", resp.TokensUsed))

	return model.Success(resp.Text), info
}

func failedAnswer(err error) model.Result[string] {
	return model.Failure[string](fmt.Sprintf("Error generating answer: %v", err))
}
