package ai

import (
	"context"
	"fmt"
	"time"
)

const defaultTimeout = 60 * time.Second

// AIProvider is the interface that all LLM providers must implement.
type AIProvider interface {
	// ScoreInsights sends one scoring prompt covering every entry and returns
	// the raw model text. It performs no retries; callers own the retry
	// policy.
	ScoreInsights(ctx context.Context, entries []InsightEntry) (string, error)

	// Model returns the model identifier used for requests.
	Model() string
}

// NewProvider creates the appropriate provider based on config.
func NewProvider(ctx context.Context, cfg ProviderConfig) (AIProvider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, timeout)
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, timeout), nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}
