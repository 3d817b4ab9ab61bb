package ai

import (
	"fmt"
	"time"
)

// ProviderConfig holds the configuration needed to create an AI provider.
type ProviderConfig struct {
	Provider string // "gemini" | "anthropic" | "openai"
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// InsightEntry is one numbered insight block in a scoring prompt.
type InsightEntry struct {
	Index       int
	Title       string
	Ticker      string
	Label       string
	Text        string
	PublishedAt string
}

// StatusError is returned when a provider answers with a non-200 status.
// Its message always includes the numeric code so that callers matching on
// error text can classify it.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}
