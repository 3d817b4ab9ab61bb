package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// Compile-time interface check.
var _ AIProvider = (*GeminiProvider)(nil)

// GeminiProvider implements AIProvider using the Gemini API.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiProvider creates a GeminiProvider backed by the Gemini Developer
// API.
func NewGeminiProvider(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing genai client: %w", err)
	}

	return &GeminiProvider{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Model returns the configured model name.
func (p *GeminiProvider) Model() string { return p.model }

// ScoreInsights scores a batch of insights with a single GenerateContent
// call in JSON response mode.
func (p *GeminiProvider) ScoreInsights(ctx context.Context, entries []InsightEntry) (string, error) {
	systemPrompt, userPrompt := ScoreInsightsPrompt(entries)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(0.1)),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	slog.Debug("calling Gemini API", "model", p.model, "entries", len(entries))

	resp, err := p.client.Models.GenerateContent(ctx, p.model, []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(userPrompt)},
		},
	}, config)
	if err != nil {
		return "", fmt.Errorf("gemini score-insights: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini score-insights: empty response")
	}
	return text, nil
}
