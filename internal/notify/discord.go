// Package notify delivers the alert summary to a Discord channel webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxContent is Discord's per-message content limit.
const maxContent = 2000

// Discord posts messages to a webhook URL.
type Discord struct {
	webhook  string
	username string
	client   *http.Client
}

// NewDiscord creates a Discord notifier. An empty webhook makes Notify a
// logged no-op.
func NewDiscord(webhook, username string) *Discord {
	return &Discord{
		webhook:  webhook,
		username: username,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Username string `json:"username,omitempty"`
	Content  string `json:"content"`
}

// Notify posts content, truncated to Discord's message limit.
func (d *Discord) Notify(ctx context.Context, content string) error {
	if d.webhook == "" {
		slog.Warn("discord webhook not configured, skipping notification")
		return nil
	}

	body, err := json.Marshal(webhookPayload{Username: d.username, Content: truncate(content, maxContent)})
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord error: %d %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
