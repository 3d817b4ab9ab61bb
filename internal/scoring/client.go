package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/hoanghai1803/newspulse/internal/ai"
	"github.com/hoanghai1803/newspulse/internal/models"
)

// FallbackConfidence is the model confidence assigned to every fallback.
const FallbackConfidence = 0.3

// Fallback reasoning strings. Each labels why a unit was not really scored.
const (
	ReasonModelError   = "Model error; defaulted to neutral."
	ReasonQuota        = "Scoring quota exhausted; defaulted to neutral."
	ReasonUnavailable  = "Scoring service unavailable after retries; defaulted to neutral."
	ReasonOmitted      = "Model omitted this insight; defaulted to neutral."
	ReasonCircuitOpen  = "Scoring disabled by circuit breaker; defaulted to neutral."
	ReasonNeutralInput = "Neutral insight; skipped scoring."
)

// WorkUnit is one scorable insight with the article context the prompt needs.
type WorkUnit struct {
	ArticleIndex int
	InsightIndex int
	Text         string
	Sentiment    models.Sentiment
	Ticker       *string
	Title        string
	PublishedAt  time.Time
}

// Result is the scorer's verdict on one unit, or a labeled fallback.
type Result struct {
	Score      int
	Confidence float64
	Reasoning  string
	Fallback   bool
}

// FallbackResult returns the neutral result used whenever scoring fails.
func FallbackResult(reason string) Result {
	return Result{Score: 0, Confidence: FallbackConfidence, Reasoning: reason, Fallback: true}
}

// BatchResult holds one Result per unit, aligned with the input batch.
type BatchResult struct {
	Results  []Result
	Attempts int
	Kind     ErrorKind
	Tripped  bool
}

// Fallbacks counts results that are fallbacks.
func (b BatchResult) Fallbacks() int {
	n := 0
	for _, r := range b.Results {
		if r.Fallback {
			n++
		}
	}
	return n
}

// Tripper trips the scoring circuit breaker.
type Tripper interface {
	Trip(ctx context.Context, reason string) (time.Time, error)
}

// Client scores batches against an AIProvider.
type Client struct {
	provider ai.AIProvider
	breaker  Tripper
	policy   RetryPolicy
	limiter  *rate.Limiter
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithRequestsPerMinute paces provider calls. Zero or negative disables
// pacing.
func WithRequestsPerMinute(rpm int) Option {
	return func(c *Client) {
		if rpm > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
		}
	}
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient creates a Client.
func NewClient(provider ai.AIProvider, breaker Tripper, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		breaker:  breaker,
		policy:   DefaultRetryPolicy(),
		limiter:  rate.NewLimiter(rate.Inf, 1),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the provider's model name.
func (c *Client) Model() string {
	return c.provider.Model()
}

// ScoreBatch scores units with one prompt, retrying transient failures.
// Every unit always receives a Result. The returned error is non-nil only
// when tripping the breaker could not be persisted.
func (c *Client) ScoreBatch(ctx context.Context, units []WorkUnit) (BatchResult, error) {
	if len(units) == 0 {
		return BatchResult{}, nil
	}

	entries := toEntries(units)

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			slog.Warn("scoring wait aborted", "error", err)
			return fallbackBatch(units, ReasonModelError, attempt, KindModel), nil
		}

		results, err := c.attempt(ctx, entries, units)
		if err == nil {
			return BatchResult{Results: results, Attempts: attempt + 1, Kind: KindNone}, nil
		}

		kind := Classify(err)
		switch kind {
		case KindQuota:
			slog.Warn("scorer quota exhausted, tripping circuit",
				"units", len(units), "attempt", attempt+1, "error", err)
			res := fallbackBatch(units, ReasonQuota, attempt+1, kind)
			res.Tripped = true
			if _, tripErr := c.breaker.Trip(ctx, truncateRunes(err.Error(), 200)); tripErr != nil {
				return res, fmt.Errorf("tripping circuit breaker: %w", tripErr)
			}
			return res, nil

		case KindTransient:
			retry, backoff := c.policy.Next(attempt, kind)
			if !retry {
				slog.Error("scorer unavailable, retries exhausted",
					"units", len(units), "attempts", attempt+1, "error", err)
				return fallbackBatch(units, ReasonUnavailable, attempt+1, kind), nil
			}
			slog.Warn("scorer transient failure, retrying",
				"attempt", attempt+1, "backoff", backoff, "error", err)
			if err := c.sleep(ctx, backoff); err != nil {
				return fallbackBatch(units, ReasonUnavailable, attempt+1, kind), nil
			}

		default:
			slog.Error("scorer failed", "units", len(units), "kind", kind, "error", err)
			return fallbackBatch(units, ReasonModelError, attempt+1, kind), nil
		}
	}
}

// attempt performs one provider call and decode.
func (c *Client) attempt(ctx context.Context, entries []ai.InsightEntry, units []WorkUnit) ([]Result, error) {
	text, err := c.provider.ScoreInsights(ctx, entries)
	if err != nil {
		return nil, err
	}

	decoded, err := DecodeResponse(text)
	if err != nil {
		return nil, err
	}
	return assemble(units, decoded), nil
}

// assemble places decoded results into unit slots by their index field,
// falling back to array position when the index is out of range or already
// taken. Slots nobody filled get a fallback.
func assemble(units []WorkUnit, decoded []ModelResult) []Result {
	slots := make([]*Result, len(units))
	place := func(i int, r Result) bool {
		if i < 0 || i >= len(slots) || slots[i] != nil {
			return false
		}
		slots[i] = &r
		return true
	}

	for pos, d := range decoded {
		r := Result{Score: d.Score, Confidence: d.Confidence, Reasoning: d.Reasoning}
		if !place(d.Index, r) && !place(pos, r) {
			slog.Debug("dropping unplaceable scorer result", "index", d.Index, "position", pos)
		}
	}

	out := make([]Result, len(units))
	for i, s := range slots {
		if s == nil {
			out[i] = FallbackResult(ReasonOmitted)
			continue
		}
		out[i] = *s
	}
	return out
}

func fallbackBatch(units []WorkUnit, reason string, attempts int, kind ErrorKind) BatchResult {
	results := make([]Result, len(units))
	for i := range results {
		results[i] = FallbackResult(reason)
	}
	return BatchResult{Results: results, Attempts: attempts, Kind: kind}
}

func toEntries(units []WorkUnit) []ai.InsightEntry {
	entries := make([]ai.InsightEntry, len(units))
	for i, u := range units {
		var ticker, published string
		if u.Ticker != nil {
			ticker = *u.Ticker
		}
		if !u.PublishedAt.IsZero() {
			published = u.PublishedAt.UTC().Format(time.RFC3339)
		}
		entries[i] = ai.InsightEntry{
			Index:       i,
			Title:       u.Title,
			Ticker:      ticker,
			Label:       string(u.Sentiment),
			Text:        u.Text,
			PublishedAt: published,
		}
	}
	return entries
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
