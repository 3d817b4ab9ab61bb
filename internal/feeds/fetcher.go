// Package feeds acquires articles for the pipeline: a news REST API with
// analyst insights, optional RSS/Atom feeds, and readability-based
// enrichment of missing descriptions.
package feeds

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	httpTimeout      = 30 * time.Second
	maxConcurrent    = 10
	defaultRateDelay = 1 * time.Second
)

// Fetcher owns the shared HTTP client and enforces a minimum delay between
// requests to the same domain.
type Fetcher struct {
	client    *http.Client
	rateDelay time.Duration
	lastReq   map[string]time.Time // per-domain last request time
	mu        sync.Mutex           // protects lastReq
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithRateDelay sets the minimum delay between requests to one domain.
func WithRateDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.rateDelay = d }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// NewFetcher creates a Fetcher with a 30-second timeout and browser-like
// request headers.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: httpTimeout,
			Transport: &userAgentTransport{
				base: http.DefaultTransport,
			},
		},
		rateDelay: defaultRateDelay,
		lastReq:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Client returns the underlying HTTP client.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// userAgentTransport wraps an http.RoundTripper to inject a custom User-Agent
// header on every request.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	browserHeaders(req)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return t.base.RoundTrip(req)
}

// wait blocks until the per-domain delay has elapsed or ctx is done.
func (f *Fetcher) wait(ctx context.Context, domain string) error {
	f.mu.Lock()
	next := f.lastReq[domain].Add(f.rateDelay)
	now := time.Now()
	if next.Before(now) {
		next = now
	}
	// Reserve the slot before sleeping so concurrent callers queue up.
	f.lastReq[domain] = next
	f.mu.Unlock()

	d := time.Until(next)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// extractDomain parses a URL and returns its hostname. If parsing fails, it
// returns the raw URL as a fallback key.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
