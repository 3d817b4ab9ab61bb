package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"

	"github.com/hoanghai1803/newspulse/internal/models"
)

const maxDescriptionWords = 80

// browserHeaders sets browser-like request headers so sites that check Accept
// or User-Agent don't reject the request with 406.
func browserHeaders(r *http.Request) {
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("User-Agent", "Mozilla/5.0 (compatible; newspulse/1.0)")
}

// Enricher fills empty article descriptions from the article page so the
// event classifier has text to work with.
type Enricher struct {
	fetcher *Fetcher
	timeout time.Duration
}

// NewEnricher creates an Enricher that shares the fetcher's rate limits.
func NewEnricher(fetcher *Fetcher) *Enricher {
	return &Enricher{fetcher: fetcher, timeout: httpTimeout}
}

// Enrich fills Description for articles that have none. Failures are logged
// and leave the article unchanged.
func (e *Enricher) Enrich(ctx context.Context, articles []models.Article) {
	var g errgroup.Group
	g.SetLimit(maxConcurrent)

	for i := range articles {
		a := &articles[i]
		if strings.TrimSpace(a.Description) != "" {
			continue
		}
		g.Go(func() error {
			desc, err := e.describe(ctx, a.URL)
			if err != nil {
				slog.Warn("failed to enrich article", "url", a.URL, "error", err)
				return nil
			}
			a.Description = desc
			return nil
		})
	}
	_ = g.Wait()
}

// describe fetches the page and returns its excerpt, or the leading words of
// its text when no excerpt exists.
func (e *Enricher) describe(ctx context.Context, articleURL string) (string, error) {
	if err := e.fetcher.wait(ctx, extractDomain(articleURL)); err != nil {
		return "", err
	}

	article, err := readability.FromURL(articleURL, e.timeout, browserHeaders)
	if err != nil {
		return "", fmt.Errorf("readability extraction: %w", err)
	}

	if excerpt := strings.TrimSpace(article.Excerpt); excerpt != "" {
		return truncateWords(excerpt, maxDescriptionWords), nil
	}
	return truncateWords(strings.TrimSpace(article.TextContent), maxDescriptionWords), nil
}

// truncateWords returns the first maxWords whitespace-delimited words from s.
// If s contains fewer than maxWords words, it is returned unchanged.
func truncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ")
}
