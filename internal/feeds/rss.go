package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/hoanghai1803/newspulse/internal/models"
)

// RSSSource reads RSS/Atom feeds. Its articles have no insights, so they are
// stored with a "not scored" rollup.
type RSSSource struct {
	feeds   []string
	fetcher *Fetcher
}

// NewRSSSource creates an RSSSource over the given feed URLs.
func NewRSSSource(feeds []string, fetcher *Fetcher) *RSSSource {
	return &RSSSource{feeds: feeds, fetcher: fetcher}
}

// Name implements pipeline.Source.
func (s *RSSSource) Name() string {
	return "rss"
}

// Fetch fetches all feeds concurrently with at most 10 in flight. A feed
// that fails is logged and skipped rather than failing the batch.
func (s *RSSSource) Fetch(ctx context.Context, since time.Time) ([]models.Article, error) {
	var (
		all []models.Article
		mu  sync.Mutex
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, feedURL := range s.feeds {
		g.Go(func() error {
			articles, err := s.fetchFeed(ctx, feedURL, since)
			if err != nil {
				slog.Warn("failed to fetch feed", "url", feedURL, "error", err)
				return nil // skip failures, don't fail the batch
			}

			mu.Lock()
			all = append(all, articles...)
			mu.Unlock()

			slog.Info("fetched feed", "url", feedURL, "items", len(articles))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching feeds: %w", err)
	}
	return all, nil
}

func (s *RSSSource) fetchFeed(ctx context.Context, feedURL string, since time.Time) ([]models.Article, error) {
	if err := s.fetcher.wait(ctx, extractDomain(feedURL)); err != nil {
		return nil, err
	}

	fp := gofeed.NewParser()
	fp.Client = s.fetcher.Client()

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %q: %w", feedURL, err)
	}
	return parseFeedItems(feed, since), nil
}
