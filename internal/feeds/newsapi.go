package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hoanghai1803/newspulse/internal/models"
)

const newsPath = "/v2/reference/news"

// NewsAPIConfig configures a NewsAPISource.
type NewsAPIConfig struct {
	BaseURL string
	APIKey  string
	Limit   int
	// Tickers narrows the query. Empty fetches the unfiltered stream.
	Tickers []string
}

// NewsAPISource reads the reference news endpoint, which delivers articles
// together with per-ticker analyst insights.
type NewsAPISource struct {
	cfg     NewsAPIConfig
	fetcher *Fetcher
}

// NewNewsAPISource creates a NewsAPISource.
func NewNewsAPISource(cfg NewsAPIConfig, fetcher *Fetcher) *NewsAPISource {
	if cfg.Limit <= 0 {
		cfg.Limit = 300
	}
	return &NewsAPISource{cfg: cfg, fetcher: fetcher}
}

// Name implements pipeline.Source.
func (s *NewsAPISource) Name() string {
	return "newsapi"
}

// Fetch returns articles published at or after since. With tickers
// configured it issues one request per ticker concurrently and merges the
// results; any failed request fails the whole fetch.
func (s *NewsAPISource) Fetch(ctx context.Context, since time.Time) ([]models.Article, error) {
	if len(s.cfg.Tickers) == 0 {
		return s.fetchOne(ctx, since, "")
	}

	var (
		all []models.Article
		mu  sync.Mutex
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, ticker := range s.cfg.Tickers {
		g.Go(func() error {
			articles, err := s.fetchOne(ctx, since, ticker)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, articles...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

type newsResponse struct {
	Results []newsItem `json:"results"`
}

type newsItem struct {
	Title        string        `json:"title"`
	Description  *string       `json:"description"`
	Summary      *string       `json:"summary"`
	ArticleURL   string        `json:"article_url"`
	PublishedUTC *string       `json:"published_utc"`
	PublishedAt  *string       `json:"published_at"`
	Date         *string       `json:"date"`
	Tickers      []string      `json:"tickers"`
	Keywords     []string      `json:"keywords"`
	Insights     []newsInsight `json:"insights"`
}

type newsInsight struct {
	Ticker             *string `json:"ticker"`
	Sentiment          string  `json:"sentiment"`
	SentimentReasoning string  `json:"sentiment_reasoning"`
}

func (s *NewsAPISource) fetchOne(ctx context.Context, since time.Time, ticker string) ([]models.Article, error) {
	endpoint, err := url.JoinPath(s.cfg.BaseURL, newsPath)
	if err != nil {
		return nil, fmt.Errorf("building news url: %w", err)
	}

	q := url.Values{}
	q.Set("sort", "published_utc")
	q.Set("order", "asc")
	q.Set("limit", strconv.Itoa(s.cfg.Limit))
	q.Set("published_utc.gte", since.UTC().Format(time.RFC3339))
	if ticker != "" {
		q.Set("ticker", ticker)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating news request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.fetcher.Client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("news API %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding news response: %w", err)
	}

	articles := make([]models.Article, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		if item.ArticleURL == "" {
			slog.Debug("skipping news item without url", "title", item.Title)
			continue
		}
		articles = append(articles, item.toArticle())
	}
	return articles, nil
}

func (item newsItem) toArticle() models.Article {
	a := models.Article{
		URL:         item.ArticleURL,
		Title:       item.Title,
		Description: firstNonNil(item.Description, item.Summary),
		PublishedAt: parsePublished(firstNonNil(item.PublishedUTC, item.PublishedAt, item.Date)),
		Tickers:     item.Tickers,
		Keywords:    item.Keywords,
	}
	if a.Tickers == nil {
		a.Tickers = []string{}
	}
	if a.Keywords == nil {
		a.Keywords = []string{}
	}

	a.Insights = make([]models.Insight, len(item.Insights))
	for i, in := range item.Insights {
		a.Insights[i] = models.Insight{
			Ticker:    in.Ticker,
			Sentiment: models.Sentiment(strings.ToLower(strings.TrimSpace(in.Sentiment))),
			Reasoning: in.SentimentReasoning,
		}
	}
	return a
}

func firstNonNil(vals ...*string) string {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return ""
}

// parsePublished accepts RFC 3339 timestamps and plain dates. Anything else
// yields the zero time.
func parsePublished(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
