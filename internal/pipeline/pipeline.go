package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hoanghai1803/newspulse/internal/models"
)

// ErrRunInProgress is returned by Run when another run is still executing.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Source fetches articles published at or after since.
type Source interface {
	Name() string
	Fetch(ctx context.Context, since time.Time) ([]models.Article, error)
}

// Enricher fills in missing article fields before scoring.
type Enricher interface {
	Enrich(ctx context.Context, articles []models.Article)
}

// Notifier delivers the alert summary.
type Notifier interface {
	Notify(ctx context.Context, content string) error
}

// Store is the persistence the pipeline needs. storage.Store implements it.
type Store interface {
	DeleteArticlesOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error)
	UpsertArticles(ctx context.Context, articles []models.Article) error
	SaveRun(ctx context.Context, run models.ScoringRun) error
}

// Config controls a run.
type Config struct {
	Lookback   time.Duration
	Retention  time.Duration
	Thresholds Thresholds
	TopN       int
}

// Pipeline runs acquisition, scoring, persistence, and notification.
type Pipeline struct {
	cfg      Config
	store    Store
	sources  []Source
	scorer   *Scorer // nil when scoring is disabled
	enricher Enricher
	notifier Notifier
	now      func() time.Time

	mu sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithScorer enables scoring.
func WithScorer(s *Scorer) Option {
	return func(p *Pipeline) { p.scorer = s }
}

// WithEnricher sets the description enricher.
func WithEnricher(e Enricher) Option {
	return func(p *Pipeline) { p.enricher = e }
}

// WithNotifier sets the alert notifier.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(cfg Config, store Store, sources []Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		store:   store,
		sources: sources,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunReport is the outcome of one Run.
type RunReport struct {
	Run    models.ScoringRun `json:"run"`
	Alerts AlertSet          `json:"alerts"`
}

// Run executes one bounded ingest run. Store errors abort the run; the run
// record is still saved with the error when possible.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	if !p.mu.TryLock() {
		return RunReport{}, ErrRunInProgress
	}
	defer p.mu.Unlock()

	run := models.ScoringRun{
		ID:        uuid.NewString(),
		StartedAt: p.now().UTC(),
	}
	if p.scorer != nil {
		run.ModelUsed = p.scorer.Model()
	}

	report, err := p.run(ctx, &run)

	finished := p.now().UTC()
	run.FinishedAt = &finished
	if err != nil {
		run.Error = err.Error()
	}
	report.Run = run

	if saveErr := p.store.SaveRun(ctx, run); saveErr != nil {
		slog.Error("failed to save scoring run", "run", run.ID, "error", saveErr)
		if err == nil {
			err = fmt.Errorf("saving run: %w", saveErr)
		}
	}
	if err != nil {
		slog.Error("pipeline run failed", "run", run.ID, "error", err)
		return report, err
	}

	slog.Info("pipeline run finished",
		"run", run.ID,
		"articles", run.ArticlesConsidered,
		"scored", run.ArticlesScored,
		"fallbacks", run.FallbackUnits,
		"bullish", run.Bullish,
		"bearish", run.Bearish,
		"duration", finished.Sub(run.StartedAt))
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, run *models.ScoringRun) (RunReport, error) {
	report := RunReport{Alerts: AlertSet{Bullish: []Alert{}, Bearish: []Alert{}}}
	now := p.now().UTC()

	// 1. Drop stored articles past retention.
	if p.cfg.Retention > 0 {
		deleted, err := p.store.DeleteArticlesOlderThan(ctx, now.Add(-p.cfg.Retention))
		if err != nil {
			return report, fmt.Errorf("retention cleanup: %w", err)
		}
		if deleted > 0 {
			slog.Info("deleted expired articles", "count", deleted)
		}
	}

	// 2. Fetch from every source. A failing source is logged and skipped.
	since := now.Add(-p.cfg.Lookback)
	var fetched []models.Article
	for _, src := range p.sources {
		articles, err := src.Fetch(ctx, since)
		if err != nil {
			slog.Error("failed to fetch source", "source", src.Name(), "error", err)
			continue
		}
		slog.Info("fetched articles", "source", src.Name(), "count", len(articles))
		fetched = append(fetched, articles...)
	}

	// 3. Deduplicate within the batch and against storage.
	articles, err := p.dedupe(ctx, fetched)
	if err != nil {
		return report, err
	}
	run.ArticlesConsidered = len(articles)
	if len(articles) == 0 {
		slog.Info("no new articles", "since", since)
		return report, nil
	}

	// 4. Optional enrichment.
	if p.enricher != nil {
		p.enricher.Enrich(ctx, articles)
	}

	// 5. Score, calibrate, roll up.
	if p.scorer != nil {
		stats, err := p.scorer.ScoreArticles(ctx, articles)
		run.ArticlesScored = stats.ArticlesScored
		run.UnitsScored = stats.Units
		run.FallbackUnits = stats.Fallbacks
		run.Batches = stats.Batches
		run.CircuitOpen = stats.CircuitOpen
		if err != nil {
			return report, err
		}
	} else {
		slog.Info("scoring disabled, skipping")
	}

	// 6. Persist.
	if err := p.store.UpsertArticles(ctx, articles); err != nil {
		return report, fmt.Errorf("persisting articles: %w", err)
	}

	// 7. Alerts and notification.
	report.Alerts = SelectAlerts(articles, p.cfg.Thresholds, p.cfg.TopN)
	run.Bullish = len(report.Alerts.Bullish)
	run.Bearish = len(report.Alerts.Bearish)

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, FormatAlerts(report.Alerts, run.ArticlesScored)); err != nil {
			slog.Error("failed to send notification", "error", err)
		}
	}

	return report, nil
}

func (p *Pipeline) dedupe(ctx context.Context, fetched []models.Article) ([]models.Article, error) {
	seen := make(map[string]bool, len(fetched))
	unique := make([]models.Article, 0, len(fetched))
	urls := make([]string, 0, len(fetched))
	for _, a := range fetched {
		if a.URL == "" || seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		unique = append(unique, a)
		urls = append(urls, a.URL)
	}
	if len(unique) == 0 {
		return unique, nil
	}

	existing, err := p.store.ExistingURLs(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("checking existing articles: %w", err)
	}

	fresh := unique[:0]
	for _, a := range unique {
		if !existing[a.URL] {
			fresh = append(fresh, a)
		}
	}
	if skipped := len(unique) - len(fresh); skipped > 0 {
		slog.Info("skipped already stored articles", "count", skipped)
	}
	return fresh, nil
}
