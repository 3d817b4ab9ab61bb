package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hoanghai1803/newspulse/internal/ai"
	"github.com/hoanghai1803/newspulse/internal/api"
	"github.com/hoanghai1803/newspulse/internal/api/handlers"
	"github.com/hoanghai1803/newspulse/internal/calibrate"
	"github.com/hoanghai1803/newspulse/internal/circuit"
	"github.com/hoanghai1803/newspulse/internal/config"
	"github.com/hoanghai1803/newspulse/internal/feeds"
	"github.com/hoanghai1803/newspulse/internal/notify"
	"github.com/hoanghai1803/newspulse/internal/pipeline"
	"github.com/hoanghai1803/newspulse/internal/scheduler"
	"github.com/hoanghai1803/newspulse/internal/scoring"
	"github.com/hoanghai1803/newspulse/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	dataDir := flag.String("data-dir", "./data", "path to data directory")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ensure data directory exists.
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	// Open database with WAL mode and pragmas.
	db, err := storage.OpenDatabase(filepath.Join(*dataDir, "newspulse.db"))
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run schema migrations.
	if err := storage.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := storage.NewStore(db)
	breaker := circuit.New(store, cfg.Circuit.ResetHourUTC)

	p, err := buildPipeline(ctx, cfg, store, breaker)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	if *once {
		report, err := p.Run(ctx)
		if err != nil {
			slog.Error("run failed", "run", report.Run.ID, "error", err)
			os.Exit(1)
		}
		fmt.Println(pipeline.FormatAlerts(report.Alerts, report.Run.ArticlesScored))
		return
	}

	sched := scheduler.New(p, 0)
	if err := sched.Start(cfg.Schedule.Cron); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(api.Deps{
		Store:   store,
		Breaker: breaker,
		Runner:  p,
		Alerts: handlers.AlertOptions{
			Thresholds: thresholds(cfg),
			TopN:       cfg.Alerts.TopN,
			Window:     24 * time.Hour,
		},
	})

	// Localhost only; the API has no authentication.
	addr := fmt.Sprintf("localhost:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", "http://"+addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	sched.Stop(shutdownCtx)
}

// buildPipeline wires sources, scorer and notifier from config.
func buildPipeline(ctx context.Context, cfg *config.Config, store *storage.Store, breaker *circuit.Breaker) (*pipeline.Pipeline, error) {
	fetcher := feeds.NewFetcher()

	var sources []pipeline.Source
	if cfg.News.APIBase != "" {
		sources = append(sources, feeds.NewNewsAPISource(feeds.NewsAPIConfig{
			BaseURL: cfg.News.APIBase,
			APIKey:  cfg.News.APIKey,
			Limit:   cfg.News.Limit,
			Tickers: cfg.News.Tickers,
		}, fetcher))
	}
	if len(cfg.News.RSSFeeds) > 0 {
		sources = append(sources, feeds.NewRSSSource(cfg.News.RSSFeeds, fetcher))
	}
	if len(sources) == 0 {
		slog.Warn("no news sources configured, runs will fetch nothing")
	}

	opts := []pipeline.Option{
		pipeline.WithNotifier(notify.NewDiscord(cfg.Alerts.DiscordWebhook, cfg.Alerts.Username)),
	}
	if cfg.News.EnrichDescriptions {
		opts = append(opts, pipeline.WithEnricher(feeds.NewEnricher(fetcher)))
	}

	switch {
	case !cfg.Scorer.Enabled:
		slog.Warn("scoring disabled, sentiment fields will stay empty")
	case cfg.Scorer.APIKey == "":
		slog.Warn("no scorer API key configured, scoring disabled")
	default:
		provider, err := ai.NewProvider(ctx, ai.ProviderConfig{
			Provider: cfg.Scorer.Provider,
			APIKey:   cfg.Scorer.APIKey,
			Model:    cfg.Scorer.Model,
			Timeout:  cfg.Scorer.Timeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("creating scoring provider: %w", err)
		}
		client := scoring.NewClient(provider, breaker,
			scoring.WithRequestsPerMinute(cfg.Scorer.RequestsPerMinute))
		opts = append(opts, pipeline.WithScorer(
			pipeline.NewScorer(client, breaker, calibrate.Default(), cfg.Scorer.BatchSize)))
		slog.Info("scoring configured", "provider", cfg.Scorer.Provider, "model", cfg.Scorer.Model)
	}

	return pipeline.New(pipeline.Config{
		Lookback:   cfg.News.Lookback(),
		Retention:  cfg.News.Retention(),
		Thresholds: thresholds(cfg),
		TopN:       cfg.Alerts.TopN,
	}, store, sources, opts...), nil
}

func thresholds(cfg *config.Config) pipeline.Thresholds {
	return pipeline.Thresholds{
		MinScore:           cfg.Alerts.MinScore,
		MinModelConfidence: cfg.Alerts.MinModelConfidence,
		MinRuleConfidence:  cfg.Alerts.MinRuleConfidence,
	}
}
