// Package scheduler triggers pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hoanghai1803/newspulse/internal/pipeline"
)

// DefaultRunTimeout bounds a single scheduled run.
const DefaultRunTimeout = 30 * time.Minute

// Runner executes one ingest run.
type Runner interface {
	Run(ctx context.Context) (pipeline.RunReport, error)
}

// Scheduler runs the pipeline periodically.
type Scheduler struct {
	runner  Runner
	cron    *cron.Cron
	timeout time.Duration
}

// New creates a Scheduler. A non-positive timeout uses DefaultRunTimeout.
func New(runner Runner, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	return &Scheduler{
		runner:  runner,
		cron:    cron.New(),
		timeout: timeout,
	}
}

// Start registers schedule (standard five-field cron or a descriptor such
// as "@hourly") and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	slog.Info("run scheduler started", "schedule", schedule)
	return nil
}

// Stop stops the cron loop and waits for a run in flight to finish or ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("run scheduler stopped")
	case <-ctx.Done():
		slog.Warn("run scheduler stop timed out")
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	slog.Info("starting scheduled run")

	report, err := s.runner.Run(ctx)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		slog.Warn("previous run still in progress, skipping")
		return
	}
	if err != nil {
		slog.Error("scheduled run failed", "run", report.Run.ID, "error", err)
		return
	}

	slog.Info("scheduled run completed",
		"run", report.Run.ID,
		"articles", report.Run.ArticlesConsidered,
		"bullish", report.Run.Bullish,
		"bearish", report.Run.Bearish)
}
