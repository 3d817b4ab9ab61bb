package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hoanghai1803/newspulse/internal/calibrate"
	"github.com/hoanghai1803/newspulse/internal/classify"
	"github.com/hoanghai1803/newspulse/internal/models"
	"github.com/hoanghai1803/newspulse/internal/scoring"
)

// DefaultBatchSize is the number of work units sent per scorer call.
const DefaultBatchSize = 20

// BatchScorer scores one batch of work units. scoring.Client implements it.
type BatchScorer interface {
	ScoreBatch(ctx context.Context, units []scoring.WorkUnit) (scoring.BatchResult, error)
	Model() string
}

// Gate reports whether the scorer may be called. circuit.Breaker implements
// it.
type Gate interface {
	IsOpen(ctx context.Context) (bool, error)
}

// ScoreStats summarizes one ScoreArticles call.
type ScoreStats struct {
	ArticlesScored int
	Units          int
	Fallbacks      int
	Batches        int
	CircuitOpen    bool
}

// Scorer runs extraction, batched scoring, calibration, and rollup over a
// set of articles.
type Scorer struct {
	client     BatchScorer
	gate       Gate
	calibrator *calibrate.Calibrator
	batchSize  int
}

// NewScorer creates a Scorer. A non-positive batchSize uses DefaultBatchSize.
func NewScorer(client BatchScorer, gate Gate, cal *calibrate.Calibrator, batchSize int) *Scorer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if cal == nil {
		cal = calibrate.Default()
	}
	return &Scorer{client: client, gate: gate, calibrator: cal, batchSize: batchSize}
}

// Model returns the underlying scorer's model name.
func (s *Scorer) Model() string {
	return s.client.Model()
}

type articleSignals struct {
	source classify.SourceTier
	event  classify.EventCategory
}

// ScoreArticles scores every article in place and applies its rollup.
// Batches run strictly in sequence and the gate is consulted before each
// one, so a trip by one batch short-circuits the rest of the run. Errors
// come only from the gate's store or from persisting a trip.
func (s *Scorer) ScoreArticles(ctx context.Context, articles []models.Article) (ScoreStats, error) {
	var stats ScoreStats

	slots := make([][]models.ScoredInsight, len(articles))
	signals := make([]articleSignals, len(articles))
	var units []scoring.WorkUnit
	for i := range articles {
		var u []scoring.WorkUnit
		slots[i], u = Extract(i, &articles[i])
		units = append(units, u...)
		signals[i].source, signals[i].event = ArticleSignals(&articles[i])
	}
	stats.Units = len(units)

	for start := 0; start < len(units); start += s.batchSize {
		batch := units[start:min(start+s.batchSize, len(units))]
		stats.Batches++

		open, err := s.gate.IsOpen(ctx)
		if err != nil {
			return stats, fmt.Errorf("checking circuit breaker: %w", err)
		}

		var results []scoring.Result
		if open {
			if !stats.CircuitOpen {
				slog.Warn("scoring circuit open, skipping remaining batches",
					"batch", stats.Batches, "remaining_units", len(units)-start)
			}
			stats.CircuitOpen = true
			results = make([]scoring.Result, len(batch))
			for i := range results {
				results[i] = scoring.FallbackResult(scoring.ReasonCircuitOpen)
			}
		} else {
			res, err := s.client.ScoreBatch(ctx, batch)
			if err != nil {
				return stats, fmt.Errorf("scoring batch %d: %w", stats.Batches, err)
			}
			results = res.Results
			slog.Info("scored batch", "batch", stats.Batches, "units", len(batch),
				"attempts", res.Attempts, "fallbacks", res.Fallbacks())
		}

		for i, u := range batch {
			r := results[i]
			sig := signals[u.ArticleIndex]
			cal := s.calibrator.Calibrate(calibrate.Input{
				Score:           r.Score,
				ConfidenceModel: r.Confidence,
				Source:          sig.source,
				Event:           sig.event,
			})

			slot := &slots[u.ArticleIndex][u.InsightIndex]
			slot.Score = calibrate.ClampScore(r.Score)
			slot.ConfidenceModel = calibrate.Clamp01(r.Confidence)
			slot.ConfidenceRule = cal.ConfidenceRule
			slot.Reasoning = r.Reasoning
			slot.Status = models.InsightScored
			if r.Fallback {
				slot.Status = models.InsightFallback
				stats.Fallbacks++
			}
		}
	}

	for i := range articles {
		rollup := Aggregate(s.calibrator, slots[i], signals[i].source, signals[i].event)
		articles[i].ApplyRollup(rollup, slots[i])
		if rollup.Scored() {
			stats.ArticlesScored++
		}
	}

	return stats, nil
}
