package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hoanghai1803/newspulse/internal/models"
)

// SaveRun inserts a scoring run or replaces the row with the same ID.
func (s *Store) SaveRun(ctx context.Context, run models.ScoringRun) error {
	var finishedAt *string
	if run.FinishedAt != nil {
		v := formatTime(*run.FinishedAt)
		finishedAt = &v
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scoring_runs
			(id, started_at, finished_at, articles_considered, articles_scored,
			 units_scored, fallback_units, batches, circuit_open, bullish, bearish,
			 model_used, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			finished_at         = excluded.finished_at,
			articles_considered = excluded.articles_considered,
			articles_scored     = excluded.articles_scored,
			units_scored        = excluded.units_scored,
			fallback_units      = excluded.fallback_units,
			batches             = excluded.batches,
			circuit_open        = excluded.circuit_open,
			bullish             = excluded.bullish,
			bearish             = excluded.bearish,
			model_used          = excluded.model_used,
			error               = excluded.error`,
		run.ID, formatTime(run.StartedAt), finishedAt, run.ArticlesConsidered,
		run.ArticlesScored, run.UnitsScored, run.FallbackUnits, run.Batches,
		run.CircuitOpen, run.Bullish, run.Bearish, run.ModelUsed,
		nullableString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("saving scoring run %s: %w", run.ID, err)
	}
	return nil
}

// GetRecentRuns returns the most recent scoring runs, newest first.
func (s *Store) GetRecentRuns(ctx context.Context, limit int) ([]models.ScoringRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, articles_considered, articles_scored,
				units_scored, fallback_units, batches, circuit_open, bullish, bearish,
				model_used, error
		 FROM scoring_runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent runs: %w", err)
	}
	defer rows.Close()

	runs := []models.ScoringRun{}
	for rows.Next() {
		var (
			run        models.ScoringRun
			startedAt  string
			finishedAt *string
			runErr     sql.NullString
		)
		if err := rows.Scan(
			&run.ID, &startedAt, &finishedAt, &run.ArticlesConsidered,
			&run.ArticlesScored, &run.UnitsScored, &run.FallbackUnits,
			&run.Batches, &run.CircuitOpen, &run.Bullish, &run.Bearish,
			&run.ModelUsed, &runErr,
		); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		run.StartedAt = parseTime(startedAt)
		run.FinishedAt = parseTimePtr(finishedAt)
		run.Error = runErr.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}
	return runs, nil
}
