package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hoanghai1803/newspulse/internal/pipeline"
	"github.com/hoanghai1803/newspulse/internal/storage"
)

// Runner executes one ingest run.
type Runner interface {
	Run(ctx context.Context) (pipeline.RunReport, error)
}

type runsQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

const defaultRunsLimit = 20

// GetRuns handles GET /api/runs. It returns recent scoring runs, newest
// first.
func GetRuns(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r.URL.Query(), "limit")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		params := runsQuery{Limit: limit}
		if err := validate.Struct(params); err != nil {
			writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}
		if params.Limit == 0 {
			params.Limit = defaultRunsLimit
		}

		runs, err := store.GetRecentRuns(r.Context(), params.Limit)
		if err != nil {
			slog.Error("failed to get runs", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get runs")
			return
		}

		writeJSON(w, http.StatusOK, runs)
	}
}

// TriggerRun handles POST /api/runs. It runs the pipeline synchronously and
// returns the run report. A run already in progress yields 409.
func TriggerRun(runner Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := runner.Run(r.Context())
		if err != nil {
			if errors.Is(err, pipeline.ErrRunInProgress) {
				writeError(w, http.StatusConflict, "A run is already in progress")
				return
			}
			slog.Error("triggered run failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": "Run failed",
				"run":   report.Run,
			})
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}
