package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hoanghai1803/newspulse/internal/circuit"
)

type circuitResponse struct {
	Open          bool       `json:"open"`
	DisabledUntil *time.Time `json:"disabled_until,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// GetCircuit handles GET /api/circuit. It reports whether scoring is
// currently disabled and until when.
func GetCircuit(breaker *circuit.Breaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		state, err := breaker.State(ctx)
		if err != nil {
			slog.Error("failed to read circuit state", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to read circuit state")
			return
		}
		open, err := breaker.IsOpen(ctx)
		if err != nil {
			slog.Error("failed to read circuit state", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to read circuit state")
			return
		}

		writeJSON(w, http.StatusOK, circuitResponse{
			Open:          open,
			DisabledUntil: state.DisabledUntil,
			Reason:        state.Reason,
		})
	}
}

// ResetCircuit handles DELETE /api/circuit. It re-enables scoring
// immediately.
func ResetCircuit(breaker *circuit.Breaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := breaker.Reset(r.Context()); err != nil {
			slog.Error("failed to reset circuit", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to reset circuit")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}
