package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hoanghai1803/newspulse/internal/pipeline"
	"github.com/hoanghai1803/newspulse/internal/storage"
)

// AlertOptions configures GetAlerts.
type AlertOptions struct {
	Thresholds pipeline.Thresholds
	TopN       int
	// Window bounds how far back articles are considered.
	Window time.Duration
	Now    func() time.Time
}

// GetAlerts handles GET /api/alerts. It selects strong bullish and bearish
// articles among scored articles published within the window.
func GetAlerts(store *storage.Store, opts AlertOptions) http.HandlerFunc {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Window <= 0 {
		opts.Window = 24 * time.Hour
	}

	return func(w http.ResponseWriter, r *http.Request) {
		since := opts.Now().UTC().Add(-opts.Window)

		articles, err := store.ListArticles(r.Context(), storage.ArticleFilter{
			Since:      &since,
			ScoredOnly: true,
			Limit:      500,
		})
		if err != nil {
			slog.Error("failed to list scored articles", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load alerts")
			return
		}

		writeJSON(w, http.StatusOK, pipeline.SelectAlerts(articles, opts.Thresholds, opts.TopN))
	}
}
