package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hoanghai1803/newspulse/internal/storage"
)

type articlesQuery struct {
	Ticker string `query:"ticker" validate:"omitempty,max=16,printascii"`
	Since  string `query:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=500"`
}

// GetArticles handles GET /api/articles. Optional query parameters: ticker,
// since (RFC 3339) and limit.
func GetArticles(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit, err := queryInt(q, "limit")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		params := articlesQuery{
			Ticker: strings.ToUpper(strings.TrimSpace(q.Get("ticker"))),
			Since:  strings.TrimSpace(q.Get("since")),
			Limit:  limit,
		}
		if err := validate.Struct(params); err != nil {
			writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}

		filter := storage.ArticleFilter{Ticker: params.Ticker, Limit: params.Limit}
		if params.Since != "" {
			since, _ := time.Parse(time.RFC3339, params.Since)
			filter.Since = &since
		}

		articles, err := store.ListArticles(r.Context(), filter)
		if err != nil {
			slog.Error("failed to list articles", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list articles")
			return
		}

		writeJSON(w, http.StatusOK, articles)
	}
}
