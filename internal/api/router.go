package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/hoanghai1803/newspulse/internal/api/handlers"
	"github.com/hoanghai1803/newspulse/internal/circuit"
	"github.com/hoanghai1803/newspulse/internal/storage"
)

// Deps are the collaborators the API serves from.
type Deps struct {
	Store   *storage.Store
	Breaker *circuit.Breaker
	Runner  handlers.Runner
	Alerts  handlers.AlertOptions
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(RequestID)
	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(CORS)

	r.Route("/api", func(api chi.Router) {
		api.Get("/articles", handlers.GetArticles(d.Store))
		api.Get("/alerts", handlers.GetAlerts(d.Store, d.Alerts))

		api.Get("/circuit", handlers.GetCircuit(d.Breaker))
		api.Delete("/circuit", handlers.ResetCircuit(d.Breaker))

		api.Get("/runs", handlers.GetRuns(d.Store))
		api.Post("/runs", handlers.TriggerRun(d.Runner))
	})

	return r
}
