package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts every endpoint on a chi router.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/matches", h.GetMatches)
		r.Get("/matches/{id}", h.GetMatch)
		r.Get("/teams", h.GetTeams)
		r.Get("/standings", h.GetStandings)

		r.Get("/predict", h.Predict)
		r.Post("/predict/batch", h.PredictBatch)
		r.Get("/features", h.GetFeatures)

		r.Get("/analyze", h.Analyze)
		r.Post("/retrain", h.Retrain)
		r.Post("/ingest/sync", h.SyncData)

		r.Get("/fantasy/players", h.FantasyPlayers)
		r.Post("/fantasy/transfers", h.FantasyTransfers)
		r.Get("/fantasy/differentials", h.FantasyDifferentials)
	})

	return r
}
