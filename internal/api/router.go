package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Wellspring/internal/records"
	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
)

func NewRouter(sc *scoring.Scorer, m *records.Manager, adminToken string, rateLimit int, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(rateLimit))

	assessments := NewAssessmentsHandler(sc, m, logger)
	recs := NewRecordsHandler(m, logger)
	admin := NewAdminHandler(sc.Registry(), logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/assessments", assessments.ListTypes)
		r.Get("/assessments/{type}/questions", assessments.Questions)
		r.Post("/assessments/{type}/preview", assessments.Preview)

		r.Group(func(r chi.Router) {
			r.Use(UserIDMiddleware)

			r.Post("/assessments/{type}", assessments.Submit)
			r.Get("/assessments/{type}/latest", assessments.Latest)
			r.Get("/assessments/{type}/history", assessments.History)
			r.Get("/assessments/{type}/stats", assessments.Stats)

			r.Get("/records/{id}", recs.Get)
			r.Put("/records/{id}", recs.Reassess)
			r.Delete("/records/{id}", recs.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Get("/admin/assessment-types/{type}", admin.TypeConfig)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
