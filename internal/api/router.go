package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Evergreen/internal/metrics"
	"github.com/MikeSquared-Agency/Evergreen/internal/store"
)

// runsPerMinute bounds pipeline submissions per client.
const runsPerMinute = 30

func NewRouter(s store.Store, run Runner, m *metrics.Metrics, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger, m))

	datasets := NewDatasetsHandler(s, run)
	runs := NewRunsHandler(s, run)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/datasets/{id}/records", datasets.ListRecords)
		r.Get("/datasets/{id}/runs/latest", runs.Latest)
		r.Get("/runs/{id}", runs.Get)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Post("/datasets/{id}/records", datasets.PutRecords)
			r.With(RateLimitMiddleware(runsPerMinute)).Post("/datasets/{id}/runs", runs.Create)
		})
	})

	return r
}

// NewMetricsRouter serves /health and /metrics. healthy reports whether the
// optional dependencies are reachable; nil means always healthy.
func NewMetricsRouter(g prometheus.Gatherer, healthy func() map[string]bool) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{"status": "ok"}
		if healthy != nil {
			checks := healthy()
			for _, ok := range checks {
				if !ok {
					resp["status"] = "degraded"
				}
			}
			resp["checks"] = checks
		}
		writeJSON(w, http.StatusOK, resp)
	})
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
