package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/site-mirror/internal/delivery/http/handler"
	"github.com/user/site-mirror/internal/delivery/http/middleware"
	"github.com/user/site-mirror/pkg/metrics"
	"go.uber.org/zap"
)

// New builds the API router. gatherer backs the /metrics endpoint and
// should be the registry m was created with.
func New(h *handler.Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(m))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.Post("/mirror", h.HandleSubmitMirror)
		r.Get("/jobs/{id}", h.HandleGetJob)
		r.Get("/jobs/{id}/manifest", h.HandleGetManifest)
	})

	return r
}
