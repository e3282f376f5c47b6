package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/server/handler"
	"github.com/sevigo/rate-my-mr/internal/telemetry"
)

// NewRouter creates the HTTP router with middleware, health, metrics and
// webhook routes.
func NewRouter(cfg *config.Config, dispatcher core.JobDispatcher, metrics *telemetry.Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	webhookHandler := handler.NewWebhookHandler(cfg.Webhook, dispatcher, metrics, logger)
	r.Post("/mr-proper/{checkers}", webhookHandler.Handle)

	return r
}
