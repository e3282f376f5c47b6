// Package server implements the webhook HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/telemetry"
)

// Server wraps an HTTP server with graceful shutdown capabilities.
type Server struct {
	ctx    context.Context
	server *http.Server
	logger *slog.Logger
}

// NewServer creates the HTTP server receiving merge request webhooks.
func NewServer(ctx context.Context, cfg *config.Config, dispatcher core.JobDispatcher, metrics *telemetry.Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	router := NewRouter(cfg, dispatcher, metrics, gatherer, logger)

	return &Server{
		ctx: ctx,
		server: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Start starts the HTTP server and blocks until shutdown or error.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server with a 30-second timeout.
func (s *Server) Stop() error {
	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
