// Package app holds the long-running webhook service: the HTTP server and the
// worker pool rating merge requests.
package app

import (
	"log/slog"

	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/jobs"
	"github.com/sevigo/rate-my-mr/internal/server"
)

// App holds the main application components.
type App struct {
	cfg        *config.Config
	server     *server.Server
	dispatcher *jobs.Dispatcher
	logger     *slog.Logger
}

// NewApp assembles the application.
func NewApp(cfg *config.Config, srv *server.Server, dispatcher *jobs.Dispatcher, logger *slog.Logger) *App {
	return &App{cfg: cfg, server: srv, dispatcher: dispatcher, logger: logger}
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting rate-my-mr",
		"server_port", a.cfg.Server.Port,
		"platform", a.cfg.Platform,
		"ai_backend", a.cfg.AI.Backend,
		"max_workers", a.cfg.Server.MaxWorkers,
	)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts the server down first so no new events arrive, then lets the
// workers finish the queued runs.
func (a *App) Stop() error {
	a.logger.Info("shutting down rate-my-mr services")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.dispatcher.Stop()

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("rate-my-mr stopped successfully")
	return nil
}
