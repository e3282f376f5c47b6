package wire

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sevigo/rate-my-mr/internal/app"
	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/db"
	"github.com/sevigo/rate-my-mr/internal/github"
	"github.com/sevigo/rate-my-mr/internal/gitlab"
	"github.com/sevigo/rate-my-mr/internal/gitutil"
	"github.com/sevigo/rate-my-mr/internal/jobs"
	"github.com/sevigo/rate-my-mr/internal/llm"
	"github.com/sevigo/rate-my-mr/internal/logger"
	"github.com/sevigo/rate-my-mr/internal/rating"
	"github.com/sevigo/rate-my-mr/internal/secscan"
	"github.com/sevigo/rate-my-mr/internal/server"
	"github.com/sevigo/rate-my-mr/internal/storage"
	"github.com/sevigo/rate-my-mr/internal/telemetry"
)

// AnalyzerSet builds the offline analyzer.
var AnalyzerSet = wire.NewSet(
	config.LoadConfig,
	provideLoggerConfig,
	provideLogWriter,
	logger.NewLogger,
	provideScanner,
	provideWeights,
	jobs.NewAnalyzer,
)

// RateJobSet builds everything a rating run needs.
var RateJobSet = wire.NewSet(
	AnalyzerSet,
	providePlatform,
	provideGitClient,
	wire.Bind(new(jobs.WorkingCopy), new(*gitutil.Client)),
	llm.NewPromptManager,
	provideReviewer,
	provideSenderFactory,
	provideRunStore,
	jobs.NewRateJob,
)

// AppSet builds the webhook service.
var AppSet = wire.NewSet(
	RateJobSet,
	provideRegistry,
	wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
	provideMetrics,
	provideDispatcher,
	wire.Bind(new(core.JobDispatcher), new(*jobs.Dispatcher)),
	server.NewServer,
	app.NewApp,
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

// provideLogWriter lets logger.NewLogger open cfg.Logging.Output itself.
func provideLogWriter() io.Writer {
	return nil
}

func provideScanner(cfg *config.Config, logger *slog.Logger) *secscan.Scanner {
	return secscan.NewScanner(cfg.Scanner, nil, logger)
}

func provideWeights(cfg *config.Config) rating.Weights {
	return rating.WeightsFromConfig(cfg.Rating)
}

func providePlatform(ctx context.Context, cfg *config.Config, logger *slog.Logger) (core.Platform, error) {
	switch cfg.Platform {
	case config.PlatformGitLab:
		return gitlab.NewClient(cfg.GitLab, logger)
	case config.PlatformGitHub:
		platform, err := github.NewPlatformFromConfig(ctx, cfg.GitHub, logger)
		if err != nil {
			return nil, err
		}
		return platform, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %q", cfg.Platform)
	}
}

func provideGitClient(cfg *config.Config, logger *slog.Logger) *gitutil.Client {
	return gitutil.NewClient(cfg.Git, logger)
}

func provideReviewer(pm *llm.PromptManager, cfg *config.Config, logger *slog.Logger) *llm.Reviewer {
	return llm.NewReviewer(pm, cfg.AI.Backend, logger)
}

func provideSenderFactory(cfg *config.Config, logger *slog.Logger) jobs.SenderFactory {
	return jobs.NewSenderFactory(cfg.AI, logger)
}

// provideRunStore connects the run history when a database is enabled.
func provideRunStore(cfg *config.Config, logger *slog.Logger) (storage.RunStore, func(), error) {
	if !cfg.Database.Enabled {
		logger.Debug("run history disabled")
		return storage.NewNoopStore(), func() {}, nil
	}
	conn, cleanup, err := db.NewDatabase(cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewStore(conn.DB), cleanup, nil
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// provideNoMetrics disables collectors for one-shot command runs.
func provideNoMetrics() *telemetry.Metrics {
	return nil
}

func provideMetrics(reg *prometheus.Registry) *telemetry.Metrics {
	return telemetry.New(reg)
}

func provideDispatcher(job *jobs.RateJob, cfg *config.Config, metrics *telemetry.Metrics, logger *slog.Logger) *jobs.Dispatcher {
	return jobs.NewDispatcher(job, cfg.Server.MaxWorkers, cfg.Server.QueueSize, metrics, logger)
}
