//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sevigo/rate-my-mr/internal/app"
	"github.com/sevigo/rate-my-mr/internal/jobs"
)

// InitializeApp wires the webhook service.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(AppSet)
	return &app.App{}, nil, nil
}

// InitializeRateJob wires a rating job for one-shot command runs.
func InitializeRateJob(ctx context.Context) (*jobs.RateJob, func(), error) {
	wire.Build(RateJobSet, provideNoMetrics)
	return &jobs.RateJob{}, nil, nil
}

// InitializeAnalyzer wires the offline analyzer.
func InitializeAnalyzer() (*jobs.Analyzer, error) {
	wire.Build(AnalyzerSet)
	return &jobs.Analyzer{}, nil
}
