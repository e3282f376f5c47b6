package jobs

import (
	"context"
	"log/slog"

	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/metrics"
	"github.com/sevigo/rate-my-mr/internal/rating"
	"github.com/sevigo/rate-my-mr/internal/secscan"
)

// Analysis is the offline part of a run: metrics, security scan and rating.
type Analysis struct {
	Metrics  metrics.Snapshot
	Security core.Result[secscan.Report]
	Rating   rating.Rating
}

// Analyzer rates a diff without talking to the review platform or the AI
// service. It is shared by the webhook job and the rate-diff command.
type Analyzer struct {
	scanner *secscan.Scanner
	weights rating.Weights
	logger  *slog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(scanner *secscan.Scanner, weights rating.Weights, logger *slog.Logger) *Analyzer {
	return &Analyzer{scanner: scanner, weights: weights, logger: logger}
}

// Analyze extracts metrics from raw, scans the added code and aggregates the
// rating. Features disabled in repo are neither computed nor rated, and a
// metric that failed to compute deducts nothing.
func (a *Analyzer) Analyze(ctx context.Context, raw string, repo *core.RepoConfig) Analysis {
	if repo == nil {
		repo = core.DefaultRepoConfig()
	}

	snap := metrics.Extract(raw, metrics.Options{AllowedLintRules: repo.Lint.AllowedDisables})
	out := Analysis{
		Metrics:  snap,
		Security: core.Failed[secscan.Report]("security scan disabled"),
	}

	if repo.Features.SecurityScan {
		switch {
		case snap.Document == nil:
			out.Security = core.Failed[secscan.Report](snap.LOC.Reason)
		case a.scanner == nil:
			out.Security = core.Failed[secscan.Report]("security scanner is not configured")
		default:
			out.Security = a.scanner.ScanDiff(ctx, snap.Document, repo.Security.IgnoredTests)
		}
		if !out.Security.OK {
			a.logger.WarnContext(ctx, "security scan degraded", "reason", out.Security.Reason)
		}
	}

	var checks []rating.Check
	if repo.Features.LOCAnalysis && snap.LOC.OK {
		checks = append(checks, rating.LOCCheck{Net: snap.LOC.Value.Net})
	}
	if repo.Features.LintDisableCheck && snap.Lint.OK {
		checks = append(checks, rating.LintCheck{Count: snap.Lint.Value.Count})
	}
	if repo.Features.CyclomaticComplexity && snap.Complexity.OK {
		checks = append(checks, rating.ComplexityCheck{Average: snap.Complexity.Value.Average})
	}
	if repo.Features.SecurityScan && out.Security.OK {
		sec := out.Security.Value
		checks = append(checks, rating.SecurityCheck{
			High:          sec.SeverityCount["HIGH"],
			Medium:        sec.SeverityCount["MEDIUM"],
			IssuesPerLine: sec.IssuesPerLine,
		})
	}

	out.Rating = rating.NewAggregator(a.weights, repo).Aggregate(checks...)
	a.logger.DebugContext(ctx, "diff analyzed",
		"checks", len(checks),
		"score", out.Rating.Score,
		"total", out.Rating.Total,
	)
	return out
}
