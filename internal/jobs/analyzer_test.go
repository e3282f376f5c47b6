package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/rating"
)

func TestAnalyzer_DeductsLintSuppression(t *testing.T) {
	runner := &scanRunner{stdout: cleanScan}
	a := newTestAnalyzer(runner)

	out := a.Analyze(context.Background(), lintDiff(), core.DefaultRepoConfig())

	require.True(t, out.Metrics.Lint.OK)
	assert.Equal(t, 1, out.Metrics.Lint.Value.Count)
	require.True(t, out.Security.OK, out.Security.Reason)
	assert.Equal(t, 1, runner.calls)

	assert.Equal(t, 4, out.Rating.Score)
	assert.Equal(t, map[rating.CheckKind]int{rating.CheckLintDisable: 1}, out.Rating.Deductions)
	assert.Len(t, out.Rating.Results, 4)
	assert.True(t, out.Rating.Passed())
}

const truncatedDiff = "diff --git a/x.py b/x.py\n--- a/x.py\n+++ b/x.py\n@@ -1,9 +1,9 @@\n+x\n"

func TestAnalyzer_UnreadableDiffDegrades(t *testing.T) {
	runner := &scanRunner{stdout: cleanScan}
	a := newTestAnalyzer(runner)

	out := a.Analyze(context.Background(), truncatedDiff, nil)

	assert.False(t, out.Metrics.LOC.OK)
	assert.False(t, out.Metrics.Lint.OK)
	assert.False(t, out.Security.OK)
	assert.Zero(t, runner.calls)
	assert.Empty(t, out.Rating.Results)
	assert.Equal(t, out.Rating.Total, out.Rating.Score)
}

func TestAnalyzer_DisabledFeaturesAreSkipped(t *testing.T) {
	runner := &scanRunner{stdout: cleanScan}
	a := newTestAnalyzer(runner)

	repo := core.DefaultRepoConfig()
	repo.Features.SecurityScan = false
	repo.Features.LintDisableCheck = false

	out := a.Analyze(context.Background(), lintDiff(), repo)

	assert.Zero(t, runner.calls)
	assert.False(t, out.Security.OK)
	assert.Equal(t, 5, out.Rating.Score)
	for _, r := range out.Rating.Results {
		assert.NotEqual(t, rating.CheckLintDisable, r.Kind)
		assert.NotEqual(t, rating.CheckSecurityScan, r.Kind)
	}
}

func TestAnalyzer_CrashedScannerDeductsNothing(t *testing.T) {
	runner := &scanRunner{stdout: "Traceback", code: 2}
	a := newTestAnalyzer(runner)

	repo := core.DefaultRepoConfig()
	repo.Features.LintDisableCheck = false

	out := a.Analyze(context.Background(), lintDiff(), repo)

	require.False(t, out.Security.OK)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 5, out.Rating.Score)
}
