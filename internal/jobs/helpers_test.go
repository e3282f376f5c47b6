package jobs

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/diff/difftest"
	"github.com/sevigo/rate-my-mr/internal/gitutil"
	"github.com/sevigo/rate-my-mr/internal/rating"
	"github.com/sevigo/rate-my-mr/internal/secscan"
	"github.com/sevigo/rate-my-mr/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWeights() rating.Weights {
	return rating.WeightsFromConfig(config.RatingConfig{
		TotalWeight:       5,
		MaxLOCWeight:      1,
		LintDisableWeight: 1,
		ComplexityWeight:  2,
		SecurityWeight:    1,
	})
}

const cleanScan = `{"errors": [], "metrics": {"_totals": {"loc": 3}}, "results": []}`

// scanRunner fakes the analyzer binary and counts its invocations.
type scanRunner struct {
	mu     sync.Mutex
	calls  int
	stdout string
	code   int
}

func (r *scanRunner) run(context.Context, string, ...string) ([]byte, []byte, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return []byte(r.stdout), nil, r.code, nil
}

func newTestAnalyzer(runner *scanRunner) *Analyzer {
	scanner := secscan.NewScanner(config.ScannerConfig{Binary: "bandit"}, runner.run, discardLogger())
	return NewAnalyzer(scanner, testWeights(), discardLogger())
}

// lintDiff adds one function carrying a pylint suppression.
func lintDiff() string {
	return difftest.File("app/service.py", difftest.Hunk{Lines: []string{
		"+def handler(event):",
		"+    try:",
		"+        return event['id']",
		"+    except Exception:  # pylint: disable=broad-except",
		"+        return None",
	}})
}

type fakeWorkingCopy struct {
	t        *testing.T
	diff     string
	strategy gitutil.DiffStrategy
	prepErr  error
	diffErr  error
	cleaned  bool
	gotDepth int
}

func (f *fakeWorkingCopy) PrepareMergeRequest(_ context.Context, _ string, _ string, _ string, commits int) (string, func(), error) {
	if f.prepErr != nil {
		return "", nil, f.prepErr
	}
	f.gotDepth = commits
	return f.t.TempDir(), func() { f.cleaned = true }, nil
}

func (f *fakeWorkingCopy) MergeRequestDiff(context.Context, string, string, []string) (string, gitutil.DiffStrategy, error) {
	if f.diffErr != nil {
		return "", "", f.diffErr
	}
	return f.diff, f.strategy, nil
}

type fakeStore struct {
	mu    sync.Mutex
	saved []core.Run
	last  *core.Run
}

func (s *fakeStore) SaveRun(_ context.Context, run *core.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, *run)
	return nil
}

func (s *fakeStore) LatestRun(_ context.Context, project string, iid int) (*core.Run, error) {
	if s.last == nil {
		return storage.NewNoopStore().LatestRun(context.Background(), project, iid)
	}
	return s.last, nil
}
