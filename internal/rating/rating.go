// Package rating turns metric values into a bounded weighted score.
package rating

import (
	"fmt"

	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/core"
)

// CheckKind identifies a rated check.
type CheckKind string

const (
	CheckMaxLOC       CheckKind = "MAX_LOC"
	CheckLintDisable  CheckKind = "LINT_DISABLE"
	CheckComplexity   CheckKind = "CYCLOMATIC_COMPLEXITY"
	CheckSecurityScan CheckKind = "SECURITY_SCAN"
)

// Label returns the display name of the check.
func (k CheckKind) Label() string {
	switch k {
	case CheckMaxLOC:
		return "Lines of Code"
	case CheckLintDisable:
		return "Lint Disables"
	case CheckComplexity:
		return "Cyclomatic Complexity"
	case CheckSecurityScan:
		return "Security Scan"
	default:
		return string(k)
	}
}

// Limits are the ceilings the failure predicates compare against.
type Limits struct {
	MaxLOC           int
	MaxAverageCC     int
	MaxIssuesPerLine float64
	FailOnHigh       bool
	FailOnMedium     bool
}

// Verdict is the outcome of evaluating one check.
type Verdict struct {
	Expected string
	Actual   string
	Failed   bool
}

// Check is a measured value that can be rated.
type Check interface {
	Kind() CheckKind
	Evaluate(l Limits) Verdict
}

// LOCCheck fails when the net LOC delta exceeds the ceiling.
type LOCCheck struct {
	Net int
}

func (LOCCheck) Kind() CheckKind { return CheckMaxLOC }

func (c LOCCheck) Evaluate(l Limits) Verdict {
	return Verdict{
		Expected: fmt.Sprintf("<= %d", l.MaxLOC),
		Actual:   fmt.Sprintf("%d", c.Net),
		Failed:   c.Net > l.MaxLOC,
	}
}

// LintCheck fails when any new lint suppression exists.
type LintCheck struct {
	Count int
}

func (LintCheck) Kind() CheckKind { return CheckLintDisable }

func (c LintCheck) Evaluate(Limits) Verdict {
	return Verdict{Expected: "0", Actual: fmt.Sprintf("%d", c.Count), Failed: c.Count > 0}
}

// ComplexityCheck fails when the average complexity exceeds the ceiling.
type ComplexityCheck struct {
	Average int
}

func (ComplexityCheck) Kind() CheckKind { return CheckComplexity }

func (c ComplexityCheck) Evaluate(l Limits) Verdict {
	return Verdict{
		Expected: fmt.Sprintf("<= %d", l.MaxAverageCC),
		Actual:   fmt.Sprintf("%d", c.Average),
		Failed:   c.Average > l.MaxAverageCC,
	}
}

// SecurityCheck fails on a HIGH finding or when the issue density exceeds
// the tolerance.
type SecurityCheck struct {
	High          int
	Medium        int
	IssuesPerLine float64
}

func (SecurityCheck) Kind() CheckKind { return CheckSecurityScan }

func (c SecurityCheck) Evaluate(l Limits) Verdict {
	failed := c.IssuesPerLine > l.MaxIssuesPerLine
	if l.FailOnHigh && c.High > 0 {
		failed = true
	}
	if l.FailOnMedium && c.Medium > 0 {
		failed = true
	}
	return Verdict{
		Expected: fmt.Sprintf("<= %.4f issues/LOC", l.MaxIssuesPerLine),
		Actual:   fmt.Sprintf("%.4f", c.IssuesPerLine),
		Failed:   failed,
	}
}

// Weights maps each recognized check to the weight it deducts.
type Weights struct {
	Total    int
	PerCheck map[CheckKind]int
}

// WeightsFromConfig builds the weights of the process configuration.
func WeightsFromConfig(c config.RatingConfig) Weights {
	return Weights{
		Total: c.TotalWeight,
		PerCheck: map[CheckKind]int{
			CheckMaxLOC:       c.MaxLOCWeight,
			CheckLintDisable:  c.LintDisableWeight,
			CheckComplexity:   c.ComplexityWeight,
			CheckSecurityScan: c.SecurityWeight,
		},
	}
}

// MetricResult is one row of the scoring table.
type MetricResult struct {
	Kind     CheckKind
	Expected string
	Actual   string
	Weight   int
	// WeightApplied is the weight deducted, 0 when the check passed.
	WeightApplied int
	Failed        bool
}

// Points returns the weight the check kept.
func (m MetricResult) Points() int {
	return m.Weight - m.WeightApplied
}

// Rating is the aggregated score of one run.
type Rating struct {
	Total      int
	PassScore  int
	Score      int
	Deductions map[CheckKind]int
	Results    []MetricResult
}

// Passed reports whether the score reaches the pass threshold.
func (r Rating) Passed() bool {
	return r.Score >= r.PassScore
}

// MustRemainOpen reports whether the discussion must stay unresolved.
func (r Rating) MustRemainOpen() bool {
	return !r.Passed()
}

// Aggregator rates checks with fixed weights and limits.
type Aggregator struct {
	weights   Weights
	limits    Limits
	passScore int
}

// NewAggregator combines the process weights with the repository settings.
// A check whose deduction is switched off in the repository keeps its row in
// the table but deducts nothing.
func NewAggregator(w Weights, repo *core.RepoConfig) *Aggregator {
	if repo == nil {
		repo = core.DefaultRepoConfig()
	}
	perCheck := make(map[CheckKind]int, len(w.PerCheck))
	for k, v := range w.PerCheck {
		perCheck[k] = v
	}
	for kind, enabled := range map[CheckKind]bool{
		CheckMaxLOC:       repo.Rating.DeductForHighLOC,
		CheckLintDisable:  repo.Rating.DeductForLintDisables,
		CheckComplexity:   repo.Rating.DeductForHighCC,
		CheckSecurityScan: repo.Rating.DeductForSecurityIssues,
	} {
		if !enabled {
			if _, ok := perCheck[kind]; ok {
				perCheck[kind] = 0
			}
		}
	}

	return &Aggregator{
		weights: Weights{Total: w.Total, PerCheck: perCheck},
		limits: Limits{
			MaxLOC:           repo.LOC.MaxLines,
			MaxAverageCC:     repo.Complexity.MaxAverage,
			MaxIssuesPerLine: repo.Security.MaxIssuesPerLOC,
			FailOnHigh:       repo.Security.FailOnHigh,
			FailOnMedium:     repo.Security.FailOnMedium,
		},
		passScore: repo.Rating.PassScore,
	}
}

// Limits returns the limits the aggregator rates against.
func (a *Aggregator) Limits() Limits {
	return a.limits
}

// Aggregate evaluates checks in order. Checks without a configured weight are
// ignored. A kind is deducted at most once.
func (a *Aggregator) Aggregate(checks ...Check) Rating {
	r := Rating{
		Total:      a.weights.Total,
		PassScore:  a.passScore,
		Deductions: make(map[CheckKind]int),
	}

	seen := make(map[CheckKind]bool)
	for _, c := range checks {
		if c == nil {
			continue
		}
		kind := c.Kind()
		weight, ok := a.weights.PerCheck[kind]
		if !ok || seen[kind] {
			continue
		}
		seen[kind] = true

		v := c.Evaluate(a.limits)
		res := MetricResult{Kind: kind, Expected: v.Expected, Actual: v.Actual, Weight: weight, Failed: v.Failed}
		if v.Failed {
			res.WeightApplied = weight
			r.Deductions[kind] = weight
		}
		r.Results = append(r.Results, res)
	}

	deducted := 0
	for _, w := range r.Deductions {
		deducted += w
	}
	r.Score = min(max(r.Total-deducted, 0), r.Total)
	return r
}
