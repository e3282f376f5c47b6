package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/core"
)

func defaultWeights() Weights {
	return WeightsFromConfig(config.RatingConfig{
		TotalWeight:       5,
		MaxLOCWeight:      1,
		LintDisableWeight: 1,
		ComplexityWeight:  2,
		SecurityWeight:    1,
	})
}

func passingChecks() []Check {
	return []Check{
		LOCCheck{Net: 12},
		LintCheck{Count: 0},
		ComplexityCheck{Average: 3},
		SecurityCheck{},
	}
}

type unknownCheck struct{}

func (unknownCheck) Kind() CheckKind         { return "COVERAGE" }
func (unknownCheck) Evaluate(Limits) Verdict { return Verdict{Failed: true} }

func TestAggregate_AllPassing(t *testing.T) {
	a := NewAggregator(defaultWeights(), core.DefaultRepoConfig())
	r := a.Aggregate(passingChecks()...)

	assert.Equal(t, 5, r.Score)
	assert.Empty(t, r.Deductions)
	assert.True(t, r.Passed())
	assert.False(t, r.MustRemainOpen())
	require.Len(t, r.Results, 4)
	assert.Equal(t, "<= 500", r.Results[0].Expected)
	assert.Equal(t, "12", r.Results[0].Actual)
	assert.Equal(t, 1, r.Results[0].Points())
}

func TestAggregate_Deductions(t *testing.T) {
	a := NewAggregator(defaultWeights(), core.DefaultRepoConfig())

	tests := []struct {
		name      string
		checks    []Check
		wantScore int
		wantOpen  bool
	}{
		{"loc over ceiling", []Check{LOCCheck{Net: 501}}, 4, false},
		{"new suppression", []Check{LintCheck{Count: 1}}, 4, false},
		{"high complexity", []Check{ComplexityCheck{Average: 11}}, 3, false},
		{"high severity finding", []Check{SecurityCheck{High: 1}}, 4, false},
		{"issue density", []Check{SecurityCheck{IssuesPerLine: 0.01}}, 4, false},
		{"complexity and lint", []Check{ComplexityCheck{Average: 20}, LintCheck{Count: 2}}, 2, true},
		{"everything fails", []Check{LOCCheck{Net: 9000}, LintCheck{Count: 3}, ComplexityCheck{Average: 30}, SecurityCheck{High: 2}}, 0, true},
		{"unknown check ignored", []Check{unknownCheck{}}, 5, false},
		{"nil check ignored", []Check{nil}, 5, false},
		{"duplicate kind deducted once", []Check{LintCheck{Count: 1}, LintCheck{Count: 4}}, 4, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := a.Aggregate(tc.checks...)
			assert.Equal(t, tc.wantScore, r.Score)
			assert.Equal(t, tc.wantOpen, r.MustRemainOpen())
		})
	}
}

func TestAggregate_ScoreIsBoundedAndMonotonic(t *testing.T) {
	w := Weights{Total: 3, PerCheck: map[CheckKind]int{
		CheckMaxLOC:       2,
		CheckLintDisable:  2,
		CheckComplexity:   2,
		CheckSecurityScan: 2,
	}}
	a := NewAggregator(w, core.DefaultRepoConfig())

	failing := []Check{LOCCheck{Net: 1000}, LintCheck{Count: 1}, ComplexityCheck{Average: 99}, SecurityCheck{High: 1}}
	prev := w.Total
	for i := range failing {
		checks := append(passingChecks()[i+1:], failing[:i+1]...)
		r := a.Aggregate(checks...)
		assert.GreaterOrEqual(t, r.Score, 0)
		assert.LessOrEqual(t, r.Score, w.Total)
		assert.LessOrEqual(t, r.Score, prev)
		prev = r.Score
	}
	assert.Equal(t, 0, prev)
}

func TestAggregate_DeductionSwitchedOff(t *testing.T) {
	repo := core.DefaultRepoConfig()
	repo.Rating.DeductForHighCC = false

	r := NewAggregator(defaultWeights(), repo).Aggregate(ComplexityCheck{Average: 50})
	assert.Equal(t, 5, r.Score)
	require.Len(t, r.Results, 1)
	assert.True(t, r.Results[0].Failed)
	assert.Equal(t, 0, r.Results[0].WeightApplied)
}

func TestAggregate_OmittedCheckKeepsScore(t *testing.T) {
	a := NewAggregator(defaultWeights(), core.DefaultRepoConfig())
	all := a.Aggregate(passingChecks()...)
	withoutSecurity := a.Aggregate(passingChecks()[:3]...)
	assert.Equal(t, all.Score, withoutSecurity.Score)
	assert.Equal(t, all.Total, withoutSecurity.Total)
}

func TestAggregate_PassThresholdFromRepo(t *testing.T) {
	repo := core.DefaultRepoConfig()
	repo.Rating.PassScore = 5

	r := NewAggregator(defaultWeights(), repo).Aggregate(LintCheck{Count: 1})
	assert.Equal(t, 4, r.Score)
	assert.True(t, r.MustRemainOpen())
}

func TestSecurityCheck_Medium(t *testing.T) {
	l := Limits{MaxIssuesPerLine: 1, FailOnMedium: true}
	assert.True(t, SecurityCheck{Medium: 1}.Evaluate(l).Failed)
	l.FailOnMedium = false
	assert.False(t, SecurityCheck{Medium: 1}.Evaluate(l).Failed)
	l.FailOnHigh = false
	assert.False(t, SecurityCheck{High: 1}.Evaluate(l).Failed)
}

func TestCheckKind_Label(t *testing.T) {
	assert.Equal(t, "Cyclomatic Complexity", CheckComplexity.Label())
	assert.Equal(t, "OTHER", CheckKind("OTHER").Label())
}
