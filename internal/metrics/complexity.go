package metrics

import (
	"regexp"
	"sort"

	"github.com/sevigo/rate-my-mr/internal/diff"
)

// AnonymousLabel names functions whose signature carries no name.
const AnonymousLabel = "<anonymous>"

var decisionPattern = regexp.MustCompile(`\b(?:if|for|while|elif|case|catch|except)\b|&&|\|\|`)

// FunctionComplexity is the cyclomatic complexity of one function.
type FunctionComplexity struct {
	Name       string
	File       string
	Complexity int
}

// ComplexityReport covers the functions touched by added lines.
type ComplexityReport struct {
	// Average is the integer mean over Functions, 0 when there are none.
	Average   int
	Functions []FunctionComplexity
}

// Cyclomatic returns 1 plus the number of decision points in lines.
func Cyclomatic(lines []string) int {
	cc := 1
	for _, l := range lines {
		cc += len(decisionPattern.FindAllStringIndex(l, -1))
	}
	return cc
}

// Complexity measures every function the diff adds or touches.
func Complexity(doc *diff.Document) ComplexityReport {
	var report ComplexityReport
	sum := 0
	for _, b := range doc.Blocks() {
		if !b.Touched {
			continue
		}
		name := b.Name
		if b.Anonymous() {
			name = AnonymousLabel
		}
		fc := FunctionComplexity{Name: name, File: b.File, Complexity: Cyclomatic(b.Lines)}
		report.Functions = append(report.Functions, fc)
		sum += fc.Complexity
	}
	if n := len(report.Functions); n > 0 {
		report.Average = sum / n
	}
	return report
}

// ByName maps function names to complexity. Later duplicates win.
func (r ComplexityReport) ByName() map[string]int {
	out := make(map[string]int, len(r.Functions))
	for _, f := range r.Functions {
		out[f.Name] = f.Complexity
	}
	return out
}

// Above returns up to limit functions whose complexity exceeds ceiling,
// most complex first. A limit of 0 or less returns all of them.
func (r ComplexityReport) Above(ceiling, limit int) []FunctionComplexity {
	var out []FunctionComplexity
	for _, f := range r.Functions {
		if f.Complexity > ceiling {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Complexity > out[j].Complexity
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
