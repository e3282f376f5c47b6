// Package metrics extracts the quantitative checks of a merge request from its
// diff: the lines-of-code delta, cyclomatic complexity of touched functions and
// newly added lint suppressions. Extractors never fail; an unreadable diff
// yields zero values together with a failure reason.
package metrics

import (
	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/diff"
)

// Options tunes the extractors.
type Options struct {
	// AllowedLintRules lists suppressed rules that are not counted.
	AllowedLintRules []string
}

// Snapshot holds the outcome of every extractor for one diff.
type Snapshot struct {
	// Document is nil when the diff could not be parsed.
	Document   *diff.Document
	LOC        core.Result[LOCDelta]
	Complexity core.Result[ComplexityReport]
	Lint       core.Result[LintReport]
}

// Extract parses raw diff text and runs every extractor on it.
func Extract(raw string, opts Options) Snapshot {
	doc, err := diff.Parse(raw)
	if err != nil {
		reason := err.Error()
		return Snapshot{
			LOC:        core.Failed[LOCDelta](reason),
			Complexity: core.Failed[ComplexityReport](reason),
			Lint:       core.Failed[LintReport](reason),
		}
	}
	return Snapshot{
		Document:   doc,
		LOC:        core.Succeeded(CountLOC(doc)),
		Complexity: core.Succeeded(Complexity(doc)),
		Lint:       core.Succeeded(Suppressions(doc, opts.AllowedLintRules)),
	}
}
