package metrics

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/sevigo/rate-my-mr/internal/diff"
)

type suppressionPattern struct {
	tool string
	re   *regexp.Regexp
}

// Each pattern captures the suppressed rules in group 1, when the directive names any.
var suppressionPatterns = []suppressionPattern{
	{"pylint", regexp.MustCompile(`#\s*pylint:\s*disable(?:-next)?\s*=\s*([\w\-]+(?:\s*,\s*[\w\-]+)*)`)},
	{"noqa", regexp.MustCompile(`#\s*noqa\b(?::\s*([A-Z]+\d+(?:\s*,\s*[A-Z]+\d+)*))?`)},
	{"type-ignore", regexp.MustCompile(`#\s*type:\s*ignore(?:\[([\w\-, ]+)\])?`)},
	{"nosec", regexp.MustCompile(`(?:#|//)\s*nosec\b(?:\s+([A-Z]\d+(?:[ ,]+[A-Z]\d+)*))?`)},
	{"nolint", regexp.MustCompile(`//\s*nolint\b(?::([\w\-]+(?:,[\w\-]+)*))?`)},
	{"eslint", regexp.MustCompile(`(?://|/\*)\s*eslint-disable(?:-next-line|-line)?\b[ \t]*([\w\-/@]+(?:\s*,\s*[\w\-/@]+)*)?`)},
}

// Suppression is one lint-suppression directive introduced by the diff.
type Suppression struct {
	Tool     string
	Rules    []string
	Function string
	File     string
	Line     string
}

// Label renders the directive as "tool(rule1,rule2)" or "tool".
func (s Suppression) Label() string {
	if len(s.Rules) == 0 {
		return s.Tool
	}
	return s.Tool + "(" + strings.Join(s.Rules, ",") + ")"
}

func (s Suppression) key() string {
	return s.Function + "|" + s.Label()
}

// LintReport lists the suppressions the diff adds on net.
type LintReport struct {
	Count        int
	Suppressions []Suppression
}

// Suppressions finds lint-suppression directives on added lines. A directive
// that is also removed inside the same function cancels out, so moving code
// does not count. Directives whose rules are all in allowed are ignored.
func Suppressions(doc *diff.Document, allowed []string) LintReport {
	var added []Suppression
	net := map[string]int{}

	for _, h := range doc.Hunks {
		function, _ := diff.Signature(h.Heading)
		for _, l := range h.Lines {
			trimmed := strings.TrimSpace(l.Text)
			if name, ok := diff.Signature(l.Text); ok {
				function = name
			} else if trimmed != "" && diff.IndentWidth(l.Text) == 0 && !strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "@") {
				function = ""
			}
			if l.Sign == diff.Context {
				continue
			}
			for _, s := range findSuppressions(l.Text) {
				if allowedRules(s.Rules, allowed) {
					continue
				}
				s.Function = function
				s.File = h.File
				if l.Sign == diff.Added {
					added = append(added, s)
					net[s.key()]++
				} else {
					net[s.key()]--
				}
			}
		}
	}

	var report LintReport
	for _, s := range added {
		if net[s.key()] <= 0 {
			continue
		}
		net[s.key()]--
		report.Suppressions = append(report.Suppressions, s)
	}
	report.Count = len(report.Suppressions)
	return report
}

func findSuppressions(text string) []Suppression {
	var out []Suppression
	for _, p := range suppressionPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			out = append(out, Suppression{
				Tool:  p.tool,
				Rules: splitRules(m[1]),
				Line:  strings.TrimSpace(text),
			})
		}
	}
	return out
}

func splitRules(s string) []string {
	rules := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	sort.Strings(rules)
	return rules
}

func allowedRules(rules, allowed []string) bool {
	if len(rules) == 0 || len(allowed) == 0 {
		return false
	}
	for _, r := range rules {
		if !slices.Contains(allowed, r) {
			return false
		}
	}
	return true
}
