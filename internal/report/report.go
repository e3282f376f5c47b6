// Package report renders the Markdown body posted to the merge request.
package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/metrics"
	"github.com/sevigo/rate-my-mr/internal/rating"
	"github.com/sevigo/rate-my-mr/internal/secscan"
)

// Header prefixes every report body and identifies the thread owned by the bot.
// It must never change.
const Header = ":star2: MR Quality Rating Report :star2:\n========================================\n\n"

// Input is everything one report is rendered from.
type Input struct {
	Summary    core.Result[string]
	Review     core.Result[string]
	LOC        core.Result[metrics.LOCDelta]
	Lint       core.Result[metrics.LintReport]
	Complexity core.Result[metrics.ComplexityReport]
	Security   core.Result[secscan.Report]
	Rating     rating.Rating
	Settings   *core.RepoConfig
	Endorsers  []string
	// PreviousScore is the score of the last stored run, if any.
	PreviousScore *int
	RequestID     string
}

// Render returns the full report body, starting with Header.
func Render(in Input) string {
	settings := in.Settings
	if settings == nil {
		settings = core.DefaultRepoConfig()
	}

	var b strings.Builder
	b.WriteString(Header)
	fmt.Fprintf(&b, "## Overall Rating: %d/%d\n", in.Rating.Score, in.Rating.Total)
	if in.PreviousScore != nil && *in.PreviousScore != in.Rating.Score {
		fmt.Fprintf(&b, "_Previous rating: %d/%d_\n", *in.PreviousScore, in.Rating.Total)
	}
	b.WriteString("\n### Quality Assessment Results\n")

	writeAISection(&b, ":mag: Summary Analysis", "AI Summary", in.Summary,
		settings.Features.AISummary, settings.Report.ShowAIContent)
	writeAISection(&b, ":microscope: Code Review Analysis", "AI Code Review", in.Review,
		settings.Features.AICodeReview, settings.Report.ShowAIContent)

	if settings.Features.LOCAnalysis {
		writeLOC(&b, in.LOC, settings.LOC)
	}
	if settings.Features.LintDisableCheck {
		writeLint(&b, in.Lint, settings.Lint)
	}
	if settings.Features.CyclomaticComplexity {
		writeComplexity(&b, in.Complexity, settings)
	}
	if settings.Features.SecurityScan {
		writeSecurity(&b, in.Security, settings)
	}

	writeScoring(&b, in.Rating)
	writeBanner(&b, in.Rating)
	writeFooter(&b, in.Endorsers, in.RequestID)
	return b.String()
}

// RenderFailure returns the body posted when the assessment could not run.
// It carries the same Header so the next successful run replaces it.
func RenderFailure(reason, requestID string) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("## :x: Assessment failed\n\n")
	b.WriteString("The quality assessment of this merge request could not be completed.\n\n")
	fmt.Fprintf(&b, "- **Reason**: %s\n", oneLine(reason))
	b.WriteString("\nThe assessment runs again when new changes are pushed.\n")
	writeFooter(&b, nil, requestID)
	return b.String()
}

func writeAISection(b *strings.Builder, title, label string, res core.Result[string], enabled, showContent bool) {
	fmt.Fprintf(b, "\n#### %s\n", title)
	switch {
	case !enabled:
		b.WriteString(":fast_forward: Skipped (disabled in repository configuration)\n")
	case !res.OK || strings.TrimSpace(res.Value) == "":
		fmt.Fprintf(b, ":x: %s generation failed - check AI service connectivity\n", label)
		if res.Reason != "" {
			fmt.Fprintf(b, "- **Reason**: %s\n", oneLine(res.Reason))
		}
	default:
		fmt.Fprintf(b, ":white_check_mark: %s generated successfully\n", label)
		if showContent {
			writeCollapsible(b, "Click to expand "+label, res.Value)
		}
	}
}

func writeLOC(b *strings.Builder, res core.Result[metrics.LOCDelta], s core.LOCSettings) {
	b.WriteString("\n#### :chart_with_upwards_trend: Lines of Code Analysis\n")
	writeDegraded(b, res.OK, res.Reason)
	loc := res.Value
	fmt.Fprintf(b, "- **Lines Added**: %d\n", loc.Added)
	fmt.Fprintf(b, "- **Lines Removed**: %d\n", loc.Removed)
	fmt.Fprintf(b, "- **Net Change**: %d\n", loc.Net)
	switch {
	case loc.Net > s.MaxLines:
		fmt.Fprintf(b, "- :warning: Net change exceeds the %d line limit\n", s.MaxLines)
	case s.WarningThreshold > 0 && loc.Net > s.WarningThreshold:
		fmt.Fprintf(b, "- Net change is above the %d line warning threshold\n", s.WarningThreshold)
	}
}

func writeLint(b *strings.Builder, res core.Result[metrics.LintReport], s core.LintSettings) {
	b.WriteString("\n#### :warning: Lint Disable Analysis\n")
	writeDegraded(b, res.OK, res.Reason)
	lint := res.Value
	fmt.Fprintf(b, "- **New Lint Disables**: %d\n", lint.Count)
	if len(lint.Suppressions) == 0 {
		b.WriteString("- **Disabled Rules**: None\n")
		return
	}
	labels := make([]string, 0, len(lint.Suppressions))
	for _, sup := range lint.Suppressions {
		labels = append(labels, "`"+sup.Label()+"`")
	}
	fmt.Fprintf(b, "- **Disabled Rules**: %s\n", strings.Join(labels, ", "))
	if s.MaxNewDisables > 0 && lint.Count > s.MaxNewDisables {
		fmt.Fprintf(b, "- :warning: More than %d new suppressions\n", s.MaxNewDisables)
	}
}

func writeComplexity(b *strings.Builder, res core.Result[metrics.ComplexityReport], s *core.RepoConfig) {
	b.WriteString("\n#### :cyclone: Cyclomatic Complexity Analysis\n")
	if !res.OK {
		writeDegraded(b, false, res.Reason)
		return
	}
	cc := res.Value
	status := "Good"
	if cc.Average > s.Complexity.MaxAverage {
		status = "High complexity"
	}
	fmt.Fprintf(b, "- **Average Complexity**: %d (%s)\n", cc.Average, status)
	fmt.Fprintf(b, "- **Methods Analyzed**: %d\n", len(cc.Functions))
	if !s.Report.ShowCCBreakdown {
		return
	}
	high := cc.Above(s.Complexity.MaxPerMethod, s.Complexity.ShowTopNMethods)
	if len(high) == 0 {
		return
	}
	fmt.Fprintf(b, "- **High Complexity Methods** (CC > %d):\n", s.Complexity.MaxPerMethod)
	for _, fn := range high {
		fmt.Fprintf(b, "  - `%s`: %d\n", fn.Name, fn.Complexity)
	}
}

func writeSecurity(b *strings.Builder, res core.Result[secscan.Report], s *core.RepoConfig) {
	b.WriteString("\n#### :shield: Security Scan Analysis\n")
	if !res.OK {
		writeDegraded(b, false, res.Reason)
		return
	}
	rep := res.Value
	high := rep.SeverityCount["HIGH"]
	critical := ""
	if high > 0 {
		critical = " (Critical!)"
	}
	fmt.Fprintf(b, "- **HIGH Severity Issues**: %d%s\n", high, critical)
	fmt.Fprintf(b, "- **MEDIUM Severity Issues**: %d\n", rep.SeverityCount["MEDIUM"])
	fmt.Fprintf(b, "- **LOW Severity Issues**: %d\n", rep.SeverityCount["LOW"])
	fmt.Fprintf(b, "- **Security Score**: %.4f issues/LOC\n", rep.IssuesPerLine)

	if !s.Report.ShowSecurityDetails || len(rep.Findings) == 0 {
		return
	}
	limit := s.Security.ShowMaxIssues
	if limit <= 0 || limit > len(rep.Findings) {
		limit = len(rep.Findings)
	}
	var details strings.Builder
	for _, f := range rep.Findings[:limit] {
		fmt.Fprintf(&details, "- **%s** - %s\n", f.Severity, oneLine(f.Text))
		fmt.Fprintf(&details, "  - Test: `%s` (%s)\n", f.TestName, f.TestID)
		fmt.Fprintf(&details, "  - Line: %d\n", f.Line)
		if f.MoreInfo != "" {
			fmt.Fprintf(&details, "  - [More Info](%s)\n", f.MoreInfo)
		}
	}
	if rest := len(rep.Findings) - limit; rest > 0 {
		fmt.Fprintf(&details, "\n_%d more issue(s) not shown._\n", rest)
	}
	writeCollapsible(b, "Click to expand Security Issues", details.String())
}

func writeScoring(b *strings.Builder, r rating.Rating) {
	b.WriteString("\n### Scoring Breakdown\n")
	b.WriteString("| Metric | Expected | Actual | Points |\n")
	b.WriteString("|--------|----------|--------|--------|\n")
	for _, res := range r.Results {
		mark := ":white_check_mark:"
		if res.Failed {
			mark = ":x:"
		}
		fmt.Fprintf(b, "| %s %s | %s | %s | %d/%d |\n", mark, res.Kind.Label(), res.Expected, res.Actual, res.Points(), res.Weight)
	}
	fmt.Fprintf(b, "\n**Final Score**: %d/%d points (pass score %d)\n", r.Score, r.Total, r.PassScore)
}

func writeBanner(b *strings.Builder, r rating.Rating) {
	if r.MustRemainOpen() {
		b.WriteString("\n:bomb: **QUALITY ISSUES IDENTIFIED** :bomb:<br>\n")
		b.WriteString("This MR has quality concerns that should be addressed before merging.<br>\n")
		b.WriteString("The assessment is updated automatically when changes are pushed.\n\n")
		b.WriteString("### Recommended Actions:\n")
		failed := make([]rating.CheckKind, 0, len(r.Deductions))
		for k := range r.Deductions {
			failed = append(failed, k)
		}
		slices.Sort(failed)
		for _, k := range failed {
			fmt.Fprintf(b, "- %s\n", recommendation(k))
		}
		if len(failed) == 0 {
			b.WriteString("- Review the AI feedback above\n")
		}
		return
	}
	b.WriteString("\n:white_check_mark: **Quality assessment passed** - MR meets quality standards.\n")
}

func recommendation(k rating.CheckKind) string {
	switch k {
	case rating.CheckMaxLOC:
		return "Consider breaking large changes into smaller MRs"
	case rating.CheckLintDisable:
		return "Remove unnecessary lint disable statements"
	case rating.CheckComplexity:
		return "Split complex functions into smaller ones"
	case rating.CheckSecurityScan:
		return "Fix the reported security issues"
	default:
		return "Address the failing " + k.Label() + " check"
	}
}

func writeFooter(b *strings.Builder, endorsers []string, requestID string) {
	b.WriteString("\n---\n")
	if len(endorsers) > 0 {
		names := make([]string, 0, len(endorsers))
		for _, e := range endorsers {
			names = append(names, "@"+e)
		}
		fmt.Fprintf(b, ":thumbsup: Endorsed by %s\n\n", strings.Join(names, ", "))
	}
	b.WriteString("*Generated by AI-powered MR quality assessment*")
	if requestID != "" {
		fmt.Fprintf(b, " *(request `%s`)*", requestID)
	}
	b.WriteString("\n")
}

func writeDegraded(b *strings.Builder, ok bool, reason string) {
	if ok {
		return
	}
	if reason == "" {
		reason = "analysis not performed"
	}
	fmt.Fprintf(b, "- **Status**: Analysis failed (%s)\n", oneLine(reason))
}

func writeCollapsible(b *strings.Builder, summary, body string) {
	fmt.Fprintf(b, "\n<details>\n<summary>%s</summary>\n\n%s\n\n</details>\n", summary, strings.TrimSpace(body))
}

func oneLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	return s
}
