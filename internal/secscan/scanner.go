package secscan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sevigo/rate-my-mr/internal/config"
	"github.com/sevigo/rate-my-mr/internal/core"
	"github.com/sevigo/rate-my-mr/internal/diff"
)

// ErrMalformedReport is returned when the analyzer output lacks a required field.
var ErrMalformedReport = errors.New("malformed analyzer report")

// Severities in report order.
var Severities = []string{"HIGH", "MEDIUM", "LOW"}

// Finding is one issue reported by the analyzer.
type Finding struct {
	Severity   string
	Confidence string
	TestID     string
	TestName   string
	Text       string
	Line       int
	MoreInfo   string
}

// Report is the normalized analyzer result.
type Report struct {
	SeverityCount map[string]int
	LOC           int
	// IssuesPerLine is the number of findings divided by max(LOC, 1).
	IssuesPerLine float64
	Findings      []Finding
	// Raw holds the analyzer output, or its diagnostics when it failed.
	Raw string
}

// High returns the number of high-severity findings.
func (r Report) High() int {
	return r.SeverityCount["HIGH"]
}

// Total returns the number of findings of any severity.
func (r Report) Total() int {
	return len(r.Findings)
}

func emptyReport() Report {
	return Report{SeverityCount: map[string]int{"HIGH": 0, "MEDIUM": 0, "LOW": 0}}
}

// ScanError describes an analyzer run that produced no usable report.
type ScanError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ScanError) Error() string {
	msg := fmt.Sprintf("security analyzer failed (exit code %d)", e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Runner executes an external command and returns its output and exit code.
// err is only set when the command could not be run at all.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return nil, nil, -1, err
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}

// Scanner runs the analyzer on synthesized units.
type Scanner struct {
	binary  string
	timeout time.Duration
	run     Runner
	logger  *slog.Logger
}

// NewScanner creates a Scanner. A nil runner uses ExecRunner.
func NewScanner(cfg config.ScannerConfig, run Runner, logger *slog.Logger) *Scanner {
	if run == nil {
		run = ExecRunner
	}
	if logger == nil {
		logger = slog.Default()
	}
	binary := cfg.Binary
	if binary == "" {
		binary = "bandit"
	}
	return &Scanner{binary: binary, timeout: cfg.Timeout, run: run, logger: logger}
}

// ScanDiff synthesizes the added lines of doc and scans the result.
func (s *Scanner) ScanDiff(ctx context.Context, doc *diff.Document, ignored []string) core.Result[Report] {
	unit, err := Synthesize(doc)
	if err != nil {
		return core.FailedWith(emptyReport(), fmt.Sprintf("failed to build scan input: %v", err))
	}
	s.logger.DebugContext(ctx, "synthesized scan unit",
		"definitions", unit.Definitions,
		"loose_statements", unit.LooseStatements,
		"skipped", unit.Skipped,
		"placeholders", len(unit.Placeholders),
	)
	return s.Scan(ctx, unit, ignored)
}

// Scan runs the analyzer on unit. Findings whose test id is in ignored are
// dropped. Failures yield a zero-filled report carrying the diagnostics.
func (s *Scanner) Scan(ctx context.Context, unit *Unit, ignored []string) core.Result[Report] {
	dir, err := os.MkdirTemp("", "rate-my-mr-scan-*")
	if err != nil {
		return core.FailedWith(emptyReport(), fmt.Sprintf("failed to create scan directory: %v", err))
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "added_code.py")
	if err := os.WriteFile(file, []byte(unit.Source), 0o600); err != nil {
		return core.FailedWith(emptyReport(), fmt.Sprintf("failed to write scan input: %v", err))
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	stdout, stderr, code, err := s.run(ctx, s.binary, "-f", "json", "-q", file)
	if err != nil {
		return core.FailedWith(emptyReport(), fmt.Sprintf("failed to run %s: %v", s.binary, err))
	}
	// 0 means clean and 1 means findings; anything else is a crash.
	if code != 0 && code != 1 {
		scanErr := &ScanError{ExitCode: code, Stderr: strings.TrimSpace(string(stderr))}
		s.logger.WarnContext(ctx, "security analyzer failed", "exit_code", code)
		failed := emptyReport()
		failed.Raw = string(stderr) + string(stdout)
		return core.FailedWith(failed, scanErr.Error())
	}

	report, err := ParseReport(stdout, file, ignored)
	if err != nil {
		failed := emptyReport()
		failed.Raw = string(stdout)
		return core.FailedWith(failed, err.Error())
	}
	return core.Succeeded(report)
}

type banditOutput struct {
	Results *[]banditResult          `json:"results"`
	Metrics map[string]banditMetrics `json:"metrics"`
	Errors  []banditError            `json:"errors"`
}

type banditResult struct {
	IssueSeverity   string `json:"issue_severity"`
	IssueConfidence string `json:"issue_confidence"`
	IssueText       string `json:"issue_text"`
	TestID          string `json:"test_id"`
	TestName        string `json:"test_name"`
	LineNumber      int    `json:"line_number"`
	MoreInfo        string `json:"more_info"`
}

type banditMetrics struct {
	LOC *int `json:"loc"`
}

type banditError struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// ParseReport normalizes the analyzer's JSON output. LOC is read from the
// metrics of file, falling back to the totals.
func ParseReport(data []byte, file string, ignored []string) (Report, error) {
	var out banditOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Report{}, &ScanError{Err: fmt.Errorf("%w: %w", ErrMalformedReport, err)}
	}
	if out.Results == nil {
		return Report{}, &ScanError{Err: fmt.Errorf("%w: missing results", ErrMalformedReport)}
	}
	if len(out.Errors) > 0 {
		reasons := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			reasons = append(reasons, e.Reason)
		}
		return Report{}, &ScanError{Err: fmt.Errorf("analyzer could not process input: %s", strings.Join(reasons, "; "))}
	}

	report := emptyReport()
	report.Raw = string(data)
	for _, r := range *out.Results {
		if slices.Contains(ignored, r.TestID) {
			continue
		}
		sev := strings.ToUpper(r.IssueSeverity)
		if _, ok := report.SeverityCount[sev]; ok {
			report.SeverityCount[sev]++
		}
		report.Findings = append(report.Findings, Finding{
			Severity:   sev,
			Confidence: strings.ToUpper(r.IssueConfidence),
			TestID:     r.TestID,
			TestName:   r.TestName,
			Text:       r.IssueText,
			Line:       r.LineNumber,
			MoreInfo:   r.MoreInfo,
		})
	}

	if m, ok := out.Metrics[file]; ok && m.LOC != nil {
		report.LOC = *m.LOC
	} else if m, ok := out.Metrics["_totals"]; ok && m.LOC != nil {
		report.LOC = *m.LOC
	}
	report.IssuesPerLine = float64(report.Total()) / float64(max(report.LOC, 1))
	return report, nil
}
