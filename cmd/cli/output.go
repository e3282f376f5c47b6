package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/sevigo/rate-my-mr/internal/rating"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

var (
	passStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("46")).
			Padding(0, 2).
			Bold(true)
	failStyle = passStyle.BorderForeground(lipgloss.Color("196"))
	rowStyle  = lipgloss.NewStyle().PaddingLeft(2)
	missStyle = rowStyle.Foreground(lipgloss.Color("196"))
)

// scoreBox renders the score with a green or red border.
func scoreBox(r rating.Rating) string {
	verdict := "PASSED"
	style := passStyle
	if !r.Passed() {
		verdict = "MUST REMAIN OPEN"
		style = failStyle
	}
	return style.Render(fmt.Sprintf("Rating %d/%d  %s  (pass score %d)", r.Score, r.Total, verdict, r.PassScore))
}

// scoreRows lists every rated check, failed ones in red.
func scoreRows(r rating.Rating) string {
	rows := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		mark := "ok  "
		style := rowStyle
		if res.Failed {
			mark = "FAIL"
			style = missStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s %-24s expected %-22s actual %-10s %d/%d",
			mark, res.Kind.Label(), res.Expected, res.Actual, res.Points(), res.Weight)))
	}
	return strings.Join(rows, "\n")
}

func printRating(r rating.Rating) {
	fmt.Println(scoreBox(r))
	if len(r.Results) > 0 {
		fmt.Println(scoreRows(r))
	}
}

// renderMarkdown renders a report for the terminal. The raw text is returned
// when rendering fails.
func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
