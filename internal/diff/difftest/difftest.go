// Package difftest builds well-formed unified diffs for tests.
package difftest

import (
	"fmt"
	"strings"
)

// Hunk describes one fragment. Lines carry their sign as the first byte:
// '+', '-' or ' '.
type Hunk struct {
	Heading string
	Lines   []string
}

// File renders a single-file diff with correctly counted hunk headers.
func File(name string, hunks ...Hunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", name, name)
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", name, name)

	oldStart, newStart := 1, 1
	for _, h := range hunks {
		oldCount, newCount := 0, 0
		for _, l := range h.Lines {
			switch sign(l) {
			case '+':
				newCount++
			case '-':
				oldCount++
			default:
				oldCount++
				newCount++
			}
		}
		header := fmt.Sprintf("@@ -%s +%s @@", rangeOf(oldStart, oldCount), rangeOf(newStart, newCount))
		if h.Heading != "" {
			header += " " + h.Heading
		}
		b.WriteString(header + "\n")
		for _, l := range h.Lines {
			if l == "" {
				l = " "
			}
			b.WriteString(l + "\n")
		}
		oldStart += oldCount + 10
		newStart += newCount + 10
	}
	return b.String()
}

// Added renders a diff of one file whose lines are all additions.
func Added(name string, lines ...string) string {
	signed := make([]string, len(lines))
	for i, l := range lines {
		signed[i] = "+" + l
	}
	return File(name, Hunk{Lines: signed})
}

func sign(l string) byte {
	if l == "" {
		return ' '
	}
	return l[0]
}

func rangeOf(start, count int) string {
	if count == 0 {
		return fmt.Sprintf("%d,0", start-1)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
