package metrics

import (
	"strings"

	"github.com/sevigo/rate-my-mr/internal/diff"
)

// LOCDelta is the source line count of the added and removed sides of a diff.
type LOCDelta struct {
	Added   int
	Removed int
	// Net is Added minus Removed and may be negative.
	Net int
}

// CountLOC counts source lines on both sides of the diff with the same
// convention: blank lines, comment-only lines and docstring bodies are skipped.
func CountLOC(doc *diff.Document) LOCDelta {
	added := SourceLines(doc.Texts(diff.Added))
	removed := SourceLines(doc.Texts(diff.Removed))
	return LOCDelta{Added: added, Removed: removed, Net: added - removed}
}

var commentPrefixes = []string{"#", "//", "/*", "*/", "* "}

// SourceLines returns the number of lines that carry code.
func SourceLines(lines []string) int {
	count := 0
	var docQuote string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if docQuote != "" {
			if strings.Contains(trimmed, docQuote) {
				docQuote = ""
			}
			continue
		}
		if trimmed == "" || trimmed == "*" {
			continue
		}
		if q, start := docstringOpener(trimmed); q != "" {
			if !strings.Contains(trimmed[start:], q) {
				docQuote = q
			}
			continue
		}
		if isComment(trimmed) {
			continue
		}
		count++
	}
	return count
}

// docstringOpener returns the quote a line-leading string literal opens with
// and the offset right after it.
func docstringOpener(trimmed string) (string, int) {
	for _, q := range []string{`"""`, `'''`} {
		if strings.HasPrefix(trimmed, q) {
			return q, len(q)
		}
		for _, prefix := range []string{"r", "u", "b", "f", "R", "U", "B", "F"} {
			if strings.HasPrefix(trimmed, prefix+q) {
				return q, len(prefix) + len(q)
			}
		}
	}
	return "", 0
}

func isComment(trimmed string) bool {
	for _, p := range commentPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}
