// Package diff turns unified diff text into the line stream and the per-function
// code blocks the metric extractors work on.
package diff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// ErrUnreadable is returned when the input is not a unified diff.
var ErrUnreadable = errors.New("unreadable diff")

// Sign classifies a diff line.
type Sign byte

const (
	Context Sign = ' '
	Added   Sign = '+'
	Removed Sign = '-'
)

// Line is one changed or context line, without its sign and line terminator.
type Line struct {
	Sign Sign
	Text string
}

// Hunk is a contiguous run of lines from one file. Heading holds the
// enclosing-section text git prints after the second "@@", if any.
type Hunk struct {
	File    string
	Heading string
	Lines   []Line
}

// Document is a parsed diff. File header lines never appear as content.
type Document struct {
	Hunks []Hunk
}

// Parse reads unified diff text. Binary files are skipped. An input with no
// file sections yields an empty document.
func Parse(raw string) (*Document, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	doc := &Document{}
	for _, f := range files {
		if f.IsBinary {
			continue
		}
		name := f.NewName
		if f.IsDelete || name == "" {
			name = f.OldName
		}
		for _, frag := range f.TextFragments {
			hunk := Hunk{File: name, Heading: strings.TrimSpace(frag.Comment)}
			for _, l := range frag.Lines {
				hunk.Lines = append(hunk.Lines, Line{
					Sign: signOf(l.Op),
					Text: strings.TrimRight(l.Line, "\r\n"),
				})
			}
			doc.Hunks = append(doc.Hunks, hunk)
		}
	}
	return doc, nil
}

func signOf(op gitdiff.LineOp) Sign {
	switch op {
	case gitdiff.OpAdd:
		return Added
	case gitdiff.OpDelete:
		return Removed
	default:
		return Context
	}
}

// Lines returns every line of the document in order.
func (d *Document) Lines() []Line {
	var out []Line
	for _, h := range d.Hunks {
		out = append(out, h.Lines...)
	}
	return out
}

// Texts returns the text of every line carrying the given sign.
func (d *Document) Texts(sign Sign) []string {
	var out []string
	for _, h := range d.Hunks {
		for _, l := range h.Lines {
			if l.Sign == sign {
				out = append(out, l.Text)
			}
		}
	}
	return out
}

// Empty reports whether the document has no added or removed lines.
func (d *Document) Empty() bool {
	for _, h := range d.Hunks {
		for _, l := range h.Lines {
			if l.Sign != Context {
				return false
			}
		}
	}
	return true
}

// Files returns the distinct file names in order of appearance.
func (d *Document) Files() []string {
	var out []string
	seen := map[string]bool{}
	for _, h := range d.Hunks {
		if !seen[h.File] {
			seen[h.File] = true
			out = append(out, h.File)
		}
	}
	return out
}

// IndentWidth returns the visual width of the leading whitespace of s,
// counting a tab as four columns.
func IndentWidth(s string) int {
	width := 0
	for _, r := range s {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}
