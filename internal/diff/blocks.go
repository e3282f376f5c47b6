package diff

import (
	"regexp"
	"strings"
)

var signaturePatterns = []*regexp.Regexp{
	// Python
	regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(`),
	// Go, with an optional receiver and type parameters
	regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?(\w+)\s*[\[(]`),
	// JavaScript and TypeScript
	regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\b\s*\*?\s*(\w*)\s*\(`),
}

// Signature reports whether text opens a function definition and returns its
// name. The name is empty for anonymous definitions.
func Signature(text string) (string, bool) {
	for _, re := range signaturePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// CodeBlock is a function reconstructed from the non-removed lines of a diff.
type CodeBlock struct {
	// Name is empty for anonymous functions.
	Name string
	File string
	// Indent is the column of the opening signature.
	Indent int
	Lines  []string
	// Touched is set when at least one line of the body was added.
	Touched bool
}

// Anonymous reports whether the block has no captured name.
func (b CodeBlock) Anonymous() bool {
	return b.Name == ""
}

// Blocks reconstructs function bodies from the document.
//
// A block opens on a signature line, or at the start of a hunk whose heading
// is a signature. Every following non-removed line is appended until a
// non-blank line returns to the column of the signature. Nested signatures
// belong to the enclosing block; a signature at or left of the open block's
// column closes it and opens the next one. Blocks never span hunks.
func (d *Document) Blocks() []CodeBlock {
	var blocks []CodeBlock
	for _, h := range d.Hunks {
		blocks = append(blocks, hunkBlocks(h)...)
	}
	return blocks
}

func hunkBlocks(h Hunk) []CodeBlock {
	var (
		blocks []CodeBlock
		cur    *CodeBlock
	)
	flush := func() {
		if cur != nil {
			blocks = append(blocks, *cur)
			cur = nil
		}
	}
	open := func(name, text string, sign Sign) {
		cur = &CodeBlock{
			Name:    name,
			File:    h.File,
			Indent:  IndentWidth(text),
			Lines:   []string{text},
			Touched: sign == Added,
		}
	}

	// The heading line sits outside the hunk and its column is lost, so the
	// block takes its column from the first body line.
	headingOpen := false
	if name, ok := Signature(h.Heading); ok {
		open(name, h.Heading, Context)
		headingOpen = true
	}

	for _, l := range h.Lines {
		if l.Sign == Removed {
			continue
		}
		trimmed := strings.TrimSpace(l.Text)
		indent := IndentWidth(l.Text)

		if headingOpen && trimmed != "" {
			headingOpen = false
			if indent == 0 {
				cur = nil
			} else {
				cur.Indent = indent - 1
			}
		}

		if name, ok := Signature(l.Text); ok && (cur == nil || indent <= cur.Indent) {
			flush()
			open(name, l.Text, l.Sign)
			continue
		}
		if cur == nil {
			continue
		}
		if trimmed != "" && indent <= cur.Indent {
			flush()
			continue
		}
		cur.Lines = append(cur.Lines, l.Text)
		if l.Sign == Added {
			cur.Touched = true
		}
	}
	flush()
	return blocks
}
