// Package secscan runs a static security analyzer over the code a merge request
// adds. The added lines of a diff are not a valid program on their own, so
// they are first rebuilt into a self-contained compile unit.
package secscan

import (
	"errors"
	"path"
	"regexp"
	"strings"

	"github.com/sevigo/rate-my-mr/internal/diff"
)

var (
	ErrEmptyInput = errors.New("no added lines to scan")
	ErrUnbalanced = errors.New("synthesized source does not balance")
)

const (
	loggerType    = "__ScanLogger__"
	containerType = "__ScanContainer__"
	moduleWrapper = "__scan_unit__"
	methodWrapper = "__scan_method__"
)

var (
	defPattern      = regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`)
	receiverPattern = regexp.MustCompile(`\bself\b`)
	awaitPattern    = regexp.MustCompile(`\bawait\b|^async\s+(?:for|with)\b`)
	starImport      = regexp.MustCompile(`^from\s+[\w.]+\s+import\s+\*$`)
)

var scannedExtensions = map[string]bool{".py": true, ".pyw": true, ".pyi": true}

// Unit is the synthesized source handed to the analyzer.
type Unit struct {
	Source string
	// Definitions counts functions copied from the diff.
	Definitions int
	// LooseStatements counts statements moved into the wrapper functions.
	LooseStatements int
	// Skipped counts definitions dropped because they could not be closed.
	Skipped      int
	Placeholders []string
}

type definition struct {
	indent   int
	lines    []string
	state    lexState
	receiver bool
}

type synthesizer struct {
	defs       []*definition
	loose      []string
	decorators []string
	cur        *definition
	docQuote   string
	skipped    int
}

// Synthesize rebuilds the added Python lines of doc into one compile unit:
// function definitions are copied verbatim, any other line is moved into a
// wrapper function, and code that uses a receiver is placed in a container
// class whose constructor provides a no-op logger.
func Synthesize(doc *diff.Document) (*Unit, error) {
	s := &synthesizer{}
	for _, h := range doc.Hunks {
		if !scannedExtensions[strings.ToLower(path.Ext(h.File))] {
			continue
		}
		for _, l := range h.Lines {
			if l.Sign == diff.Added {
				s.feed(l.Text)
			}
		}
		s.endHunk()
	}
	return s.build()
}

func (s *synthesizer) feed(text string) {
	line := expandIndent(strings.TrimRight(text, " \t"))
	trimmed := strings.TrimSpace(line)

	if s.cur != nil {
		if s.cur.state.open() || trimmed == "" || strings.HasPrefix(trimmed, "#") || diff.IndentWidth(line) > s.cur.indent {
			s.cur.add(line)
			return
		}
		s.closeDef()
	}

	if s.docQuote != "" {
		if strings.Contains(trimmed, s.docQuote) {
			s.docQuote = ""
		}
		return
	}
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return
	}
	if q := docstringQuote(trimmed); q != "" {
		if !strings.Contains(trimmed[len(q):], q) {
			s.docQuote = q
		}
		return
	}
	if defPattern.MatchString(line) {
		s.cur = &definition{indent: diff.IndentWidth(line)}
		for _, d := range s.decorators {
			s.cur.add(strings.Repeat(" ", s.cur.indent) + strings.TrimSpace(d))
		}
		s.decorators = nil
		s.cur.add(line)
		return
	}
	if strings.HasPrefix(trimmed, "@") {
		s.decorators = append(s.decorators, trimmed)
		return
	}
	s.decorators = nil
	s.loose = append(s.loose, line)
}

func (d *definition) add(line string) {
	d.lines = append(d.lines, line)
	d.state.scan(line)
	if receiverPattern.MatchString(line) {
		d.receiver = true
	}
}

func (s *synthesizer) endHunk() {
	s.closeDef()
	s.decorators = nil
	s.docQuote = ""
}

func (s *synthesizer) closeDef() {
	if s.cur == nil {
		return
	}
	d := s.cur
	s.cur = nil
	if d.state.open() || d.state.negative {
		s.skipped++
		return
	}
	s.defs = append(s.defs, d)
}

func docstringQuote(trimmed string) string {
	start := strings.TrimLeft(trimmed, "rRbBuUfF")
	if len(trimmed)-len(start) > 2 {
		return ""
	}
	for _, q := range []string{`"""`, `'''`} {
		if strings.HasPrefix(start, q) {
			return q
		}
	}
	return ""
}

// rebase moves a definition to column zero and repairs its structure. It
// returns false when the signature never ends its header.
func (d *definition) rebase() ([]statement, bool) {
	lines := make([]string, 0, len(d.lines))
	for _, l := range d.lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if diff.IndentWidth(l) >= d.indent {
			lines = append(lines, l[d.indent:])
		} else {
			lines = append(lines, strings.TrimSpace(l))
		}
	}
	stmts, ok := splitStatements(lines)
	if !ok {
		return nil, false
	}
	sig := -1
	for i, st := range stmts {
		if st.keyword() == "def" {
			sig = i
			break
		}
	}
	if sig < 0 {
		return nil, false
	}
	if !stmts[sig].opener() {
		if _, body, ok := splitHeader(stmts[sig].first()); !ok || len(stmts[sig].lines) > 1 || strings.TrimSpace(body) == "" {
			return nil, false
		}
	}
	return repair(stmts), true
}

func (s *synthesizer) build() (*Unit, error) {
	unit := &Unit{Skipped: s.skipped}

	var plain, methods [][]string
	defined := map[string]bool{}
	for _, d := range s.defs {
		stmts, ok := d.rebase()
		if !ok {
			unit.Skipped++
			continue
		}
		for _, st := range stmts {
			if m := defPattern.FindStringSubmatch(st.lines[0]); m != nil && st.indent == 0 {
				defined[m[1]] = true
			}
		}
		unit.Definitions++
		if d.receiver {
			methods = append(methods, render(stmts, 4))
		} else {
			plain = append(plain, render(stmts, 0))
		}
	}

	starImports, looseStmts := s.looseStatements()
	unit.LooseStatements = len(starImports) + len(looseStmts)

	if unit.Definitions == 0 && unit.LooseStatements == 0 {
		if unit.Skipped > 0 {
			return nil, ErrUnbalanced
		}
		return nil, ErrEmptyInput
	}

	var sections [][]string
	if len(starImports) > 0 {
		sections = append(sections, render(starImports, 0))
	}
	sections = append(sections, plain...)

	looseUsesReceiver := false
	for _, st := range looseStmts {
		for _, l := range st.lines {
			if receiverPattern.MatchString(l) {
				looseUsesReceiver = true
			}
		}
	}

	if len(looseStmts) > 0 {
		predefined := map[string]bool{containerType: true, loggerType: true}
		for name := range defined {
			predefined[name] = true
		}
		if looseUsesReceiver {
			predefined["self"] = true
		}
		unit.Placeholders = undefinedNames(looseStmts, predefined)
	}

	if len(methods) > 0 || looseUsesReceiver {
		class := []string{
			"class " + loggerType + ":",
			"    def __getattr__(self, name):",
			"        return lambda *args, **kwargs: None",
			"",
			"",
			"class " + containerType + ":",
			"    def __init__(self):",
			"        self.logger = " + loggerType + "()",
			"        self.log = self.logger",
		}
		for _, m := range methods {
			class = append(class, "")
			class = append(class, m...)
		}
		if looseUsesReceiver {
			class = append(class, "")
			class = append(class, wrapper(methodWrapper, "self", looseStmts, unit.Placeholders, 4)...)
		}
		sections = append(sections, class)
	}
	if len(looseStmts) > 0 && !looseUsesReceiver {
		sections = append(sections, wrapper(moduleWrapper, "", looseStmts, unit.Placeholders, 0))
	}

	var b strings.Builder
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.Join(sec, "\n"))
		b.WriteString("\n")
	}
	unit.Source = b.String()

	if _, ok := splitStatements(strings.Split(unit.Source, "\n")); !ok {
		return nil, ErrUnbalanced
	}
	return unit, nil
}

// looseStatements flattens every loose line to one level and repairs the
// result so that it can form a function body. Star imports are only valid at
// module level and are returned separately.
func (s *synthesizer) looseStatements() ([]statement, []statement) {
	lines := make([]string, 0, len(s.loose))
	for _, l := range s.loose {
		lines = append(lines, strings.TrimSpace(l))
	}
	collected, _ := collectStatements(lines)
	var stars, stmts []statement
	for _, st := range collected {
		st.setIndent(0)
		if len(st.lines) == 1 && starImport.MatchString(st.code) {
			stars = append(stars, st)
			continue
		}
		stmts = append(stmts, st)
	}
	neutralizeControl(stmts)
	return stars, repair(stmts)
}

func wrapper(name, receiver string, body []statement, placeholders []string, indent int) []string {
	prefix := strings.Repeat(" ", indent)
	keyword := "def"
	for _, st := range body {
		if awaitPattern.MatchString(strings.TrimSpace(st.lines[0])) {
			keyword = "async def"
			break
		}
	}
	out := []string{prefix + keyword + " " + name + "(" + receiver + "):"}
	for _, p := range placeholders {
		out = append(out, prefix+"    "+p+" = None")
	}
	out = append(out, render(body, indent+4)...)
	out = append(out, prefix+"    return None")
	return out
}
