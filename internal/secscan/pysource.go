package secscan

import (
	"regexp"
	"strings"

	"github.com/sevigo/rate-my-mr/internal/diff"
)

// lexState follows bracket depth and open triple-quoted strings across
// physical lines. It ignores brackets inside strings and comments.
type lexState struct {
	depth  int
	triple string
	// negative is set by a closing bracket without opener or an unterminated
	// string literal.
	negative bool
}

func (st *lexState) open() bool {
	return st.depth > 0 || st.triple != ""
}

// scan consumes one physical line and returns its code with the trailing
// comment removed.
func (st *lexState) scan(line string) string {
	var code strings.Builder
	i := 0
	for i < len(line) {
		if st.triple != "" {
			idx := strings.Index(line[i:], st.triple)
			if idx < 0 {
				code.WriteString(line[i:])
				return code.String()
			}
			code.WriteString(line[i : i+idx+3])
			i += idx + 3
			st.triple = ""
			continue
		}
		c := line[i]
		switch {
		case c == '#':
			return code.String()
		case c == '"' || c == '\'':
			q := strings.Repeat(string(c), 3)
			if strings.HasPrefix(line[i:], q) {
				st.triple = q
				code.WriteString(q)
				i += 3
				continue
			}
			j := i + 1
			for j < len(line) && line[j] != c {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(line) {
				// unterminated single-line string
				st.negative = true
			}
			end := min(j+1, len(line))
			code.WriteString(line[i:end])
			i = end
			continue
		case c == '(' || c == '[' || c == '{':
			st.depth++
		case c == ')' || c == ']' || c == '}':
			st.depth--
			if st.depth < 0 {
				st.negative = true
			}
		}
		code.WriteByte(c)
		i++
	}
	return code.String()
}

// statement is one logical Python line, possibly spanning several physical
// lines through brackets, triple-quoted strings or backslashes.
type statement struct {
	indent int
	lines  []string
	// code is the comment-free, trimmed text of the last physical line.
	code string
}

func (s statement) first() string {
	return strings.TrimSpace(s.lines[0])
}

func (s statement) opener() bool {
	return strings.HasSuffix(s.code, ":")
}

// keyword returns the leading keyword of a compound statement, or "" for
// simple statements.
func (s statement) keyword() string {
	head := s.first()
	head = strings.TrimPrefix(head, "async ")
	for _, kw := range compoundKeywords {
		if head == kw+":" || strings.HasPrefix(head, kw+" ") || strings.HasPrefix(head, kw+":") || strings.HasPrefix(head, kw+"(") {
			return kw
		}
	}
	return ""
}

func (s *statement) setIndent(indent int) {
	s.lines[0] = strings.Repeat(" ", indent) + strings.TrimSpace(s.lines[0])
	if len(s.lines) == 1 {
		s.lines[0] = strings.TrimRight(s.lines[0], " ")
	}
	s.indent = indent
}

func (s *statement) replace(text string) {
	s.lines = []string{strings.Repeat(" ", s.indent) + text}
	var st lexState
	s.code = strings.TrimSpace(st.scan(text))
}

var compoundKeywords = []string{
	"if", "elif", "else", "for", "while", "try", "except", "finally",
	"with", "def", "class", "match", "case",
}

// splitStatements groups physical lines into statements. Blank and
// comment-only lines are dropped. It fails when brackets or strings do not
// balance.
func splitStatements(lines []string) ([]statement, bool) {
	stmts, dropped := collectStatements(lines)
	return stmts, dropped == 0
}

// collectStatements is splitStatements that skips what does not balance. A
// statement with a stray closing bracket is dropped whole; one left open at
// the end loses its first line and the rest is read again.
func collectStatements(lines []string) ([]statement, int) {
	var (
		out     []statement
		pending []string
		st      lexState
		dropped int
	)
	for _, raw := range lines {
		line := expandIndent(strings.TrimRight(raw, " \t"))
		if len(pending) == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
		}
		pending = append(pending, line)
		code := strings.TrimSpace(st.scan(line))
		if st.negative {
			dropped += len(pending)
			pending = nil
			st = lexState{}
			continue
		}
		if st.open() || strings.HasSuffix(code, `\`) {
			continue
		}
		out = append(out, statement{indent: diff.IndentWidth(pending[0]), lines: pending, code: code})
		pending = nil
	}
	if len(pending) > 0 {
		rest, d := collectStatements(pending[1:])
		out = append(out, rest...)
		dropped += 1 + d
	}
	return out, dropped
}

func expandIndent(line string) string {
	n := 0
	for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}
	if !strings.Contains(line[:n], "\t") {
		return line
	}
	return strings.Repeat(" ", diff.IndentWidth(line)) + line[n:]
}

// normalizeIndent makes every statement's indentation legal: a statement may
// only go deeper right after a block opener and may only dedent to a level
// that is still open.
func normalizeIndent(stmts []statement) {
	if len(stmts) == 0 {
		return
	}
	stack := []int{stmts[0].indent}
	for i := 1; i < len(stmts); i++ {
		s := &stmts[i]
		top := stack[len(stack)-1]
		if stmts[i-1].opener() && s.indent > top {
			stack = append(stack, s.indent)
			continue
		}
		for len(stack) > 1 && s.indent < top {
			stack = stack[:len(stack)-1]
			top = stack[len(stack)-1]
		}
		if s.indent != top {
			s.setIndent(top)
		}
	}
}

var (
	elifPattern    = regexp.MustCompile(`^elif\b`)
	barePattern    = regexp.MustCompile(`^(?:else|try|finally)\s*:(.*)$`)
	exceptPattern  = regexp.MustCompile(`^except\b`)
	matchPattern   = regexp.MustCompile(`^(?:match|case)\b.*:$`)
	controlPattern = regexp.MustCompile(`^(?:break|continue|nonlocal\b.*)$`)
)

// repairClauses rewrites clauses whose leading statement did not make it into
// the source, so that "else:" without an "if" becomes "if True:" and so on.
func repairClauses(stmts []statement) {
	last := map[int]string{}
	for i := range stmts {
		s := &stmts[i]
		for k := range last {
			if k > s.indent {
				delete(last, k)
			}
		}
		kw := s.keyword()
		prev := last[s.indent]
		switch kw {
		case "elif":
			if prev != "if" && prev != "elif" {
				s.lines[0] = strings.Repeat(" ", s.indent) + elifPattern.ReplaceAllString(s.first(), "if")
				kw = "if"
			}
		case "else":
			if !oneOf(prev, "if", "elif", "for", "while", "except") {
				rewriteAsIf(s)
				kw = "if"
			}
		case "except":
			if prev != "try" && prev != "except" {
				rewriteAsIf(s)
				kw = "if"
			}
		case "finally":
			if !oneOf(prev, "try", "except", "else") {
				rewriteAsIf(s)
				kw = "if"
			}
		case "match", "case":
			if s.opener() && matchPattern.MatchString(strings.TrimSpace(strings.Join(s.lines, " "))) {
				s.replace("if True:")
				kw = "if"
			}
		}
		if !s.opener() {
			kw = ""
		}
		last[s.indent] = kw
	}

	// A try needs an except or finally at its own level.
	for i := range stmts {
		if stmts[i].keyword() != "try" {
			continue
		}
		ok := false
		for j := i + 1; j < len(stmts); j++ {
			if stmts[j].indent > stmts[i].indent {
				continue
			}
			ok = stmts[j].indent == stmts[i].indent && oneOf(stmts[j].keyword(), "except", "finally")
			break
		}
		if !ok {
			rewriteAsIf(&stmts[i])
		}
	}
}

func rewriteAsIf(s *statement) {
	head := s.first()
	if m := barePattern.FindStringSubmatch(head); m != nil && len(s.lines) == 1 {
		s.replace("if True:" + m[1])
		return
	}
	if exceptPattern.MatchString(head) && len(s.lines) == 1 {
		if _, rest, ok := splitHeader(head); ok {
			s.replace("if True:" + rest)
			return
		}
	}
	s.replace("if True:")
}

// splitHeader splits a single-line compound statement at the colon ending its
// header.
func splitHeader(line string) (string, string, bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ':' && depth == 0:
			return line[:i], line[i+1:], true
		}
	}
	return "", "", false
}

// fillEmptySuites adds "pass" after every opener without a deeper statement.
func fillEmptySuites(stmts []statement) []statement {
	out := make([]statement, 0, len(stmts))
	for i, s := range stmts {
		out = append(out, s)
		if !s.opener() {
			continue
		}
		if i+1 < len(stmts) && stmts[i+1].indent > s.indent {
			continue
		}
		p := statement{indent: s.indent + 4}
		p.replace("pass")
		out = append(out, p)
	}
	return out
}

// neutralizeControl replaces statements that are only legal inside a loop or
// a nested scope.
func neutralizeControl(stmts []statement) {
	for i := range stmts {
		if controlPattern.MatchString(stmts[i].code) && len(stmts[i].lines) == 1 {
			stmts[i].replace("pass")
		}
	}
}

// repair runs every structural fix over stmts.
func repair(stmts []statement) []statement {
	normalizeIndent(stmts)
	repairClauses(stmts)
	return fillEmptySuites(stmts)
}

func render(stmts []statement, indent int) []string {
	prefix := strings.Repeat(" ", indent)
	var out []string
	for _, s := range stmts {
		for _, l := range s.lines {
			if l == "" {
				out = append(out, "")
				continue
			}
			out = append(out, prefix+l)
		}
	}
	return out
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
