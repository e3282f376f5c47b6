package secscan

import (
	"regexp"
	"strings"
)

var (
	identPattern     = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	forTargetPattern = regexp.MustCompile(`\bfor\s+(.+?)\s+in\b`)
	lambdaPattern    = regexp.MustCompile(`\blambda\b([^:]*):`)
	walrusPattern    = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*:=`)
	asPattern        = regexp.MustCompile(`\bas\s+([A-Za-z_]\w*)`)
	importPattern    = regexp.MustCompile(`^import\s+(.+)$`)
	fromPattern      = regexp.MustCompile(`^from\s+\S+\s+import\s+(.+)$`)
	scopePattern     = regexp.MustCompile(`^(?:global|nonlocal)\s+(.+)$`)
	namedDefPattern  = regexp.MustCompile(`^(?:async\s+)?(?:def|class)\s+([A-Za-z_]\w*)`)
)

var pythonKeywords = setOf(
	"False", "None", "True", "and", "as", "assert", "async", "await", "break",
	"class", "continue", "def", "del", "elif", "else", "except", "finally", "for",
	"from", "global", "if", "import", "in", "is", "lambda", "nonlocal", "not",
	"or", "pass", "raise", "return", "try", "while", "with", "yield", "match", "case",
)

var pythonBuiltins = setOf(
	"abs", "all", "any", "ascii", "bin", "bool", "breakpoint", "bytearray", "bytes",
	"callable", "chr", "classmethod", "compile", "complex", "delattr", "dict", "dir",
	"divmod", "enumerate", "eval", "exec", "filter", "float", "format", "frozenset",
	"getattr", "globals", "hasattr", "hash", "help", "hex", "id", "input", "int",
	"isinstance", "issubclass", "iter", "len", "list", "locals", "map", "max",
	"memoryview", "min", "next", "object", "oct", "open", "ord", "pow", "print",
	"property", "range", "repr", "reversed", "round", "set", "setattr", "slice",
	"sorted", "staticmethod", "str", "sum", "super", "tuple", "type", "vars", "zip",
	"__import__", "__name__", "__file__", "__doc__", "NotImplemented", "Ellipsis",
	"Exception", "BaseException", "ValueError", "TypeError", "KeyError", "IndexError",
	"AttributeError", "RuntimeError", "NotImplementedError", "OSError", "IOError",
	"StopIteration", "ImportError", "ModuleNotFoundError", "FileNotFoundError",
	"PermissionError", "TimeoutError", "ZeroDivisionError", "AssertionError",
	"LookupError", "ArithmeticError", "UnicodeError", "UnicodeDecodeError",
	"UnicodeEncodeError", "Warning", "DeprecationWarning", "UserWarning",
	"KeyboardInterrupt", "SystemExit", "GeneratorExit", "ConnectionError",
)

func setOf(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// undefinedNames returns, in order of first use, the identifiers the
// statements read before anything in them binds the name.
func undefinedNames(stmts []statement, predefined map[string]bool) []string {
	defined := make(map[string]bool, len(predefined))
	for k := range predefined {
		defined[k] = true
	}
	seen := map[string]bool{}
	var missing []string

	for _, s := range stmts {
		code := stripStrings(strings.Join(s.lines, "\n"))
		code = strings.TrimSpace(code)

		local := map[string]bool{}
		for _, m := range forTargetPattern.FindAllStringSubmatch(code, -1) {
			addNames(local, m[1])
		}
		for _, m := range lambdaPattern.FindAllStringSubmatch(code, -1) {
			addNames(local, m[1])
		}
		for _, m := range walrusPattern.FindAllStringSubmatch(code, -1) {
			local[m[1]] = true
		}

		for _, m := range asPattern.FindAllStringSubmatch(code, -1) {
			local[m[1]] = true
		}

		binds, reads := splitBindings(code)

		for _, name := range reads {
			if local[name] || defined[name] || seen[name] {
				continue
			}
			seen[name] = true
			missing = append(missing, name)
		}
		for _, name := range binds {
			defined[name] = true
		}
		for name := range local {
			defined[name] = true
		}
	}
	return missing
}

// splitBindings returns the names a statement binds and the names it reads.
func splitBindings(code string) ([]string, []string) {
	if m := importPattern.FindStringSubmatch(code); m != nil {
		var binds []string
		for _, part := range strings.Split(m[1], ",") {
			fields := strings.Fields(part)
			switch {
			case len(fields) == 3 && fields[1] == "as":
				binds = append(binds, fields[2])
			case len(fields) >= 1:
				binds = append(binds, strings.Split(fields[0], ".")[0])
			}
		}
		return binds, nil
	}
	if m := fromPattern.FindStringSubmatch(code); m != nil {
		var binds []string
		list := strings.Trim(strings.TrimSpace(m[1]), "()")
		for _, part := range strings.Split(list, ",") {
			fields := strings.Fields(part)
			switch {
			case len(fields) == 3 && fields[1] == "as":
				binds = append(binds, fields[2])
			case len(fields) == 1 && fields[0] != "*":
				binds = append(binds, fields[0])
			}
		}
		return binds, nil
	}
	if m := scopePattern.FindStringSubmatch(code); m != nil {
		return identPattern.FindAllString(m[1], -1), nil
	}
	if m := namedDefPattern.FindStringSubmatch(code); m != nil {
		rest := code[len(m[0]):]
		return []string{m[1]}, readNames(rest)
	}
	if strings.HasPrefix(code, "for ") {
		if m := forTargetPattern.FindStringSubmatch(code); m != nil {
			return identPattern.FindAllString(m[1], -1), readNames(code[len(m[0]):])
		}
	}

	lhs, rhs, augmented, ok := splitAssignment(code)
	if !ok {
		return nil, readNames(code)
	}
	var binds, reads []string
	for _, target := range lhs {
		if target, annotation, found := strings.Cut(target, ":"); found {
			reads = append(reads, readNames(annotation)...)
			b, r := assignmentTargets(target)
			binds = append(binds, b...)
			reads = append(reads, r...)
			continue
		}
		b, r := assignmentTargets(target)
		binds = append(binds, b...)
		reads = append(reads, r...)
	}
	if augmented {
		reads = append(reads, binds...)
	}
	reads = append(readNames(rhs), reads...)
	return binds, reads
}

// splitAssignment splits "a = b = expr" into its targets and the value. It
// also accepts augmented assignments and bare annotations.
func splitAssignment(code string) ([]string, string, bool, bool) {
	var (
		targets   []string
		depth     int
		start     int
		augmented bool
	)
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(code) && code[i+1] == '=' {
				i++
				continue
			}
			var prev byte
			if i > 0 {
				prev = code[i-1]
			}
			end := i
			switch {
			case prev == '=' || prev == '!' || prev == ':':
				continue
			case prev == '<' || prev == '>':
				if i < 2 || code[i-2] != prev {
					continue
				}
				augmented = true
				end = i - 2
			case prev != 0 && strings.ContainsRune("+-*/%&|^@", rune(prev)):
				augmented = true
				end = i - 1
				if (prev == '*' || prev == '/') && end > 0 && code[end-1] == prev {
					end--
				}
			}
			targets = append(targets, strings.TrimSpace(code[start:end]))
			start = i + 1
		}
	}
	if len(targets) == 0 {
		if target, annotation, found := strings.Cut(code, ":"); found && identPattern.FindString(target) == strings.TrimSpace(target) && !strings.HasSuffix(code, ":") {
			return []string{target + ":" + annotation}, "", false, true
		}
		return nil, "", false, false
	}
	return targets, code[start:], augmented, true
}

// assignmentTargets separates plain names being bound from names that are
// only read, such as the object in "obj.attr = 1" or "items[key] = 1".
func assignmentTargets(target string) ([]string, []string) {
	var binds, reads []string
	for _, loc := range identPattern.FindAllStringIndex(target, -1) {
		name := target[loc[0]:loc[1]]
		if !startsIdent(target, loc[0]) || pythonKeywords[name] {
			continue
		}
		if loc[0] > 0 && target[loc[0]-1] == '.' {
			continue
		}
		next := strings.TrimLeft(target[loc[1]:], " ")
		if strings.HasPrefix(next, ".") || strings.HasPrefix(next, "[") || strings.HasPrefix(next, "(") || insideSubscript(target, loc[0]) {
			if !pythonBuiltins[name] {
				reads = append(reads, name)
			}
			continue
		}
		binds = append(binds, name)
	}
	return binds, reads
}

func insideSubscript(s string, pos int) bool {
	depth := 0
	for i := 0; i < pos; i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		}
	}
	return depth > 0
}

// readNames lists the free identifiers of an expression: attribute names,
// keyword arguments, keywords and builtins are skipped.
func readNames(code string) []string {
	var out []string
	for _, loc := range identPattern.FindAllStringIndex(code, -1) {
		name := code[loc[0]:loc[1]]
		if !startsIdent(code, loc[0]) || pythonKeywords[name] || pythonBuiltins[name] {
			continue
		}
		prev := strings.TrimRight(code[:loc[0]], " \t\n")
		if strings.HasSuffix(prev, ".") && !strings.HasSuffix(prev, "..") {
			continue
		}
		next := strings.TrimLeft(code[loc[1]:], " \t")
		if strings.HasPrefix(next, "=") && !strings.HasPrefix(next, "==") && bracketDepth(code, loc[0]) > 0 {
			continue
		}
		out = append(out, name)
	}
	return out
}

func startsIdent(s string, pos int) bool {
	if pos == 0 {
		return true
	}
	c := s[pos-1]
	return !(c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z')
}

func bracketDepth(s string, pos int) int {
	depth := 0
	for i := 0; i < pos; i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
	}
	return depth
}

func addNames(into map[string]bool, list string) {
	for _, loc := range identPattern.FindAllStringIndex(list, -1) {
		if !startsIdent(list, loc[0]) {
			continue
		}
		name := list[loc[0]:loc[1]]
		if !pythonKeywords[name] {
			into[name] = true
		}
	}
}

// stripStrings blanks out string literals, their prefixes and comments so
// that only code identifiers remain.
func stripStrings(src string) string {
	var out strings.Builder
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '"' || c == '\'':
			trimPrefix(&out)
			q := string(c)
			if strings.HasPrefix(src[i:], strings.Repeat(q, 3)) {
				q = strings.Repeat(q, 3)
			}
			j := i + len(q)
			for j < len(src) && !strings.HasPrefix(src[j:], q) {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			out.WriteString(`""`)
			i = min(j+len(q), len(src))
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// trimPrefix drops a string prefix such as f or rb written just before a quote.
func trimPrefix(out *strings.Builder) {
	s := out.String()
	n := len(s)
	k := n
	for k > 0 && k > n-2 && strings.ContainsRune("rRbBuUfF", rune(s[k-1])) {
		k--
	}
	if k == n || !startsIdent(s, k) {
		return
	}
	out.Reset()
	out.WriteString(s[:k])
}
