package secscan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/rate-my-mr/internal/diff"
	"github.com/sevigo/rate-my-mr/internal/diff/difftest"
)

func parse(t *testing.T, raw string) *diff.Document {
	t.Helper()
	doc, err := diff.Parse(raw)
	require.NoError(t, err)
	return doc
}

// assertBalanced checks the structural properties every unit must have.
func assertBalanced(t *testing.T, src string) {
	t.Helper()
	stmts, ok := splitStatements(strings.Split(src, "\n"))
	require.True(t, ok, "source does not balance:\n%s", src)
	for i, s := range stmts {
		if s.opener() {
			require.Less(t, i+1, len(stmts), "opener at end of source:\n%s", src)
			assert.Greater(t, stmts[i+1].indent, s.indent, "empty suite after %q", s.first())
		}
	}
}

func TestSynthesize_DefinitionAndLooseLines(t *testing.T) {
	doc := parse(t, difftest.Added("app/tasks.py",
		"import subprocess",
		"def run(cmd):",
		"    return subprocess.call(cmd, shell=True)",
		"result = run(user_input)",
	))

	unit, err := Synthesize(doc)
	require.NoError(t, err)

	want := "def run(cmd):\n" +
		"    return subprocess.call(cmd, shell=True)\n" +
		"\n\n" +
		"def __scan_unit__():\n" +
		"    user_input = None\n" +
		"    import subprocess\n" +
		"    result = run(user_input)\n" +
		"    return None\n"
	assert.Equal(t, want, unit.Source)
	assert.Equal(t, 1, unit.Definitions)
	assert.Equal(t, 2, unit.LooseStatements)
	assert.Equal(t, []string{"user_input"}, unit.Placeholders)
	assertBalanced(t, unit.Source)
}

func TestSynthesize_ReceiverMethodGoesIntoContainer(t *testing.T) {
	doc := parse(t, difftest.File("app/handler.py", difftest.Hunk{Lines: []string{
		" class Handler:",
		"+    def process(self, data):",
		"+        self.logger.info(\"processing\")",
		"+        return eval(data)",
	}}))

	unit, err := Synthesize(doc)
	require.NoError(t, err)

	assert.Contains(t, unit.Source, "class __ScanContainer__:\n    def __init__(self):\n        self.logger = __ScanLogger__()")
	assert.Contains(t, unit.Source, "\n    def process(self, data):\n        self.logger.info(\"processing\")\n        return eval(data)\n")
	assert.NotContains(t, unit.Source, "__scan_unit__")
	assertBalanced(t, unit.Source)
}

func TestSynthesize_LooseReceiverLinesAndDanglingClause(t *testing.T) {
	doc := parse(t, difftest.Added("app/counter.py",
		"    else:",
		"        self.count += 1",
		"        value = compute(x)",
		"    break",
	))

	unit, err := Synthesize(doc)
	require.NoError(t, err)

	want := "    def __scan_method__(self):\n" +
		"        compute = None\n" +
		"        x = None\n" +
		"        if True:\n" +
		"            pass\n" +
		"        self.count += 1\n" +
		"        value = compute(x)\n" +
		"        pass\n" +
		"        return None\n"
	assert.True(t, strings.HasSuffix(unit.Source, want), unit.Source)
	assert.Equal(t, []string{"compute", "x"}, unit.Placeholders)
	assertBalanced(t, unit.Source)
}

func TestSynthesize_OrphanTryInsideDefinition(t *testing.T) {
	doc := parse(t, difftest.Added("io.py",
		"def load(path):",
		"    try:",
		"        data = open(path).read()",
		"    return data",
	))

	unit, err := Synthesize(doc)
	require.NoError(t, err)

	assert.Equal(t, "def load(path):\n    if True:\n        data = open(path).read()\n    return data\n", unit.Source)
	assertBalanced(t, unit.Source)
}

func TestSynthesize_BlockOpenerWithoutBody(t *testing.T) {
	doc := parse(t, difftest.File("views.py", difftest.Hunk{Lines: []string{
		"+def check(req):",
		"+    if req.user:",
		"     return True",
		"+    for item in req.items:",
	}}))

	unit, err := Synthesize(doc)
	require.NoError(t, err)

	assert.Equal(t, "def check(req):\n    if req.user:\n        pass\n    for item in req.items:\n        pass\n", unit.Source)
	assertBalanced(t, unit.Source)
}

func TestSynthesize_DecoratorsAndDocstrings(t *testing.T) {
	doc := parse(t, difftest.Added("routes.py",
		`"""Module docstring`,
		`spanning lines."""`,
		"@app.route(\"/x\")",
		"def view():",
		`    """Render the view."""`,
		"    return render()",
		"@param unused",
		"LIMIT = 10",
	))

	unit, err := Synthesize(doc)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(unit.Source, "@app.route(\"/x\")\ndef view():\n    \"\"\"Render the view.\"\"\"\n    return render()\n"), unit.Source)
	assert.NotContains(t, unit.Source, "Module docstring")
	assert.NotContains(t, unit.Source, "@param")
	assert.Contains(t, unit.Source, "    LIMIT = 10\n")
	assertBalanced(t, unit.Source)
}

func TestSynthesize_OneLineDefinition(t *testing.T) {
	unit, err := Synthesize(parse(t, difftest.Added("a.py", "def ident(x): return x")))
	require.NoError(t, err)
	assert.Equal(t, "def ident(x): return x\n", unit.Source)
}

func TestSynthesize_AwaitMakesWrapperAsync(t *testing.T) {
	unit, err := Synthesize(parse(t, difftest.Added("a.py", "    data = await client.get(url)")))
	require.NoError(t, err)
	assert.Contains(t, unit.Source, "async def __scan_unit__():")
	assert.Equal(t, []string{"client", "url"}, unit.Placeholders)
}

func TestSynthesize_StarImportsStayAtModuleLevel(t *testing.T) {
	unit, err := Synthesize(parse(t, difftest.Added("a.py",
		"from os.path import *",
		"    from shlex import *  # noqa",
		"value = quote(name)",
	)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(unit.Source, "from os.path import *\nfrom shlex import *  # noqa\n\n\ndef __scan_unit__():\n"), unit.Source)
	assert.NotContains(t, unit.Source, "    from ")
	assert.Contains(t, unit.Source, "    value = quote(name)\n")
	assert.Equal(t, 3, unit.LooseStatements)
	assertBalanced(t, unit.Source)

	unit, err = Synthesize(parse(t, difftest.Added("b.py", "from m import *")))
	require.NoError(t, err)
	assert.Equal(t, "from m import *\n", unit.Source)
}

func TestSynthesize_UnbalancedLooseLinesAreDropped(t *testing.T) {
	unit, err := Synthesize(parse(t, difftest.Added("a.py",
		"    timeout=30)",
		"token = os.environ[\"TOKEN\"]",
		"call(a,",
	)))
	require.NoError(t, err)
	assert.NotContains(t, unit.Source, "timeout")
	assert.Contains(t, unit.Source, "token = os.environ[\"TOKEN\"]")
	assert.NotContains(t, unit.Source, "call(")
	assertBalanced(t, unit.Source)
}

func TestSynthesize_Failures(t *testing.T) {
	t.Run("no added lines", func(t *testing.T) {
		doc := parse(t, difftest.File("a.py", difftest.Hunk{Lines: []string{" x = 1", "-y = 2"}}))
		_, err := Synthesize(doc)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("only non-python files", func(t *testing.T) {
		_, err := Synthesize(parse(t, difftest.Added("main.go", "package main")))
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("only comments", func(t *testing.T) {
		_, err := Synthesize(parse(t, difftest.Added("a.py", "# comment", "")))
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("definition never closes", func(t *testing.T) {
		_, err := Synthesize(parse(t, difftest.Added("a.py", "def f(a,", "      b")))
		assert.ErrorIs(t, err, ErrUnbalanced)
	})
}

func TestUndefinedNames(t *testing.T) {
	stmts, dropped := collectStatements([]string{
		"import os.path as p",
		"from typing import (List, Dict as D)",
		"for item in items:",
		"total = sum(v for v in item.values)",
		"print(f'{name}', sep=sep_char)",
		"config: Settings = load(p)",
		"counter += 1",
		"with open(path) as fh:",
		"handler = lambda evt: evt.data + extra",
		"if (m := pattern.match(text)):",
	})
	require.Zero(t, dropped)

	got := undefinedNames(stmts, map[string]bool{"load": true})
	assert.Equal(t, []string{"items", "sep_char", "Settings", "counter", "path", "extra", "pattern", "text"}, got)
}

func TestStripStrings(t *testing.T) {
	assert.Equal(t, `x = "" + y`, stripStrings(`x = f"{a}" + y`))
	assert.Equal(t, `call("", "")`, stripStrings(`call('a\'b', rb"raw")`))
	assert.Equal(t, `z = 1 `, stripStrings(`z = 1 # note "quoted"`))
	assert.Equal(t, `doc = ""`, stripStrings("doc = \"\"\"multi\nline\"\"\""))
}
