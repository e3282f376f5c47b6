package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/rate-my-mr/internal/diff/difftest"
)

const sampleDiff = `diff --git a/app/views.py b/app/views.py
index abc1234..def5678 100644
--- a/app/views.py
+++ b/app/views.py
@@ -1,3 +1,5 @@ import os
 def index(request):
-    return render(request)
+    if request.user:
+        return render(request)
+    return None
 
diff --git a/logo.png b/logo.png
new file mode 100644
index 0000000..e69de29
Binary files /dev/null and b/logo.png differ
`

func TestParse(t *testing.T) {
	doc, err := Parse(sampleDiff)
	require.NoError(t, err)
	require.Len(t, doc.Hunks, 1)

	h := doc.Hunks[0]
	assert.Equal(t, "app/views.py", h.File)
	assert.Equal(t, "import os", h.Heading)
	assert.Equal(t, []string{"    return render(request)"}, doc.Texts(Removed))
	assert.Equal(t, []string{
		"    if request.user:",
		"        return render(request)",
		"    return None",
	}, doc.Texts(Added))
	assert.False(t, doc.Empty())
	assert.Equal(t, []string{"app/views.py"}, doc.Files())

	for _, l := range doc.Lines() {
		assert.NotContains(t, l.Text, "+++")
		assert.NotContains(t, l.Text, "---")
	}
}

func TestParseEmptyInput(t *testing.T) {
	doc, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, doc.Hunks)
	assert.True(t, doc.Empty())
}

func TestParseUnreadable(t *testing.T) {
	raw := "diff --git a/x.py b/x.py\n--- a/x.py\n+++ b/x.py\n@@ -1,5 +1,5 @@\n+only one line\n"
	_, err := Parse(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestIndentWidth(t *testing.T) {
	assert.Equal(t, 0, IndentWidth("x = 1"))
	assert.Equal(t, 4, IndentWidth("    x = 1"))
	assert.Equal(t, 4, IndentWidth("\tx := 1"))
	assert.Equal(t, 6, IndentWidth("\t  x"))
	assert.Equal(t, 3, IndentWidth("   "))
}

func TestSignature(t *testing.T) {
	tests := []struct {
		text string
		name string
		ok   bool
	}{
		{"def foo(x):", "foo", true},
		{"    async def fetch(self, url):", "fetch", true},
		{"func (s *Server) Start(ctx context.Context) error {", "Start", true},
		{"func Map[T any](in []T) []T {", "Map", true},
		{"export async function load(id) {", "load", true},
		{"function (a, b) {", "", true},
		{"x = foo(1)", "", false},
		{"# def commented():", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, ok := Signature(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestBlocks(t *testing.T) {
	t.Run("single added function", func(t *testing.T) {
		doc, err := Parse(difftest.Added("a.py",
			"def foo(x):",
			"    if x:",
			"        return 1",
			"    return 0",
			"",
			"print(foo(1))",
		))
		require.NoError(t, err)

		blocks := doc.Blocks()
		require.Len(t, blocks, 1)
		assert.Equal(t, "foo", blocks[0].Name)
		assert.True(t, blocks[0].Touched)
		assert.Equal(t, []string{"def foo(x):", "    if x:", "        return 1", "    return 0", ""}, blocks[0].Lines)
	})

	t.Run("sibling definitions split blocks", func(t *testing.T) {
		doc, err := Parse(difftest.Added("a.py",
			"def a():",
			"    return 1",
			"def b():",
			"    return 2",
		))
		require.NoError(t, err)

		blocks := doc.Blocks()
		require.Len(t, blocks, 2)
		assert.Equal(t, "a", blocks[0].Name)
		assert.Equal(t, "b", blocks[1].Name)
	})

	t.Run("nested definition stays in enclosing block", func(t *testing.T) {
		doc, err := Parse(difftest.Added("a.py",
			"def outer():",
			"    def inner():",
			"        return 1",
			"    return inner()",
		))
		require.NoError(t, err)

		blocks := doc.Blocks()
		require.Len(t, blocks, 1)
		assert.Equal(t, "outer", blocks[0].Name)
		assert.Len(t, blocks[0].Lines, 4)
	})

	t.Run("function without added lines is untouched", func(t *testing.T) {
		doc, err := Parse(difftest.File("a.py", difftest.Hunk{Lines: []string{
			" def stable():",
			"-    return 1",
			"     return 2",
			"+x = 3",
		}}))
		require.NoError(t, err)

		blocks := doc.Blocks()
		require.Len(t, blocks, 1)
		assert.False(t, blocks[0].Touched)
	})

	t.Run("hunk heading opens the enclosing function", func(t *testing.T) {
		doc, err := Parse(difftest.File("a.py", difftest.Hunk{
			Heading: "def handler(event):",
			Lines: []string{
				"     value = event.get(\"x\")",
				"+    if value:",
				"+        return value",
				"     return None",
				" ",
				" CONSTANT = 1",
			},
		}))
		require.NoError(t, err)

		blocks := doc.Blocks()
		require.Len(t, blocks, 1)
		assert.Equal(t, "handler", blocks[0].Name)
		assert.True(t, blocks[0].Touched)
		assert.NotContains(t, blocks[0].Lines, "CONSTANT = 1")
	})

	t.Run("anonymous function has no name", func(t *testing.T) {
		doc, err := Parse(difftest.Added("a.js",
			"function (a, b) {",
			"  return a && b;",
			"}",
		))
		require.NoError(t, err)

		blocks := doc.Blocks()
		require.Len(t, blocks, 1)
		assert.True(t, blocks[0].Anonymous())
	})

	t.Run("go function closes on brace", func(t *testing.T) {
		doc, err := Parse(difftest.Added("main.go",
			"func run() error {",
			"\treturn nil",
			"}",
			"",
			"var x = 1",
		))
		require.NoError(t, err)

		blocks := doc.Blocks()
		require.Len(t, blocks, 1)
		assert.Equal(t, []string{"func run() error {", "\treturn nil"}, blocks[0].Lines)
	})
}
