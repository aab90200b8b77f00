package chunker_test

import (
	"errors"
	"testing"

	"vulnviper/internal/chunker"
	"vulnviper/internal/chunker/languages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPythonChunker() *chunker.ASTChunker {
	reg := chunker.NewRegistry()
	languages.RegisterPython(reg)
	return chunker.NewASTChunker(reg)
}

const declarations = `import os


def a():
    x = 1
    return x


async def fetch(url):
    return await get(url)


class Handler:
    def inner(self):
        def nested():
            pass
        return nested


@decorator
@other(arg=1)
def decorated():
    pass
`

func TestChunk_TopLevelDeclarations(t *testing.T) {
	c := newPythonChunker()

	chunks, err := c.Chunk("pkg/service.py", []byte(declarations))
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Equal(t, "a", chunks[0].Name)
	assert.Equal(t, chunker.KindFunction, chunks[0].Kind)
	assert.Equal(t, 4, chunks[0].StartLine)
	assert.Equal(t, 6, chunks[0].EndLine)
	assert.Equal(t, "def a():\n    x = 1\n    return x", chunks[0].Text)

	assert.Equal(t, "fetch", chunks[1].Name)
	assert.Equal(t, chunker.KindAsyncFunction, chunks[1].Kind)
	assert.Equal(t, 9, chunks[1].StartLine)
	assert.Equal(t, 10, chunks[1].EndLine)

	assert.Equal(t, "Handler", chunks[2].Name)
	assert.Equal(t, chunker.KindClass, chunks[2].Kind)
	assert.Equal(t, 13, chunks[2].StartLine)
	assert.Equal(t, 17, chunks[2].EndLine)
	assert.Contains(t, chunks[2].Text, "def nested():")

	assert.Equal(t, "decorated", chunks[3].Name)
	assert.Equal(t, chunker.KindFunction, chunks[3].Kind)
	assert.Equal(t, 20, chunks[3].StartLine, "decorators belong to the declaration")
	assert.Equal(t, 23, chunks[3].EndLine)

	for _, ch := range chunks {
		assert.Equal(t, "pkg.service", ch.ParentModule)
	}
}

func TestChunk_NestedDeclarationsAreNotEmitted(t *testing.T) {
	c := newPythonChunker()

	chunks, err := c.Chunk("service.py", []byte(declarations))
	require.NoError(t, err)

	for _, ch := range chunks {
		assert.NotEqual(t, "inner", ch.Name)
		assert.NotEqual(t, "nested", ch.Name)
	}
}

func TestChunk_ModuleFallback(t *testing.T) {
	c := newPythonChunker()
	src := "import os\n\nprint(os.getcwd())\nvalue = 42\n"

	chunks, err := c.Chunk("scripts/run_me.py", []byte(src))
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	ch := chunks[0]
	assert.Equal(t, "run_me", ch.Name)
	assert.Equal(t, chunker.KindModule, ch.Kind)
	assert.Equal(t, 1, ch.StartLine)
	assert.Equal(t, 4, ch.EndLine)
	assert.Equal(t, "import os\n\nprint(os.getcwd())\nvalue = 42", ch.Text)
	assert.Empty(t, ch.ParentModule)
}

func TestChunk_CommentOnlyFile(t *testing.T) {
	c := newPythonChunker()

	chunks, err := c.Chunk("notes.py", []byte("# just a note\n# and another\n"))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, chunker.KindModule, chunks[0].Kind)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
}

func TestChunk_EmptyFile(t *testing.T) {
	c := newPythonChunker()

	chunks, err := c.Chunk("empty.py", []byte{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	ch := chunks[0]
	assert.Equal(t, chunker.KindModule, ch.Kind)
	assert.Equal(t, 1, ch.StartLine)
	assert.Equal(t, 0, ch.EndLine)
	assert.True(t, ch.Empty())
	assert.Zero(t, ch.LineCount())
	assert.Empty(t, ch.Text)
}

func TestChunk_ParseError(t *testing.T) {
	c := newPythonChunker()
	src := "def ok():\n    return 1\n\ndef broken(:\n    pass\n"

	chunks, err := c.Chunk("bad.py", []byte(src))
	require.Error(t, err)
	assert.Nil(t, chunks)
	assert.True(t, errors.Is(err, chunker.ErrParse))

	var perr *chunker.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad.py", perr.Path)
	assert.Greater(t, perr.Line, 0)
}

func TestChunk_IndentationErrors(t *testing.T) {
	c := newPythonChunker()
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"body not indented", "def f():\nreturn 1\n", 2},
		{"inconsistent dedent", "def f():\n  if x:\n      a\n    b\n", 4},
		{"unexpected indent", "x = 1\n    y = 2\n", 0},
		{"class body missing", "class A:\n\n# comment\nx = 1\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := c.Chunk("m.py", []byte(tt.src))
			require.Error(t, err)
			assert.Nil(t, chunks)
			assert.True(t, errors.Is(err, chunker.ErrParse))

			var perr *chunker.ParseError
			require.True(t, errors.As(err, &perr))
			if tt.line > 0 {
				assert.Equal(t, tt.line, perr.Line)
			}
		})
	}
}

const wellIndented = `import os

CONFIG = {
  "a": 1,
    "b": [1,
  2],
}

def f(a,
        b):
    """Docstring
with a line at column zero:
    """
    s = 'x:' + "y#"  # trailing comment:
    if a: return b
    total = a + \
  b
      # deeper comment
    return total

class A: pass
`

func TestChunk_ValidIndentationAccepted(t *testing.T) {
	c := newPythonChunker()

	chunks, err := c.Chunk("ok.py", []byte(wellIndented))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "f", chunks[0].Name)
	assert.Equal(t, "A", chunks[1].Name)
}

func TestChunk_UnsupportedExtension(t *testing.T) {
	c := newPythonChunker()

	assert.False(t, c.Supports("main.go"))
	assert.True(t, c.Supports("pkg/Main.PY"))

	chunks, err := c.Chunk("main.go", []byte("package main\n"))
	assert.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestChunk_Deterministic(t *testing.T) {
	c := newPythonChunker()

	first, err := c.Chunk("service.py", []byte(declarations))
	require.NoError(t, err)
	second, err := c.Chunk("service.py", []byte(declarations))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestChunk_CRLF(t *testing.T) {
	c := newPythonChunker()
	src := "def a():\r\n    return 1\r\n"

	chunks, err := c.Chunk("win.py", []byte(src))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "def a():\n    return 1", chunks[0].Text)
}

func TestModulePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"app.py", "app"},
		{"pkg/sub/mod.py", "pkg.sub.mod"},
		{"pkg/__init__.py", "pkg"},
		{"__init__.py", ""},
		{"./tools/cli.py", "tools.cli"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, chunker.ModulePath(tt.in))
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, chunker.SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, chunker.SplitLines("a\nb\n"))
	assert.Equal(t, []string{"a", "b"}, chunker.SplitLines("a\nb"))
	assert.Equal(t, []string{"a", ""}, chunker.SplitLines("a\n\n"))
	assert.Equal(t, []string{""}, chunker.SplitLines("\n"))
}

func TestRegistry_Extensions(t *testing.T) {
	reg := chunker.NewRegistry()
	languages.RegisterPython(reg)

	assert.Equal(t, map[string]bool{"py": true}, reg.Extensions())
	require.NotNil(t, reg.Lookup("a/b.py"))
	assert.Equal(t, "python", reg.Lookup("a/b.py").Name)
	assert.Nil(t, reg.Lookup("README"))
}
