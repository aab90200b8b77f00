package chunker

import (
	"path"
	"strings"
)

// Kind classifies a chunk.
type Kind string

const (
	KindFunction      Kind = "Function"
	KindAsyncFunction Kind = "AsyncFunction"
	KindClass         Kind = "Class"
	KindModule        Kind = "Module"
	// KindBlock marks a size-forced sub-split with no syntactic meaning.
	KindBlock Kind = "Block"
)

// Chunk is a contiguous, line-addressed span of one source file. Line numbers
// are 1-based and inclusive. Chunks are values and are never mutated after
// they are produced.
type Chunk struct {
	Name         string
	Kind         Kind
	StartLine    int
	EndLine      int
	Text         string
	ParentModule string
}

// Empty reports whether the chunk is the empty-file marker (StartLine 1,
// EndLine 0, no text).
func (c Chunk) Empty() bool {
	return c.EndLine < c.StartLine
}

// LineCount returns the number of source lines the chunk covers.
func (c Chunk) LineCount() int {
	if c.Empty() {
		return 0
	}
	return c.EndLine - c.StartLine + 1
}

// SplitLines splits source text into lines. A trailing newline does not open
// an extra line and carriage returns before a newline are dropped.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// ModulePath converts a slash-separated relative path into a dotted module
// path: "pkg/sub/mod.py" becomes "pkg.sub.mod" and "pkg/__init__.py" becomes
// "pkg".
func ModulePath(relPath string) string {
	p := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimSuffix(p, path.Ext(p))
	p = strings.TrimSuffix(p, "/__init__")
	if p == "__init__" || p == "." {
		return ""
	}
	return strings.ReplaceAll(p, "/", ".")
}

// moduleName returns the file stem used to name whole-file chunks.
func moduleName(relPath string) string {
	base := path.Base(strings.ReplaceAll(relPath, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
