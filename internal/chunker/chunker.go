package chunker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrParse matches every *ParseError via errors.Is.
var ErrParse = errors.New("malformed source")

// ParseError reports a file the grammar could not parse cleanly. The file is
// skipped; it never aborts a scan.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ASTChunker parses source files using tree-sitter and emits one chunk per
// top-level declaration.
type ASTChunker struct {
	registry *Registry
}

// NewASTChunker creates a chunker backed by the given registry.
func NewASTChunker(r *Registry) *ASTChunker {
	return &ASTChunker{registry: r}
}

// Supports reports whether a grammar is registered for the path.
func (c *ASTChunker) Supports(path string) bool {
	return c.registry.Lookup(path) != nil
}

// Chunk parses the source and returns its top-level declarations in source
// order. Nested declarations stay inside their parent. A file without
// declarations yields a single Module chunk spanning the whole file. If no
// grammar is registered for the file, it returns nil.
func (c *ASTChunker) Chunk(path string, src []byte) ([]Chunk, error) {
	spec := c.registry.Lookup(path)
	if spec == nil {
		return nil, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("%s parser: %w", spec.Name, err)}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, &ParseError{
			Path: path,
			Line: firstErrorLine(root),
			Err:  fmt.Errorf("invalid %s syntax", spec.Name),
		}
	}
	if spec.Validate != nil {
		if line, err := spec.Validate(src); err != nil {
			return nil, &ParseError{Path: path, Line: line, Err: err}
		}
	}

	lines := SplitLines(string(src))
	module := ModulePath(path)

	var chunks []Chunk
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		kind, decl, ok := spec.Classify(node)
		if !ok {
			continue
		}
		start := int(node.StartPoint().Row) + 1
		end := endLine(node, start, len(lines))

		var name string
		if n := decl.ChildByFieldName("name"); n != nil {
			name = n.Content(src)
		}
		chunks = append(chunks, Chunk{
			Name:         name,
			Kind:         kind,
			StartLine:    start,
			EndLine:      end,
			Text:         joinLines(lines, start, end),
			ParentModule: module,
		})
	}

	if len(chunks) == 0 {
		chunks = append(chunks, Chunk{
			Name:      moduleName(path),
			Kind:      KindModule,
			StartLine: 1,
			EndLine:   len(lines),
			Text:      strings.Join(lines, "\n"),
		})
	}
	return chunks, nil
}

// endLine returns the last line of a node. A node whose end point sits at
// column 0 of a later row does not own that row. When the parser's end point
// cannot be mapped onto the file, the declaration collapses to its first line.
func endLine(node *sitter.Node, start, total int) int {
	ep := node.EndPoint()
	end := int(ep.Row) + 1
	if ep.Column == 0 && end > start {
		end--
	}
	if end < start || end > total {
		return start
	}
	return end
}

func joinLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if end < start {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// firstErrorLine returns the 1-based line of the first ERROR or MISSING node.
func firstErrorLine(n *sitter.Node) int {
	if n.Type() == "ERROR" || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || (!child.HasError() && !child.IsMissing()) {
			continue
		}
		if line := firstErrorLine(child); line > 0 {
			return line
		}
	}
	return 0
}
