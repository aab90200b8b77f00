package languages

import (
	"vulnviper/internal/chunker"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// RegisterPython registers the Python grammar. Top-level function, async
// function and class definitions become chunks; a decorated definition spans
// its decorators. Source with broken block indentation is rejected.
func RegisterPython(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:       "python",
		Language:   python.GetLanguage(),
		Classify:   classifyPython,
		Validate:   validatePythonIndentation,
		Extensions: []string{"py"},
	})
}

func classifyPython(node *sitter.Node) (chunker.Kind, *sitter.Node, bool) {
	decl := node
	if node.Type() == "decorated_definition" {
		decl = node.ChildByFieldName("definition")
		if decl == nil {
			return "", nil, false
		}
	}

	switch decl.Type() {
	case "function_definition":
		if decl.ChildCount() > 0 && decl.Child(0).Type() == "async" {
			return chunker.KindAsyncFunction, decl, true
		}
		return chunker.KindFunction, decl, true
	case "class_definition":
		return chunker.KindClass, decl, true
	}
	return "", nil, false
}
