package chunker

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ClassifyFunc inspects a top-level syntax node. It returns the chunk kind,
// the node carrying the declaration's name field, and false when the node is
// not a declaration that should become a chunk.
type ClassifyFunc func(node *sitter.Node) (kind Kind, decl *sitter.Node, ok bool)

// ValidateFunc reports source the grammar accepts but the language does not,
// returning the offending line.
type ValidateFunc func(src []byte) (line int, err error)

// LanguageSpec binds a tree-sitter grammar to the files it parses.
type LanguageSpec struct {
	Name       string
	Language   *sitter.Language
	Classify   ClassifyFunc
	Validate   ValidateFunc // optional
	Extensions []string     // without the dot
}

// Registry maps file extensions to grammars. It is filled once at startup
// and read-only afterwards.
type Registry struct {
	byExt map[string]*LanguageSpec
}

func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]*LanguageSpec)}
}

// Register adds spec under each of its extensions, replacing any earlier
// spec for the same extension.
func (r *Registry) Register(spec *LanguageSpec) {
	for _, ext := range spec.Extensions {
		r.byExt[strings.ToLower(ext)] = spec
	}
}

// Lookup returns the spec for the path's extension, or nil.
func (r *Registry) Lookup(path string) *LanguageSpec {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return r.byExt[ext]
}

// Extensions returns the registered extensions in the form the file
// selectors take.
func (r *Registry) Extensions() map[string]bool {
	exts := make(map[string]bool, len(r.byExt))
	for ext := range r.byExt {
		exts[ext] = true
	}
	return exts
}
