package walker

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo holds metadata about a discovered source file.
type FileInfo struct {
	Path    string
	RelPath string
	Size    int64
}

// maxFileSize is the largest file we'll consider (1 MB).
const maxFileSize = 1 << 20

// IgnoreFile is read from the scan root when present. It replaces the
// default directory ignore list.
const IgnoreFile = ".vulnviperignore"

// defaultIgnores are used when no ignore file exists.
var defaultIgnores = []string{
	".git",
	".svn",
	".hg",
	".venv",
	"venv",
	".tox",
	".nox",
	".mypy_cache",
	".pytest_cache",
	".ruff_cache",
	".eggs",
	"node_modules",
	".idea",
	".vscode",
	".vulnviper",
	"dist",
	"build",
}

// alwaysIgnored directories are skipped even when an ignore file replaces
// the defaults.
var alwaysIgnored = map[string]bool{".git": true, ".vulnviper": true}

// excludedSubstrings drop any path that contains them, regardless of the
// ignore list.
var excludedSubstrings = []string{"site-packages", "__pycache__"}

// Walk traverses the directory tree rooted at root and sends discovered
// source files on the returned channel. It only emits files whose extension
// is in allowedExts, and skips directories matching the ignore patterns.
func Walk(ctx context.Context, root string, allowedExts map[string]bool) (<-chan FileInfo, <-chan error) {
	files := make(chan FileInfo, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs <- err
			return
		}
		if _, err := os.Stat(absRoot); err != nil {
			errs <- err
			return
		}

		ignores := loadIgnorePatterns(absRoot)

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip errors, keep walking
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			rel, _ := filepath.Rel(absRoot, path)
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if path == absRoot {
					return nil
				}
				if alwaysIgnored[d.Name()] || matchesIgnore(d.Name(), rel, ignores) || excluded(rel) {
					return filepath.SkipDir
				}
				return nil
			}

			// Skip symlinks.
			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}

			ext := strings.TrimPrefix(filepath.Ext(path), ".")
			if !allowedExts[ext] || excluded(rel) {
				return nil
			}

			info, err := d.Info()
			if err != nil || info.Size() > maxFileSize {
				return nil
			}

			select {
			case files <- FileInfo{Path: path, RelPath: rel, Size: info.Size()}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return files, errs
}

// WalkStrategy selects every matching file under the root, sorted by
// relative path.
type WalkStrategy struct {
	Extensions map[string]bool
}

func (WalkStrategy) Name() string { return "walk" }

func (w WalkStrategy) Select(ctx context.Context, root string) ([]FileInfo, error) {
	fileCh, errCh := Walk(ctx, root, w.Extensions)
	var out []FileInfo
	for fi := range fileCh {
		out = append(out, fi)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out, nil
}

// loadIgnorePatterns reads the ignore file from the project root, falling
// back to the defaults.
func loadIgnorePatterns(root string) []string {
	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if err != nil {
		return defaultIgnores
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, strings.TrimSuffix(line, "/"))
	}
	if len(patterns) == 0 {
		return defaultIgnores
	}
	return patterns
}

// matchesIgnore checks if a directory name or relative path matches any ignore pattern.
func matchesIgnore(name, relPath string, patterns []string) bool {
	for _, p := range patterns {
		// Exact directory name match (e.g. "node_modules", ".git").
		if name == p {
			return true
		}
		// Path prefix match (e.g. "third_party/vendor").
		if relPath == p || strings.HasPrefix(relPath, p+"/") {
			return true
		}
		if matched, _ := filepath.Match(p, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
	}
	return false
}

func excluded(relPath string) bool {
	for _, s := range excludedSubstrings {
		if strings.Contains(relPath, s) {
			return true
		}
	}
	return false
}
