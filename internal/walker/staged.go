package walker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// StagedStrategy selects the files staged in the root's git index
// (added, copied or modified). It yields nothing when root is not the top of
// a git work tree.
type StagedStrategy struct {
	Extensions map[string]bool
}

func (StagedStrategy) Name() string { return "staged" }

func (s StagedStrategy) Select(ctx context.Context, root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(absRoot, ".git")); err != nil {
		return nil, nil
	}

	out, err := gitDiff(ctx, absRoot, "--cached", "--name-only", "--diff-filter=ACM")
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	for _, line := range strings.Split(out, "\n") {
		rel := strings.TrimSpace(line)
		if rel == "" {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(rel), ".")
		if !s.Extensions[ext] || excluded(rel) {
			continue
		}
		path := filepath.Join(absRoot, filepath.FromSlash(rel))
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || info.Size() > maxFileSize {
			continue
		}
		files = append(files, FileInfo{Path: path, RelPath: rel, Size: info.Size()})
	}
	return files, nil
}

// gitDiff executes git diff in repoRoot and returns its output.
func gitDiff(ctx context.Context, repoRoot string, args ...string) (string, error) {
	fullArgs := append([]string{"diff"}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	cmd.Dir = repoRoot

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git diff: %w: %s", err, msg)
		}
		return "", fmt.Errorf("git diff: %w", err)
	}
	return string(output), nil
}
