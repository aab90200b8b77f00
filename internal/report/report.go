// Package report renders analysis records as Markdown, JSON, YAML or TOML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vulnviper/internal/store"

	"github.com/charmbracelet/glamour"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format selects the report encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatTOML     Format = "toml"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatMarkdown, FormatJSON, FormatYAML, FormatTOML}
}

// ParseFormat accepts a format name or a common alias. The empty string
// yields the empty Format, meaning "choose by file extension".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unknown report format %q (choose one of %v)", s, Formats())
	}
}

// FormatForPath picks a format from the file extension, defaulting to
// Markdown.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatMarkdown
	}
}

// Report is what gets rendered: the records in store order and, when
// known, the session that produced them.
type Report struct {
	Session *store.Session `json:"session,omitempty" yaml:"session,omitempty" toml:"session,omitempty"`
	Records []store.Record `json:"records" yaml:"records" toml:"records"`
}

// Write encodes rep to w in the given format.
func Write(w io.Writer, f Format, rep Report) error {
	if rep.Records == nil {
		rep.Records = []store.Record{}
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		data, err := toml.Marshal(rep)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatMarkdown, "":
		_, err := io.WriteString(w, Markdown(rep))
		return err
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

// WriteFile writes rep to path. An empty format is chosen from the
// extension.
func WriteFile(path string, f Format, rep Report) error {
	if f == "" {
		f = FormatForPath(path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := Write(out, f, rep); err != nil {
		out.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return out.Close()
}

// Renderer writes a finished scan's report to a destination.
type Renderer interface {
	Render(rep Report, path string) error
}

// FileRenderer writes reports to files. An empty Format is chosen from the
// file extension.
type FileRenderer struct {
	Format Format
}

func (r FileRenderer) Render(rep Report, path string) error {
	return WriteFile(path, r.Format, rep)
}

// RenderTerminal renders Markdown for display in a terminal of the given
// width.
func RenderTerminal(markdown string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 4 {
		opts = append(opts, glamour.WithWordWrap(width-2))
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return renderer.Render(markdown)
}
