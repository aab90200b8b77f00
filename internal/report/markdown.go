package report

import (
	"fmt"
	"strings"
	"time"
)

// Title heads every Markdown report.
const Title = "# Security Audit Report"

// Markdown renders rep as a Markdown document. Each record becomes one
// section, in the order given.
func Markdown(rep Report) string {
	var b strings.Builder
	para(&b, Title)

	if s := rep.Session; s != nil {
		para(&b, fmt.Sprintf("**Scanned:** `%s` with %s (%s) at %s", s.Root, s.Provider, s.Model, s.StartedAt.UTC().Format(time.RFC3339)))
		para(&b, fmt.Sprintf("**Files:** %d scanned, %d skipped. **Records:** %d, %d analysis failures.",
			s.FilesScanned, s.FilesSkipped, s.Records, s.Failures))
	}

	for _, r := range rep.Records {
		para(&b, fmt.Sprintf("## %s - %s (%s)", r.File, r.ChunkName, r.ChunkType))
		para(&b, fmt.Sprintf("**Lines:** %d–%d", r.StartLine, r.EndLine))
		if r.ParentModule != "" {
			para(&b, fmt.Sprintf("**Module:** `%s`", r.ParentModule))
		}
		para(&b, "**Summary:** "+r.Summary)
		list(&b, "Vulnerabilities", r.Vulnerabilities)
		list(&b, "Recommendations", r.Recommendations)
		if len(r.Dependencies) > 0 {
			list(&b, "Dependencies", r.Dependencies)
		}
		para(&b, "---")
	}
	return b.String()
}

func para(b *strings.Builder, s string) {
	b.WriteString(s)
	b.WriteString("\n\n")
}

func list(b *strings.Builder, heading string, items []string) {
	para(b, "**"+heading+":**")
	if len(items) == 0 {
		para(b, "- None")
		return
	}
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
