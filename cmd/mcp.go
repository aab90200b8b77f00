package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"vulnviper/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing the last scan's findings",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	st, err := openExistingStore(resolveDBPath(wd))
	if err != nil {
		return err
	}
	defer st.Close()

	s := newMCPServer(st)
	return mcpserver.ServeStdio(s)
}

func newMCPServer(st store.Store) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("vulnviper", version, mcpserver.WithToolCapabilities(false))

	s.AddTool(listFindingsTool(), makeListFindingsHandler(st))
	s.AddTool(getFileFindingsTool(), makeFileFindingsHandler(st))
	s.AddTool(getScanSummaryTool(), makeScanSummaryHandler(st))
	return s
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func listFindingsTool() mcp.Tool {
	return mcp.NewTool("list_findings",
		mcp.WithDescription("List the analysis records of the last security scan: file, declaration, line span and the vulnerabilities found."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("file",
			mcp.Description("Optional file path filter (relative to the scanned root)"),
		),
		mcp.WithBoolean("vulnerable_only",
			mcp.Description("Only return records that list at least one vulnerability"),
		),
	)
}

func getFileFindingsTool() mcp.Tool {
	return mcp.NewTool("get_file_findings",
		mcp.WithDescription("Get the full findings (summary, vulnerabilities, recommendations, dependencies) for every declaration of one scanned file."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path as scanned (relative to the scanned root)"),
		),
	)
}

func getScanSummaryTool() mcp.Tool {
	return mcp.NewTool("get_scan_summary",
		mcp.WithDescription("Summarize the last scan: provider, model, counts and the files with the most findings."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

// --- Handler factories ---

func makeListFindingsHandler(st store.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file := req.GetString("file", "")
		vulnerableOnly := req.GetBool("vulnerable_only", false)

		var (
			records []store.Record
			err     error
		)
		if file != "" {
			records, err = st.SelectByFile(file)
		} else {
			records, err = st.SelectAll()
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load findings failed: %v", err)), nil
		}

		var filtered []store.Record
		for _, r := range records {
			if !vulnerableOnly || r.Vulnerable() {
				filtered = append(filtered, r)
			}
		}
		return mcp.NewToolResultText(formatFindingList(filtered, file, vulnerableOnly)), nil
	}
}

func makeFileFindingsHandler(st store.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}

		records, err := st.SelectByFile(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load findings failed: %v", err)), nil
		}
		if len(records) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("file %q not found in the last scan; call list_findings to see scanned files", path)), nil
		}
		return mcp.NewToolResultText(formatFileFindings(path, records)), nil
	}
}

func makeScanSummaryHandler(st store.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess, ok, err := store.LoadSession(st)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load session failed: %v", err)), nil
		}
		files, err := st.ListFiles()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list files failed: %v", err)), nil
		}
		if !ok && len(files) == 0 {
			return mcp.NewToolResultText("No scan results yet. Run 'vulnviper scan' first."), nil
		}
		return mcp.NewToolResultText(formatScanSummary(sess, ok, files)), nil
	}
}

// --- Formatting helpers ---

func formatFindingList(records []store.Record, file string, vulnerableOnly bool) string {
	var sb strings.Builder
	var filters []string
	if file != "" {
		filters = append(filters, "file: "+file)
	}
	if vulnerableOnly {
		filters = append(filters, "vulnerable only")
	}
	if len(filters) > 0 {
		fmt.Fprintf(&sb, "## Findings (%d, %s)\n\n", len(records), strings.Join(filters, ", "))
	} else {
		fmt.Fprintf(&sb, "## Findings (%d)\n\n", len(records))
	}
	if len(records) == 0 {
		sb.WriteString("No matching records.\n")
		return sb.String()
	}

	for _, r := range records {
		fmt.Fprintf(&sb, "- **%s** `%s` (%s, lines %d–%d): ", r.File, r.ChunkName, r.ChunkType, r.StartLine, r.EndLine)
		if r.Vulnerable() {
			fmt.Fprintf(&sb, "%d vulnerabilities: %s\n", len(r.Vulnerabilities), snippet(strings.Join(r.Vulnerabilities, "; "), 160))
		} else {
			sb.WriteString("no vulnerabilities\n")
		}
	}
	return sb.String()
}

func formatFileFindings(path string, records []store.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Findings for `%s` (%d records)\n\n", path, len(records))

	for _, r := range records {
		fmt.Fprintf(&sb, "### %s (%s)\n\n", r.ChunkName, r.ChunkType)
		fmt.Fprintf(&sb, "**Lines:** %d–%d  \n", r.StartLine, r.EndLine)
		if r.ParentModule != "" {
			fmt.Fprintf(&sb, "**Module:** %s  \n", r.ParentModule)
		}
		fmt.Fprintf(&sb, "**Summary:** %s\n\n", r.Summary)
		writeList(&sb, "Vulnerabilities", r.Vulnerabilities)
		writeList(&sb, "Recommendations", r.Recommendations)
		writeList(&sb, "Dependencies", r.Dependencies)
	}
	return sb.String()
}

func formatScanSummary(sess store.Session, hasSession bool, files []store.FileSummary) string {
	var sb strings.Builder
	sb.WriteString("## Last scan\n\n")
	if hasSession {
		fmt.Fprintf(&sb, "**Root:** %s  \n**Provider:** %s (%s)  \n**Started:** %s\n\n",
			sess.Root, sess.Provider, sess.Model, sess.StartedAt.UTC().Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(&sb, "**Files:** %d scanned, %d skipped  \n**Records:** %d (%d analysis failures)\n\n",
			sess.FilesScanned, sess.FilesSkipped, sess.Records, sess.Failures)
	}

	vulnerable := 0
	for _, f := range files {
		vulnerable += f.Vulnerabilities
	}
	fmt.Fprintf(&sb, "**Records with findings:** %d across %d files\n\n", vulnerable, len(files))

	for _, f := range files {
		if f.Vulnerabilities == 0 {
			continue
		}
		fmt.Fprintf(&sb, "- **%s**: %d of %d records with findings\n", f.Path, f.Vulnerabilities, f.Chunks)
	}
	return sb.String()
}

func writeList(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "**%s:**\n", heading)
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
	sb.WriteString("\n")
}

func snippet(s string, n int) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > n {
		s = s[:n] + "..."
	}
	return s
}
