package cmd

import (
	"fmt"
	"io"
	"time"

	"vulnviper/internal/scan"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// printSummary writes the end-of-scan summary.
func printSummary(w io.Writer, res *scan.Result, elapsed time.Duration) {
	st := res.Stats
	switch res.Outcome {
	case scan.OutcomeNothingToScan:
		fmt.Fprintln(w, warnStyle.Render("No Python files found to scan."))
		return
	case scan.OutcomeNoResults:
		fmt.Fprintln(w, warnStyle.Render("No results to report."))
	default:
		fmt.Fprintf(w, "\nDone in %s\n", elapsed.Round(time.Millisecond))
	}

	fmt.Fprintf(w, "  Files:    %d selected (%s), %d scanned, %d skipped\n",
		st.FilesSelected, res.Strategy, st.FilesScanned, st.FilesSkipped)
	fmt.Fprintf(w, "  Chunks:   %d, %d analyzed\n", st.Chunks, st.SubChunks)
	if st.Failures > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("  Failures: %d chunks could not be analyzed", st.Failures)))
	}
	if res.ReportPath != "" {
		fmt.Fprintln(w, successStyle.Render("✓ Report saved to "+res.ReportPath))
	}
}
