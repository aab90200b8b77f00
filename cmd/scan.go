package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"vulnviper/internal/analyzer"
	"vulnviper/internal/config"
	"vulnviper/internal/report"
	"vulnviper/internal/scan"
	"vulnviper/internal/store"
	"vulnviper/internal/telemetry"

	"github.com/spf13/cobra"
)

var (
	flagDir    string
	flagOut    string
	flagFormat string
	flagBudget int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan Python files for vulnerabilities and write a report",
	Long: `Scan selects the staged Python files of a git repository, or every Python
file under --dir when nothing is staged, splits them into declarations and
asks the configured model to review each one. Results replace the previous
scan in the audit database and are written to --out.

Configuration and the audit database live in .vulnviper/ under the working
directory whatever --dir points at, so 'vulnviper report' and 'vulnviper mcp'
run from the same directory see the results.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}
	if flagBudget != 0 {
		cfg.Budget = flagBudget
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	format, err := report.ParseFormat(flagFormat)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	flush := startTelemetry(cfg, logger)
	defer flush()

	root, err := filepath.Abs(flagDir)
	if err != nil {
		return err
	}

	a, err := analyzer.New(cfg.Analyzer())
	if err != nil {
		return err
	}

	st, err := store.Open(resolveDBPath(wd))
	if err != nil {
		return fmt.Errorf("open audit database: %w", err)
	}
	defer st.Close()

	sc, err := scan.New(scan.Deps{
		Analyzer: a,
		Store:    st,
		Renderer: report.FileRenderer{Format: format},
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning %s with %s (%s)...\n", root, a.Provider(), a.Model())
	start := time.Now()

	res, err := sc.Run(ctx, scan.Config{
		Root:       root,
		ReportPath: flagOut,
		Budget:     cfg.Budget,
		Provider:   a.Provider(),
		Model:      a.Model(),
		OnProgress: func(e scan.Event) {
			if e.Phase == scan.PhaseParsing && !flagQuiet {
				fmt.Fprintf(out, "  [%d/%d] %s\n", e.FilesDone+1, e.FilesTotal, e.File)
			}
		},
	})
	if res != nil {
		printSummary(out, res, time.Since(start))
	}
	if err != nil {
		reportScanError(ctx, err)
		return err
	}
	return nil
}

// reportScanError sends a failed scan to Sentry. Persistence errors were
// already captured by the scanner and interruptions are not failures.
func reportScanError(ctx context.Context, err error) {
	if errors.Is(err, scan.ErrPersistence) || errors.Is(err, context.Canceled) {
		return
	}
	telemetry.CaptureError(ctx, err)
}

func init() {
	scanCmd.Flags().StringVarP(&flagDir, "dir", "d", ".", "directory to scan")
	scanCmd.Flags().StringVarP(&flagOut, "out", "o", config.DefaultReportName, "report file")
	scanCmd.Flags().StringVar(&flagFormat, "format", "", "report format: markdown, json, yaml or toml (default from --out extension)")
	scanCmd.Flags().IntVar(&flagBudget, "budget", 0, "token budget per analyzed chunk (default 3000)")
	rootCmd.AddCommand(scanCmd)
}
