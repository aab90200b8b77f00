package cmd

import (
	"fmt"
	"os"

	"vulnviper/internal/report"
	"vulnviper/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagReportOut    string
	flagReportFormat string
	flagShow         bool
	flagWidth        int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the results of the last scan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		st, err := openExistingStore(resolveDBPath(wd))
		if err != nil {
			return err
		}
		defer st.Close()

		rep, err := loadReport(st)
		if err != nil {
			return err
		}

		format, err := report.ParseFormat(flagReportFormat)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if flagShow {
			rendered, err := report.RenderTerminal(report.Markdown(rep), flagWidth)
			if err != nil {
				return fmt.Errorf("render report: %w", err)
			}
			fmt.Fprint(out, rendered)
			return nil
		}

		if flagReportOut == "" || flagReportOut == "-" {
			if format == "" {
				format = report.FormatMarkdown
			}
			return report.Write(out, format, rep)
		}
		if err := report.WriteFile(flagReportOut, format, rep); err != nil {
			return err
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ %d records written to %s", len(rep.Records), flagReportOut)))
		return nil
	},
}

// openExistingStore opens the audit database, failing if no scan has
// created it yet.
func openExistingStore(dbPath string) (*store.SQLiteStore, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no scan results at %s\nRun 'vulnviper scan' first", dbPath)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	return st, nil
}

// loadReport reads every record and the last session from st.
func loadReport(st store.Store) (report.Report, error) {
	records, err := st.SelectAll()
	if err != nil {
		return report.Report{}, fmt.Errorf("load records: %w", err)
	}
	rep := report.Report{Records: records}
	sess, ok, err := store.LoadSession(st)
	if err != nil {
		return report.Report{}, fmt.Errorf("load session: %w", err)
	}
	if ok {
		rep.Session = &sess
	}
	return rep, nil
}

func init() {
	reportCmd.Flags().StringVarP(&flagReportOut, "out", "o", "", "write to a file instead of stdout")
	reportCmd.Flags().StringVar(&flagReportFormat, "format", "", "markdown, json, yaml or toml (default from --out extension)")
	reportCmd.Flags().BoolVar(&flagShow, "show", false, "render the Markdown report in the terminal")
	reportCmd.Flags().IntVar(&flagWidth, "width", 100, "wrap width for --show")
	rootCmd.AddCommand(reportCmd)
}
