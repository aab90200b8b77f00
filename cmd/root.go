package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"vulnviper/internal/config"
	"vulnviper/internal/logging"
	"vulnviper/internal/telemetry"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X vulnviper/cmd.version=...".
var version = "dev"

var (
	flagDB      string
	flagVerbose int
	flagQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:           "vulnviper",
	Short:         "LLM-assisted security audit for Python codebases",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "audit database path (default ./.vulnviper/audit.db)")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "log more (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress log output")
}

// loadConfig reads the configuration for the working directory.
func loadConfig() (*config.Config, string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(wd)
	if err != nil {
		return nil, "", fmt.Errorf("configuration error: %w", err)
	}
	return cfg, wd, nil
}

// logLevel resolves -v/-q, falling back to the configured level.
func logLevel(cfg *config.Config) slog.Level {
	if flagVerbose == 0 && !flagQuiet && cfg != nil && cfg.LogLevel != "" {
		return logging.LevelFromString(cfg.LogLevel)
	}
	return logging.LevelFromVerbosity(flagVerbose, flagQuiet)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.NewLogger(os.Stderr, logLevel(cfg))
}

// resolveDBPath returns --db or the default database under dir. Every
// command passes the working directory.
func resolveDBPath(dir string) string {
	if flagDB != "" {
		return flagDB
	}
	return config.DefaultDBPath(dir)
}

// startTelemetry enables Sentry when a DSN is configured and returns the
// flush function.
func startTelemetry(cfg *config.Config, logger *slog.Logger) func() {
	flush, err := telemetry.Init(telemetry.Config{DSN: cfg.SentryDSN, Release: "vulnviper@" + version}, logger)
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
		return func() {}
	}
	return flush
}
