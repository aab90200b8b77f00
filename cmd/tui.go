package cmd

import (
	"path/filepath"

	"vulnviper/internal/config"
	"vulnviper/internal/logging"
	"vulnviper/internal/tui"
)

func runTUI() error {
	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file next to the database.
	logPath := filepath.Join(wd, config.DirName, "vulnviper.log")
	logger, f, err := logging.NewFileLogger(logPath, logLevel(cfg))
	if err != nil {
		logger = logging.NewDiscardLogger()
	} else {
		defer f.Close()
	}

	flush := startTelemetry(cfg, logger)
	defer flush()

	return tui.Run(tui.Config{
		Root:       wd,
		DBPath:     resolveDBPath(wd),
		ReportPath: filepath.Join(wd, config.DefaultReportName),
		Settings:   *cfg,
		Logger:     logger,
	})
}
