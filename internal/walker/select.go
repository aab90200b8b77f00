package walker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Strategy produces a candidate file list for a scan root.
type Strategy interface {
	Name() string
	Select(ctx context.Context, root string) ([]FileInfo, error)
}

// SelectionError reports a strategy that failed. Selection degrades to the
// next strategy.
type SelectionError struct {
	Strategy string
	Err      error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("select files (%s): %v", e.Strategy, e.Err)
}

func (e *SelectionError) Unwrap() error { return e.Err }

// DefaultStrategies returns the staged-files strategy followed by the full
// directory walk.
func DefaultStrategies(exts map[string]bool) []Strategy {
	return []Strategy{
		StagedStrategy{Extensions: exts},
		WalkStrategy{Extensions: exts},
	}
}

// Select tries each strategy in order and returns the first non-empty
// result together with the name of the strategy that produced it. A failing
// strategy is logged and skipped. An error is returned only when every
// strategy failed.
func Select(ctx context.Context, root string, logger *slog.Logger, strategies ...Strategy) ([]FileInfo, string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var errs []error
	for _, s := range strategies {
		files, err := s.Select(ctx, root)
		if err != nil {
			serr := &SelectionError{Strategy: s.Name(), Err: err}
			logger.Warn("file selection failed, trying next strategy", "strategy", s.Name(), "error", err)
			errs = append(errs, serr)
			continue
		}
		if len(files) > 0 {
			logger.Debug("files selected", "strategy", s.Name(), "count", len(files))
			return files, s.Name(), nil
		}
	}

	if len(errs) > 0 && len(errs) == len(strategies) {
		return nil, "", errors.Join(errs...)
	}
	return nil, "", nil
}
