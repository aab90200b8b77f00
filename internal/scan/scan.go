// Package scan runs the vulnerability scan: select files, chunk them along
// declaration boundaries, split oversized chunks, analyze every piece and
// persist one record per piece before rendering the report.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"vulnviper/internal/analyzer"
	"vulnviper/internal/chunker"
	"vulnviper/internal/chunker/languages"
	"vulnviper/internal/report"
	"vulnviper/internal/store"
	"vulnviper/internal/telemetry"
	"vulnviper/internal/walker"

	"github.com/google/uuid"
)

// Chunker extracts top-level units from a source file.
type Chunker interface {
	Chunk(path string, src []byte) ([]chunker.Chunk, error)
}

// Config describes one scan.
type Config struct {
	Root string
	// ReportPath is where the report is written. Empty skips rendering.
	ReportPath string
	// Budget bounds the estimated size of each analyzed piece. Zero means
	// chunker.DefaultBudget.
	Budget int
	// Provider and Model are recorded in the session for the report.
	Provider string
	Model    string

	OnProgress ProgressFunc
}

// Deps are the collaborators of a Scanner. Analyzer and Store are
// required; the rest have defaults.
type Deps struct {
	Analyzer   analyzer.Analyzer
	Store      store.Store
	Chunker    Chunker
	Estimator  chunker.Estimator
	Strategies []walker.Strategy
	Renderer   report.Renderer
	Logger     *slog.Logger
	Now        func() time.Time
}

// Stats counts what a scan did.
type Stats struct {
	FilesSelected int
	FilesScanned  int
	FilesSkipped  int
	Chunks        int
	SubChunks     int
	Failures      int
	Records       int
}

// Outcome is how a scan ended when it returned no error.
type Outcome int

const (
	// OutcomeNothingToScan: selection found no files. The store is untouched.
	OutcomeNothingToScan Outcome = iota
	// OutcomeNoResults: files were processed but produced no records.
	OutcomeNoResults
	// OutcomeReported: records were written and the report rendered.
	OutcomeReported
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNothingToScan:
		return "nothing to scan"
	case OutcomeNoResults:
		return "no results"
	case OutcomeReported:
		return "reported"
	default:
		return "unknown"
	}
}

// Result is returned by Run, also alongside an error with the partial
// stats gathered so far.
type Result struct {
	Outcome    Outcome
	Stats      Stats
	Strategy   string
	Session    store.Session
	ReportPath string
}

// Scanner orchestrates scans. It is not safe for concurrent use.
type Scanner struct {
	analyzer   analyzer.Analyzer
	store      store.Store
	chunker    Chunker
	estimator  chunker.Estimator
	strategies []walker.Strategy
	renderer   report.Renderer
	logger     *slog.Logger
	now        func() time.Time
}

func pythonRegistry() *chunker.Registry {
	reg := chunker.NewRegistry()
	languages.RegisterPython(reg)
	return reg
}

// NewChunker returns the declaration chunker for Python sources.
func NewChunker() *chunker.ASTChunker {
	return chunker.NewASTChunker(pythonRegistry())
}

// New creates a Scanner, filling unset dependencies with defaults.
func New(deps Deps) (*Scanner, error) {
	if deps.Analyzer == nil {
		return nil, errors.New("scan: analyzer is required")
	}
	if deps.Store == nil {
		return nil, errors.New("scan: store is required")
	}

	s := &Scanner{
		analyzer:   deps.Analyzer,
		store:      deps.Store,
		chunker:    deps.Chunker,
		estimator:  deps.Estimator,
		strategies: deps.Strategies,
		renderer:   deps.Renderer,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.chunker == nil {
		s.chunker = NewChunker()
	}
	if s.estimator == nil {
		s.estimator = chunker.DefaultEstimator()
	}
	if s.strategies == nil {
		s.strategies = walker.DefaultStrategies(pythonRegistry().Extensions())
	}
	if s.renderer == nil {
		s.renderer = report.FileRenderer{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// run holds the state of one Run call.
type run struct {
	cfg        Config
	res        *Result
	records    []store.Record
	filesTotal int
	filesDone  int
}

func (s *Scanner) emit(r *run, phase Phase, file, chunk string) {
	if r.cfg.OnProgress == nil {
		return
	}
	r.cfg.OnProgress(Event{
		Phase:      phase,
		File:       file,
		Chunk:      chunk,
		FilesDone:  r.filesDone,
		FilesTotal: r.filesTotal,
		Stats:      r.res.Stats,
	})
}

// Run scans cfg.Root. Analysis failures never abort the scan; they become
// degraded records. A store failure aborts with a *PersistenceError, and a
// cancelled ctx aborts with its error. In both cases the returned Result
// carries the stats so far and the store keeps the records written so far.
func (s *Scanner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Budget == 0 {
		cfg.Budget = chunker.DefaultBudget
	}
	r := &run{cfg: cfg, res: &Result{}}

	s.emit(r, PhaseSelecting, "", "")
	files, strategy, err := walker.Select(ctx, cfg.Root, s.logger, s.strategies...)
	if err != nil {
		return r.res, err
	}
	r.res.Strategy = strategy
	r.res.Stats.FilesSelected = len(files)
	r.filesTotal = len(files)
	if len(files) == 0 {
		s.logger.Info("no Python files found", "root", cfg.Root)
		r.res.Outcome = OutcomeNothingToScan
		return r.res, nil
	}
	s.logger.Info("files selected", "count", len(files), "strategy", strategy)
	telemetry.AddBreadcrumb(ctx, "scan", fmt.Sprintf("scanning %d files (%s)", len(files), strategy))

	if err := s.store.Init(); err != nil {
		return r.res, s.persistErr(ctx, &PersistenceError{Op: "init", Err: err})
	}
	if err := s.store.Clear(); err != nil {
		return r.res, s.persistErr(ctx, &PersistenceError{Op: "clear", Err: err})
	}

	sess := store.Session{
		ID:        uuid.NewString(),
		Root:      cfg.Root,
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		StartedAt: s.now(),
	}
	if err := store.SaveSession(s.store, sess); err != nil {
		return r.res, s.persistErr(ctx, &PersistenceError{Op: "save session", Err: err})
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return r.res, fmt.Errorf("scan interrupted: %w", err)
		}
		if err := s.scanFile(ctx, r, f); err != nil {
			return r.res, err
		}
		r.filesDone++
	}

	st := r.res.Stats
	sess.FinishedAt = s.now()
	sess.FilesScanned = st.FilesScanned
	sess.FilesSkipped = st.FilesSkipped
	sess.Records = st.Records
	sess.Failures = st.Failures
	if err := store.SaveSession(s.store, sess); err != nil {
		return r.res, s.persistErr(ctx, &PersistenceError{Op: "save session", Err: err})
	}
	r.res.Session = sess

	if len(r.records) == 0 {
		s.logger.Info("scan produced no records")
		r.res.Outcome = OutcomeNoResults
		s.emit(r, PhaseDone, "", "")
		return r.res, nil
	}

	if cfg.ReportPath != "" {
		s.emit(r, PhaseReporting, "", "")
		if err := s.renderer.Render(report.Report{Session: &sess, Records: r.records}, cfg.ReportPath); err != nil {
			return r.res, fmt.Errorf("render report: %w", err)
		}
		r.res.ReportPath = cfg.ReportPath
	}
	r.res.Outcome = OutcomeReported
	s.emit(r, PhaseDone, "", "")
	return r.res, nil
}

// scanFile processes one file. Unreadable and unparsable files are skipped
// with a warning.
func (s *Scanner) scanFile(ctx context.Context, r *run, f walker.FileInfo) error {
	ctx, span := telemetry.StartSpan(ctx, "scan.file", f.RelPath)
	defer span.End()

	stats := &r.res.Stats
	s.emit(r, PhaseParsing, f.RelPath, "")

	src, err := os.ReadFile(f.Path)
	if err != nil {
		s.logger.Warn("skipping unreadable file", "file", f.RelPath, "error", err)
		stats.FilesSkipped++
		return nil
	}

	chunks, err := s.chunker.Chunk(f.RelPath, src)
	if err != nil {
		s.logger.Warn("skipping file that failed to parse", "file", f.RelPath, "error", err)
		stats.FilesSkipped++
		return nil
	}
	if len(chunks) == 0 {
		s.logger.Debug("no grammar for file", "file", f.RelPath)
		stats.FilesSkipped++
		return nil
	}
	stats.FilesScanned++
	span.SetData("chunks", len(chunks))

	for _, c := range chunks {
		stats.Chunks++
		s.emit(r, PhaseSplitting, f.RelPath, c.Name)

		for _, sub := range chunker.Split(c, r.cfg.Budget, s.estimator) {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("scan interrupted: %w", err)
			}

			s.emit(r, PhaseAnalyzing, f.RelPath, sub.Name)
			result := s.analyzer.Analyze(ctx, sub.Text)
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("scan interrupted: %w", err)
			}
			stats.SubChunks++

			rec := newRecord(f.RelPath, sub, result)
			if fail, ok := result.(analyzer.Failure); ok {
				stats.Failures++
				s.logger.Warn("analysis failed", "file", f.RelPath, "chunk", sub.Name,
					"lines", fmt.Sprintf("%d-%d", sub.StartLine, sub.EndLine), "error", fail.Err)
			}

			s.emit(r, PhaseRecording, f.RelPath, sub.Name)
			id, err := s.store.Insert(rec)
			if err != nil {
				perr := &PersistenceError{Op: "insert", File: f.RelPath, Chunk: sub.Name, Err: err}
				span.SetError(perr)
				return s.persistErr(ctx, perr)
			}
			rec.ID = id
			r.records = append(r.records, rec)
			stats.Records++
		}
	}
	return nil
}

// persistErr reports a fatal store error to Sentry. It is the only place
// persistence failures are captured.
func (s *Scanner) persistErr(ctx context.Context, err *PersistenceError) error {
	telemetry.CaptureError(ctx, err)
	return err
}

// newRecord converts an analysis result into the record for sub.
func newRecord(file string, sub chunker.Chunk, result analyzer.Result) store.Record {
	rec := store.Record{
		File:         file,
		ChunkName:    sub.Name,
		ChunkType:    string(sub.Kind),
		StartLine:    sub.StartLine,
		EndLine:      sub.EndLine,
		ParentModule: sub.ParentModule,
	}

	switch v := result.(type) {
	case analyzer.Success:
		rec.Summary = v.Summary
		rec.Vulnerabilities = v.Vulnerabilities
		rec.Recommendations = v.Recommendations
		rec.Dependencies = v.Dependencies
	case analyzer.Failure:
		msg := "unknown error"
		if v.Err != nil {
			msg = v.Err.Error()
		}
		rec.Summary = "Error during analysis: " + msg
		rec.Vulnerabilities = []string{"LLM Error: " + v.RawOutput}
		rec.Recommendations = []string{}
		rec.Dependencies = []string{}
	}
	return rec
}
