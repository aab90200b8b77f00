package tui

import (
	"context"
	"fmt"

	"vulnviper/internal/analyzer"
	"vulnviper/internal/scan"
	"vulnviper/internal/store"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type scanningModel struct {
	spinner spinner.Model
	event   scan.Event
	done    bool
	result  *scan.Result
	err     error
}

func newScanningModel() scanningModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return scanningModel{
		spinner: sp,
		event:   scan.Event{Phase: scan.PhaseSelecting},
	}
}

// scanDoneMsg is sent when the scan completes.
type scanDoneMsg struct {
	result *scan.Result
	err    error
}

// scanProgressMsg carries an orchestrator event.
type scanProgressMsg struct {
	event scan.Event
}

func runScan(cfg Config) tea.Cmd {
	return func() tea.Msg {
		a, err := analyzer.New(cfg.Settings.Analyzer())
		if err != nil {
			return scanDoneMsg{err: err}
		}

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return scanDoneMsg{err: fmt.Errorf("open audit database: %w", err)}
		}
		defer st.Close()

		sc, err := scan.New(scan.Deps{Analyzer: a, Store: st, Logger: cfg.Logger})
		if err != nil {
			return scanDoneMsg{err: err}
		}

		res, err := sc.Run(context.Background(), scan.Config{
			Root:       cfg.Root,
			ReportPath: cfg.ReportPath,
			Budget:     cfg.Settings.Budget,
			Provider:   a.Provider(),
			Model:      a.Model(),
			OnProgress: func(e scan.Event) {
				cfg.program.send(scanProgressMsg{event: e})
			},
		})
		if err != nil {
			cfg.Logger.Error("scan failed", "error", err)
		}
		return scanDoneMsg{result: res, err: err}
	}
}

func (m scanningModel) hasRecords() bool {
	return m.result != nil && m.result.Stats.Records > 0
}

func (m scanningModel) Update(msg tea.Msg) (scanningModel, tea.Cmd) {
	switch msg := msg.(type) {
	case scanDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, nil
	case scanProgressMsg:
		m.event = msg.event
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m scanningModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Scanning") + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			if m.result != nil {
				s += statsView(m.result.Stats)
			}
			s += dimStyle.Render("  Press Enter to go back, or q to quit.") + "\n"
			return s
		}

		switch m.result.Outcome {
		case scan.OutcomeNothingToScan:
			s += warnStyle.Render("  No Python files found to scan.") + "\n\n"
			s += dimStyle.Render("  Press Enter to go back") + "\n"
			return s
		case scan.OutcomeNoResults:
			s += warnStyle.Render("  No results to report.") + "\n\n"
		default:
			s += successStyle.Render("  ✓ Scan complete!") + "\n\n"
		}
		s += statsView(m.result.Stats)
		if m.result.ReportPath != "" {
			s += fmt.Sprintf("  Report: %s\n", m.result.ReportPath)
		}
		s += "\n"
		if m.hasRecords() {
			s += dimStyle.Render("  Press Enter to view the report") + "\n"
		} else {
			s += dimStyle.Render("  Press Enter to go back") + "\n"
		}
		return s
	}

	e := m.event
	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), e.Phase)
	if e.FilesTotal > 0 {
		s += fmt.Sprintf("  %d / %d files", e.FilesDone, e.FilesTotal)
		if e.File != "" {
			s += dimStyle.Render("  " + e.File)
			if e.Chunk != "" {
				s += dimStyle.Render(" · " + e.Chunk)
			}
		}
		s += "\n"
		s += fmt.Sprintf("  %d analyzed, %d failed\n", e.Stats.SubChunks, e.Stats.Failures)
	}
	s += "\n"
	s += dimStyle.Render("  Each chunk is sent to the model; this may take a while...") + "\n"
	return s
}

func statsView(st scan.Stats) string {
	s := fmt.Sprintf("  Files:    %d selected, %d scanned, %d skipped\n", st.FilesSelected, st.FilesScanned, st.FilesSkipped)
	s += fmt.Sprintf("  Chunks:   %d (%d analyzed)\n", st.Chunks, st.SubChunks)
	s += fmt.Sprintf("  Records:  %d, %d analysis failures\n", st.Records, st.Failures)
	return s
}
