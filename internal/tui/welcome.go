package tui

import (
	"fmt"
	"os"

	"vulnviper/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

type welcomeModel struct {
	configErr  error
	session    store.Session
	hasSession bool
	records    int
	vulnerable int
	ready      bool // true once the check has completed
}

// statusMsg is sent after checking the settings and the last scan.
type statusMsg struct {
	configErr  error
	session    store.Session
	hasSession bool
	records    int
	vulnerable int
}

func checkStatus(cfg Config) tea.Cmd {
	return func() tea.Msg {
		msg := statusMsg{configErr: cfg.Settings.Validate()}

		if _, err := os.Stat(cfg.DBPath); err != nil {
			return msg
		}
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			cfg.Logger.Warn("open audit database", "path", cfg.DBPath, "error", err)
			return msg
		}
		defer st.Close()

		msg.session, msg.hasSession, err = store.LoadSession(st)
		if err != nil {
			cfg.Logger.Warn("load last scan", "error", err)
		}
		files, err := st.ListFiles()
		if err != nil {
			cfg.Logger.Warn("list scanned files", "error", err)
			return msg
		}
		for _, f := range files {
			msg.records += f.Chunks
			msg.vulnerable += f.Vulnerabilities
		}
		return msg
	}
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.configErr = msg.configErr
		m.session = msg.session
		m.hasSession = msg.hasSession
		m.records = msg.records
		m.vulnerable = msg.vulnerable
		m.ready = true
	}
	return m, nil
}

func (m welcomeModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  ◆ VulnViper") + "\n"
	s += subtitleStyle.Render("  LLM-assisted security audit for Python code") + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Checking configuration...") + "\n"
		return s
	}

	if m.configErr != nil {
		s += warnStyle.Render("  ✗ Not configured") + "\n"
		s += dimStyle.Render("    "+m.configErr.Error()) + "\n"
	} else {
		s += successStyle.Render("  ✓ Provider configured") + "\n"
	}

	switch {
	case m.hasSession && m.records > 0:
		line := fmt.Sprintf("  ✓ Last scan: %d records, %d with findings", m.records, m.vulnerable)
		if m.vulnerable > 0 {
			s += findingStyle.Render(line) + "\n"
		} else {
			s += successStyle.Render(line) + "\n"
		}
		s += dimStyle.Render(fmt.Sprintf("    %s via %s (%s)", m.session.StartedAt.Local().Format("2006-01-02 15:04"), m.session.Provider, m.session.Model)) + "\n"
	case m.records > 0:
		s += successStyle.Render(fmt.Sprintf("  ✓ Stored results: %d records", m.records)) + "\n"
	default:
		s += dimStyle.Render("  No previous scan") + "\n"
	}

	s += "\n"
	if m.configErr != nil {
		s += dimStyle.Render("  Press Enter to set up a provider") + "\n"
	} else {
		s += dimStyle.Render("  Press Enter to scan • s settings") + "\n"
	}
	if m.records > 0 {
		s += dimStyle.Render("  r view last report") + "\n"
	}
	s += dimStyle.Render("  q quit") + "\n"
	return s
}
