package tui

import (
	"fmt"
	"strings"

	"vulnviper/internal/report"
	"vulnviper/internal/store"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type reportModel struct {
	viewport       viewport.Model
	renderer       *glamour.TermRenderer
	rep            report.Report
	vulnerableOnly bool
	loaded         bool
	err            error
	width          int
	height         int
	initialized    bool
}

// reportLoadedMsg is sent when the stored records have been read.
type reportLoadedMsg struct {
	rep report.Report
	err error
}

func newReportModel() reportModel {
	return reportModel{}
}

func loadReport(dbPath string) tea.Cmd {
	return func() tea.Msg {
		st, err := store.Open(dbPath)
		if err != nil {
			return reportLoadedMsg{err: err}
		}
		defer st.Close()

		records, err := st.SelectAll()
		if err != nil {
			return reportLoadedMsg{err: err}
		}
		rep := report.Report{Records: records}
		if sess, ok, err := store.LoadSession(st); err == nil && ok {
			rep.Session = &sess
		}
		return reportLoadedMsg{rep: rep}
	}
}

func (m *reportModel) initViewport(width, height int) {
	m.width = width
	m.height = height

	// Layout: viewport + status bar (1 line).
	vpHeight := height - 1
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport = viewport.New(width, vpHeight)

	// Create glamour renderer matched to current width.
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-2, 20)),
	)
	if err == nil {
		m.renderer = r
	}

	m.initialized = true
	m.refresh()
}

// visible returns the report filtered by the current toggle.
func (m reportModel) visible() report.Report {
	if !m.vulnerableOnly {
		return m.rep
	}
	out := report.Report{Session: m.rep.Session}
	for _, r := range m.rep.Records {
		if r.Vulnerable() {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

func (m *reportModel) refresh() {
	switch {
	case m.err != nil:
		m.viewport.SetContent(errorStyle.Render("Error: " + m.err.Error()))
	case !m.loaded:
		m.viewport.SetContent(dimStyle.Render("Loading report..."))
	default:
		m.viewport.SetContent(m.renderMarkdown(report.Markdown(m.visible())))
	}
}

func (m reportModel) renderMarkdown(content string) string {
	if m.renderer == nil {
		return reportTextStyle.Render(content)
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return reportTextStyle.Render(content)
	}
	return strings.TrimRight(rendered, "\n")
}

func (m reportModel) Update(msg tea.Msg) (reportModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.initViewport(msg.Width, msg.Height)
		return m, nil

	case reportLoadedMsg:
		m.loaded = true
		m.rep = msg.rep
		m.err = msg.err
		m.refresh()
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "v" {
			m.vulnerableOnly = !m.vulnerableOnly
			m.refresh()
			m.viewport.GotoTop()
			return m, nil
		}
	}

	// Update viewport (scrolling).
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m reportModel) View(width, height int) string {
	if !m.initialized {
		return ""
	}

	filter := "all records"
	if m.vulnerableOnly {
		filter = "with findings"
	}
	statusBar := statusBarStyle.
		Width(m.width).
		Render(fmt.Sprintf(" vulnviper report • %d shown (%s) • %3.f%% • v toggle • esc back • q quit",
			len(m.visible().Records), filter, m.viewport.ScrollPercent()*100))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		statusBar,
	)
}
