package tui

import (
	"log/slog"

	"vulnviper/internal/config"

	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewSetup
	ViewScanning
	ViewReport
)

// programRef is an indirect pointer to the tea.Program so background goroutines
// can send messages. It must be set after tea.NewProgram returns but before Run.
type programRef struct {
	p *tea.Program
}

func (r *programRef) send(msg tea.Msg) {
	if r != nil && r.p != nil {
		r.p.Send(msg)
	}
}

// Config holds configuration passed from the CLI layer.
type Config struct {
	// Root is the directory scanned and where settings are saved.
	Root       string
	DBPath     string
	ReportPath string
	Settings   config.Config
	Logger     *slog.Logger

	// program is set internally so background goroutines can send messages.
	program *programRef
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int

	welcome  welcomeModel
	setup    setupModel
	scanning scanningModel
	report   reportModel
	err      error
}

// New creates a new TUI model with the given config.
func New(cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return Model{
		state:  ViewWelcome,
		config: cfg,
	}
}

func (m Model) Init() tea.Cmd {
	return checkStatus(m.config)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewReport {
			var c tea.Cmd
			m.report, c = m.report.Update(msg)
			return m, c
		}
		return m, nil

	case tea.KeyMsg:
		// Global quit. q is typed into the API key field during setup.
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state != ViewSetup || !m.setup.typing() {
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewWelcome:
		m.welcome, cmd = m.welcome.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		keyMsg, ok := msg.(tea.KeyMsg)
		if !ok || !m.welcome.ready {
			return m, nil
		}
		switch {
		case keyMsg.Type == tea.KeyEnter && m.welcome.configErr == nil:
			return m, m.startScan()
		case keyMsg.Type == tea.KeyEnter, keyMsg.String() == "s":
			m.state = ViewSetup
			m.setup = newSetupModel(m.config.Settings)
			return m, nil
		case keyMsg.String() == "r" && m.welcome.records > 0:
			return m, m.transitionToReport()
		}

	case ViewSetup:
		m.setup, cmd = m.setup.Update(msg, m.config)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.setup.done {
			settings := m.setup.apply(m.config.Settings)
			if err := settings.Validate(); err != nil {
				m.setup.err = err
				m.setup.done = false
				return m, nil
			}
			if err := settings.Save(m.config.Root); err != nil {
				m.setup.err = err
				m.setup.done = false
				return m, nil
			}
			m.config.Settings = settings
			return m, m.startScan()
		}

	case ViewScanning:
		m.scanning, cmd = m.scanning.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.scanning.done {
			if m.scanning.err == nil && m.scanning.hasRecords() {
				return m, m.transitionToReport()
			}
			m.state = ViewWelcome
			return m, checkStatus(m.config)
		}

	case ViewReport:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			m.state = ViewWelcome
			return m, checkStatus(m.config)
		}
		m.report, cmd = m.report.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) startScan() tea.Cmd {
	m.state = ViewScanning
	m.scanning = newScanningModel()
	return tea.Batch(m.scanning.spinner.Tick, runScan(m.config))
}

func (m *Model) transitionToReport() tea.Cmd {
	m.report = newReportModel()
	m.report.initViewport(m.width, m.height)
	m.state = ViewReport
	return loadReport(m.config.DBPath)
}

func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	switch m.state {
	case ViewWelcome:
		return m.welcome.View(m.width, m.height)
	case ViewSetup:
		return m.setup.View(m.width, m.height)
	case ViewScanning:
		return m.scanning.View(m.width, m.height)
	case ViewReport:
		return m.report.View(m.width, m.height)
	}
	return ""
}

// Run starts the TUI program.
func Run(cfg Config) error {
	ref := &programRef{}
	cfg.program = ref
	model := New(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	ref.p = p
	_, err := p.Run()
	return err
}
