package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vulnviper/internal/analyzer"
	"vulnviper/internal/config"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type setupPage int

const (
	setupPageProvider setupPage = iota
	setupPageModel
	setupPageKey
)

type setupModel struct {
	providers      []string
	providerCursor int
	models         []modelChoice
	modelCursor    int
	loading        bool
	input          textinput.Model
	page           setupPage
	done           bool
	err            error
}

// fetchModelsMsg is sent when the model list for a provider is available.
type fetchModelsMsg struct {
	models []modelChoice
	err    error
}

func fetchModels(provider, ollamaURL string) tea.Cmd {
	return func() tea.Msg {
		models, err := modelChoices(context.Background(), provider, ollamaURL)
		return fetchModelsMsg{models: models, err: err}
	}
}

func newSetupModel(current config.Config) setupModel {
	ti := textinput.New()
	ti.Placeholder = "API key"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 256
	ti.SetValue(current.APIKey)

	m := setupModel{
		providers: analyzer.Providers(),
		input:     ti,
	}
	for i, p := range m.providers {
		if p == current.Provider {
			m.providerCursor = i
		}
	}
	return m
}

func (m setupModel) provider() string {
	return m.providers[m.providerCursor]
}

// typing reports whether keystrokes go to the API key field.
func (m setupModel) typing() bool {
	return m.page == setupPageKey
}

func (m setupModel) Update(msg tea.Msg, cfg Config) (setupModel, tea.Cmd) {
	switch msg := msg.(type) {
	case fetchModelsMsg:
		m.loading = false
		m.err = msg.err
		m.models = msg.models
		m.modelCursor = 0
		for i, c := range m.models {
			if c.name == cfg.Settings.Model {
				m.modelCursor = i
				break
			}
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			m.back()
			return m, nil
		}
		switch m.page {
		case setupPageProvider:
			switch msg.String() {
			case "up", "k":
				if m.providerCursor > 0 {
					m.providerCursor--
				}
			case "down", "j":
				if m.providerCursor < len(m.providers)-1 {
					m.providerCursor++
				}
			case "enter":
				m.page = setupPageModel
				m.loading = true
				m.err = nil
				return m, fetchModels(m.provider(), cfg.Settings.OllamaURL)
			}

		case setupPageModel:
			if m.loading {
				return m, nil
			}
			switch msg.String() {
			case "up", "k":
				if m.modelCursor > 0 {
					m.modelCursor--
				}
			case "down", "j":
				if m.modelCursor < len(m.models)-1 {
					m.modelCursor++
				}
			case "enter":
				if m.provider() == analyzer.ProviderOllama {
					m.done = true
					return m, nil
				}
				m.page = setupPageKey
				m.input.Focus()
				return m, textinput.Blink
			}

		case setupPageKey:
			if msg.Type == tea.KeyEnter {
				if strings.TrimSpace(m.input.Value()) == "" {
					m.err = errors.New("an API key is required for " + m.provider())
					return m, nil
				}
				m.err = nil
				m.done = true
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *setupModel) back() {
	m.err = nil
	m.done = false
	switch m.page {
	case setupPageKey:
		m.input.Blur()
		m.page = setupPageModel
	case setupPageModel:
		m.page = setupPageProvider
	}
}

// selectedModel returns the highlighted model, or the provider default when
// the list is empty.
func (m setupModel) selectedModel() string {
	if len(m.models) > 0 && m.modelCursor < len(m.models) {
		return m.models[m.modelCursor].name
	}
	return analyzer.DefaultModel(m.provider())
}

// apply returns current updated with the selections.
func (m setupModel) apply(current config.Config) config.Config {
	current.Provider = m.provider()
	current.Model = m.selectedModel()
	if current.Provider != analyzer.ProviderOllama {
		current.APIKey = strings.TrimSpace(m.input.Value())
	}
	return current
}

func (m setupModel) View(width, height int) string {
	s := "\n"

	switch m.page {
	case setupPageProvider:
		s += titleStyle.Render("  Select LLM Provider") + "\n"
		s += dimStyle.Render("  Used to review each chunk of code") + "\n\n"
		for i, p := range m.providers {
			s += listLine(i == m.providerCursor, p)
		}
		s += "\n"
		s += helpStyle.Render("  ↑/↓ navigate • Enter select") + "\n"

	case setupPageModel:
		s += titleStyle.Render("  Select Model") + "\n"
		s += dimStyle.Render("  Provider: "+m.provider()) + "\n\n"
		switch {
		case m.loading:
			s += dimStyle.Render("  Fetching models...") + "\n"
			return s
		case m.err != nil:
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
			s += dimStyle.Render("  Press Enter to use "+m.selectedModel()+", or Esc to go back.") + "\n"
			return s
		case len(m.models) == 0:
			s += warnStyle.Render("  No models found.") + "\n"
			s += dimStyle.Render("  Press Enter to use "+m.selectedModel()+", or pull one first: ollama pull "+analyzer.DefaultOllamaModel) + "\n"
			return s
		}
		for i, c := range m.models {
			s += listLine(i == m.modelCursor, c.label())
		}
		s += "\n"
		s += helpStyle.Render("  ↑/↓ navigate • Enter select • Esc back") + "\n"

	case setupPageKey:
		s += titleStyle.Render("  API Key") + "\n"
		s += dimStyle.Render(fmt.Sprintf("  %s / %s", m.provider(), m.selectedModel())) + "\n\n"
		s += "  " + m.input.View() + "\n\n"
		if m.err != nil {
			s += errorStyle.Render("  "+m.err.Error()) + "\n\n"
		}
		s += helpStyle.Render("  Enter save and scan • Esc back") + "\n"
	}

	return s
}

func listLine(selected bool, text string) string {
	if selected {
		return "  ▸ " + selectedStyle.Render(text) + "\n"
	}
	return "    " + listItemStyle.Render(text) + "\n"
}
