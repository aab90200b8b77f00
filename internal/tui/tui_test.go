package tui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"vulnviper/internal/analyzer"
	"vulnviper/internal/config"
	"vulnviper/internal/report"
	"vulnviper/internal/scan"
	"vulnviper/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestSetup_HostedProviderFlow(t *testing.T) {
	cfg := Config{Settings: config.Config{Provider: analyzer.ProviderGemini}}
	m := newSetupModel(cfg.Settings)
	assert.Equal(t, analyzer.ProviderGemini, m.provider())

	m, _ = m.Update(key(tea.KeyUp), cfg)
	assert.Equal(t, analyzer.ProviderOpenAI, m.provider())

	m, cmd := m.Update(key(tea.KeyEnter), cfg)
	require.NotNil(t, cmd)
	assert.Equal(t, setupPageModel, m.page)
	assert.True(t, m.loading)

	msg := cmd()
	m, _ = m.Update(msg, cfg)
	require.False(t, m.loading)
	require.NotEmpty(t, m.models)
	assert.Equal(t, analyzer.DefaultOpenAIModel, m.selectedModel())

	m, _ = m.Update(key(tea.KeyDown), cfg)
	assert.Equal(t, "gpt-4o", m.selectedModel())

	m, _ = m.Update(key(tea.KeyEnter), cfg)
	assert.Equal(t, setupPageKey, m.page)
	assert.True(t, m.typing())

	m, _ = m.Update(key(tea.KeyEnter), cfg)
	assert.Error(t, m.err)
	assert.False(t, m.done)

	m.input.SetValue("sk-test")
	m, _ = m.Update(key(tea.KeyEnter), cfg)
	assert.True(t, m.done)

	got := m.apply(config.Config{Budget: 3000})
	assert.Equal(t, config.Config{Provider: "openai", Model: "gpt-4o", APIKey: "sk-test", Budget: 3000}, got)
}

func TestSetup_OllamaSkipsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[{"name":"nomic-embed-text","size":1000},{"name":"qwen3:8b","size":5368709120},{"name":"llama3","size":4000}]}`))
	}))
	defer srv.Close()

	cfg := Config{Settings: config.Config{Provider: analyzer.ProviderOllama, Model: "llama3", OllamaURL: srv.URL}}
	m := newSetupModel(cfg.Settings)
	m, cmd := m.Update(key(tea.KeyEnter), cfg)
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd(), cfg)

	require.Len(t, m.models, 2)
	assert.Equal(t, "qwen3:8b (5.0 GB)", m.models[0].label())
	assert.Equal(t, "llama3", m.selectedModel())

	m, _ = m.Update(key(tea.KeyEnter), cfg)
	assert.True(t, m.done)
	assert.False(t, m.typing())

	got := m.apply(config.Config{APIKey: "kept"})
	assert.Equal(t, "ollama", got.Provider)
	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "kept", got.APIKey)
}

func TestSetup_FetchErrorFallsBackToDefault(t *testing.T) {
	cfg := Config{Settings: config.Config{Provider: analyzer.ProviderOllama}}
	m := newSetupModel(cfg.Settings)
	m.page = setupPageModel
	m, _ = m.Update(fetchModelsMsg{err: errors.New("connection refused")}, cfg)

	assert.Error(t, m.err)
	assert.Equal(t, analyzer.DefaultOllamaModel, m.selectedModel())
	assert.Contains(t, m.View(80, 24), "connection refused")

	m, _ = m.Update(key(tea.KeyEsc), cfg)
	assert.Equal(t, setupPageProvider, m.page)
	assert.NoError(t, m.err)
}

func TestListModels_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := ListModels(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "500")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 MB", formatSize(512*1024*1024))
	assert.Equal(t, "1.5 GB", formatSize(3*512*1024*1024))
}

func TestCheckStatus_NoDatabase(t *testing.T) {
	cfg := New(Config{DBPath: filepath.Join(t.TempDir(), "missing.db")}).config

	msg := checkStatus(cfg)().(statusMsg)
	assert.ErrorIs(t, msg.configErr, config.ErrNoProvider)
	assert.False(t, msg.hasSession)
	assert.Zero(t, msg.records)
}

func TestCheckStatus_WithLastScan(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.Insert(store.Record{File: "a.py", ChunkName: "a", Vulnerabilities: []string{"eval"}})
	require.NoError(t, err)
	_, err = st.Insert(store.Record{File: "a.py", ChunkName: "b"})
	require.NoError(t, err)
	require.NoError(t, store.SaveSession(st, store.Session{ID: "s1", Provider: "ollama", Model: "qwen3:8b"}))
	require.NoError(t, st.Close())

	cfg := New(Config{DBPath: dbPath, Settings: config.Config{Provider: "ollama", Budget: 100}}).config
	msg := checkStatus(cfg)().(statusMsg)
	assert.NoError(t, msg.configErr)
	assert.True(t, msg.hasSession)
	assert.Equal(t, 2, msg.records)
	assert.Equal(t, 1, msg.vulnerable)

	w, _ := welcomeModel{}.Update(msg)
	view := w.View(80, 24)
	assert.Contains(t, view, "2 records, 1 with findings")
	assert.Contains(t, view, "r view last report")
}

func TestModel_UnconfiguredEnterOpensSetup(t *testing.T) {
	m := New(Config{})
	next, _ := m.Update(statusMsg{configErr: config.ErrNoProvider})
	next, _ = next.Update(key(tea.KeyEnter))
	assert.Equal(t, ViewSetup, next.(Model).state)

	// q is a keystroke while typing the API key.
	mm := next.(Model)
	mm.setup.page = setupPageKey
	mm.setup.input.Focus()
	after, _ := mm.Update(runes("q"))
	assert.Equal(t, ViewSetup, after.(Model).state)
	assert.Equal(t, "q", after.(Model).setup.input.Value())
}

func TestScanningModel_DoneView(t *testing.T) {
	m := newScanningModel()
	m, _ = m.Update(scanProgressMsg{event: scan.Event{Phase: scan.PhaseAnalyzing, File: "a.py", Chunk: "login", FilesDone: 0, FilesTotal: 2}})
	view := m.View(80, 24)
	assert.Contains(t, view, "Analyzing")
	assert.Contains(t, view, "0 / 2 files")
	assert.Contains(t, view, "login")

	m, _ = m.Update(scanDoneMsg{result: &scan.Result{
		Outcome:    scan.OutcomeReported,
		Stats:      scan.Stats{FilesSelected: 2, FilesScanned: 2, Chunks: 3, SubChunks: 4, Records: 4, Failures: 1},
		ReportPath: "vulnviper_audit_report.md",
	}})
	assert.True(t, m.done)
	assert.True(t, m.hasRecords())
	view = m.View(80, 24)
	assert.Contains(t, view, "Scan complete")
	assert.Contains(t, view, "4, 1 analysis failures")
}

func TestReportModel_VulnerableFilter(t *testing.T) {
	m := newReportModel()
	m.initViewport(120, 24)
	m, _ = m.Update(reportLoadedMsg{rep: report.Report{Records: []store.Record{
		{File: "a.py", ChunkName: "safe", Vulnerabilities: []string{}},
		{File: "a.py", ChunkName: "risky", Vulnerabilities: []string{"pickle.loads on input"}},
	}}})
	assert.Len(t, m.visible().Records, 2)

	m, _ = m.Update(runes("v"))
	require.Len(t, m.visible().Records, 1)
	assert.Equal(t, "risky", m.visible().Records[0].ChunkName)
	assert.Contains(t, m.View(120, 24), "with findings")
}
