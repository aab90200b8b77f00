package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vulnviper/internal/analyzer"
	"vulnviper/internal/config"
	"vulnviper/internal/scan"
	"vulnviper/internal/store"
	"vulnviper/internal/telemetry/telemetrytest"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetInitFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagInitAPIKey, flagInitProvider, flagInitModel = "", "", ""
	})
}

func TestRunInit_Prompts(t *testing.T) {
	resetInitFlags(t)
	cfg := &config.Config{}
	in := strings.NewReader("gemini\n\nsk-secret-1234\n")
	var out bytes.Buffer

	require.NoError(t, runInit(in, &out, cfg))
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, analyzer.DefaultGeminiModel, cfg.Model)
	assert.Equal(t, "sk-secret-1234", cfg.APIKey)
	assert.Contains(t, out.String(), "LLM provider (openai, gemini, ollama) [openai]: ")
	assert.Contains(t, out.String(), "Model [gemini-2.5-flash]: ")
}

func TestRunInit_KeepsExistingValues(t *testing.T) {
	resetInitFlags(t)
	cfg := &config.Config{Provider: "openai", Model: "gpt-4o", APIKey: "sk-existing-9876"}
	var out bytes.Buffer

	require.NoError(t, runInit(strings.NewReader("\n\n\n"), &out, cfg))
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "sk-existing-9876", cfg.APIKey)
	assert.Contains(t, out.String(), "API key [************9876]: ")
}

func TestRunInit_FlagsSkipPrompts(t *testing.T) {
	resetInitFlags(t)
	flagInitProvider = "ollama"
	flagInitModel = "llama3"
	cfg := &config.Config{}
	var out bytes.Buffer

	require.NoError(t, runInit(strings.NewReader(""), &out, cfg))
	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, "llama3", cfg.Model)
	assert.Empty(t, out.String())
}

func TestRunInit_Invalid(t *testing.T) {
	resetInitFlags(t)

	err := runInit(strings.NewReader("claude\n\nkey\n"), &bytes.Buffer{}, &config.Config{})
	assert.ErrorIs(t, err, analyzer.ErrUnknownProvider)

	err = runInit(strings.NewReader("openai\n\n\n"), &bytes.Buffer{}, &config.Config{})
	assert.ErrorIs(t, err, config.ErrNoAPIKey)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "**cdef", mask("abcdef"))
}

func seedStore(t *testing.T, dbPath string) *store.SQLiteStore {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	records := []store.Record{
		{File: "app/db.py", ChunkName: "query", ChunkType: "Function", StartLine: 3, EndLine: 9,
			Summary: "Builds SQL.", Vulnerabilities: []string{"SQL injection"}, Recommendations: []string{"Use placeholders"},
			Dependencies: []string{"sqlite3"}, ParentModule: "app.db"},
		{File: "app/db.py", ChunkName: "close", ChunkType: "Function", StartLine: 11, EndLine: 12, Summary: "ok"},
		{File: "app/util.py", ChunkName: "util", ChunkType: "Module", StartLine: 1, EndLine: 4, Summary: "ok"},
	}
	for _, r := range records {
		_, err := st.Insert(r)
		require.NoError(t, err)
	}
	require.NoError(t, store.SaveSession(st, store.Session{
		ID: "s1", Root: "/src", Provider: "openai", Model: "gpt-4o-mini",
		StartedAt: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), FilesScanned: 2, Records: 3,
	}))
	return st
}

func callTool(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestMCP_ListFindings(t *testing.T) {
	st := seedStore(t, filepath.Join(t.TempDir(), "audit.db"))
	h := makeListFindingsHandler(st)

	text, isErr := callTool(t, h, map[string]any{})
	assert.False(t, isErr)
	assert.Contains(t, text, "## Findings (3)")
	assert.Contains(t, text, "**app/db.py** `query` (Function, lines 3–9): 1 vulnerabilities: SQL injection")
	assert.Contains(t, text, "`close` (Function, lines 11–12): no vulnerabilities")

	text, _ = callTool(t, h, map[string]any{"vulnerable_only": true})
	assert.Contains(t, text, "## Findings (1, vulnerable only)")
	assert.NotContains(t, text, "close")

	text, _ = callTool(t, h, map[string]any{"file": "app/util.py"})
	assert.Contains(t, text, "## Findings (1, file: app/util.py)")
	assert.Contains(t, text, "`util`")

	text, _ = callTool(t, h, map[string]any{"file": "nope.py"})
	assert.Contains(t, text, "No matching records.")
}

func TestMCP_GetFileFindings(t *testing.T) {
	st := seedStore(t, filepath.Join(t.TempDir(), "audit.db"))
	h := makeFileFindingsHandler(st)

	text, isErr := callTool(t, h, map[string]any{"path": "app/db.py"})
	assert.False(t, isErr)
	assert.Contains(t, text, "## Findings for `app/db.py` (2 records)")
	assert.Contains(t, text, "### query (Function)")
	assert.Contains(t, text, "**Module:** app.db")
	assert.Contains(t, text, "**Recommendations:**\n- Use placeholders")
	assert.Contains(t, text, "**Dependencies:**\n- sqlite3")

	_, isErr = callTool(t, h, map[string]any{"path": "missing.py"})
	assert.True(t, isErr)

	_, isErr = callTool(t, h, map[string]any{})
	assert.True(t, isErr)
}

func TestMCP_ScanSummary(t *testing.T) {
	empty, err := store.Open(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer empty.Close()
	text, _ := callTool(t, makeScanSummaryHandler(empty), nil)
	assert.Contains(t, text, "No scan results yet")

	st := seedStore(t, filepath.Join(t.TempDir(), "audit.db"))
	text, isErr := callTool(t, makeScanSummaryHandler(st), nil)
	assert.False(t, isErr)
	assert.Contains(t, text, "**Provider:** openai (gpt-4o-mini)")
	assert.Contains(t, text, "**Records with findings:** 1 across 2 files")
	assert.Contains(t, text, "- **app/db.py**: 1 of 2 records with findings")
	assert.NotContains(t, text, "app/util.py")
}

func TestNewMCPServer(t *testing.T) {
	st := seedStore(t, filepath.Join(t.TempDir(), "audit.db"))
	assert.NotNil(t, newMCPServer(st))
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		flagReportOut, flagReportFormat, flagShow = "", "", false
		flagDir, flagOut, flagFormat, flagBudget = ".", config.DefaultReportName, "", 0
		flagQuiet, flagVerbose = false, 0
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReportCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	seedStore(t, config.DefaultDBPath(dir))

	out, err := executeRoot(t, "report", "--format", "json")
	require.NoError(t, err)

	var rep struct {
		Session *store.Session `json:"session"`
		Records []store.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Records, 3)
	require.NotNil(t, rep.Session)
	assert.Equal(t, "s1", rep.Session.ID)
}

func TestReportCommand_NoDatabase(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := executeRoot(t, "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Run 'vulnviper scan' first")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &scan.Result{Outcome: scan.OutcomeNothingToScan}, 0)
	assert.Contains(t, buf.String(), "No Python files found to scan.")

	buf.Reset()
	printSummary(&buf, &scan.Result{
		Outcome:    scan.OutcomeReported,
		Strategy:   "walk",
		Stats:      scan.Stats{FilesSelected: 3, FilesScanned: 2, FilesSkipped: 1, Chunks: 5, SubChunks: 6, Failures: 2, Records: 6},
		ReportPath: "out.md",
	}, 1500*time.Millisecond)
	s := buf.String()
	assert.Contains(t, s, "Done in 1.5s")
	assert.Contains(t, s, "3 selected (walk), 2 scanned, 1 skipped")
	assert.Contains(t, s, "Failures: 2 chunks")
	assert.Contains(t, s, "Report saved to out.md")
}

// fakeOllama answers every chat request with a clean analysis.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `{"summary":"ok","vulnerabilities":[],"recommendations":[],"dependencies":[]}`
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": content},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScanDirThenReportFromWorkingDirectory(t *testing.T) {
	wd := t.TempDir()
	t.Chdir(wd)
	srv := fakeOllama(t)
	t.Setenv("VULNVIPER_LLM_PROVIDER", "ollama")
	t.Setenv("VULNVIPER_LLM_MODEL", "test-model")
	t.Setenv("VULNVIPER_OLLAMA_URL", srv.URL)
	t.Setenv("VULNVIPER_API_KEY", "")
	t.Setenv("VULNVIPER_BUDGET", "3000")
	t.Setenv("VULNVIPER_SENTRY_DSN", "")

	require.NoError(t, os.MkdirAll(filepath.Join(wd, "proj"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(wd, "proj", "app.py"), []byte("def a():\n    return 1\n"), 0o644))

	out, err := executeRoot(t, "scan", "--dir", "proj", "-q")
	require.NoError(t, err, out)
	assert.FileExists(t, config.DefaultDBPath(wd))
	assert.NoFileExists(t, config.DefaultDBPath(filepath.Join(wd, "proj")))

	out, err = executeRoot(t, "report", "--format", "json")
	require.NoError(t, err, out)

	var rep struct {
		Records []store.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Records, 1)
	assert.Equal(t, "app.py", rep.Records[0].File)
	assert.Equal(t, "ok", rep.Records[0].Summary)
}

func TestReportScanError(t *testing.T) {
	events := telemetrytest.CountEvents(t)
	ctx := context.Background()

	reportScanError(ctx, &scan.PersistenceError{Op: "insert", Err: errors.New("database is locked")})
	reportScanError(ctx, context.Canceled)
	assert.Equal(t, int32(0), events.Load())

	reportScanError(ctx, errors.New("no such directory"))
	assert.Equal(t, int32(1), events.Load())
}
