package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vulnviper/internal/analyzer"
)

// OllamaModel represents a model returned by /api/tags.
type OllamaModel struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type tagsResponse struct {
	Models []OllamaModel `json:"models"`
}

// ListModels queries the Ollama /api/tags endpoint and returns available models.
func ListModels(ctx context.Context, baseURL string) ([]OllamaModel, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama /api/tags returned %d", resp.StatusCode)
	}

	var result tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}
	return result.Models, nil
}

// hostedModels are offered for providers without a model listing.
var hostedModels = map[string][]string{
	analyzer.ProviderOpenAI: {analyzer.DefaultOpenAIModel, "gpt-4o", "gpt-4.1-mini", "gpt-4.1"},
	analyzer.ProviderGemini: {analyzer.DefaultGeminiModel, "gemini-2.5-pro", "gemini-2.0-flash"},
}

// modelChoice is one entry of the setup model list.
type modelChoice struct {
	name string
	size int64
}

func (c modelChoice) label() string {
	if c.size == 0 {
		return c.name
	}
	return fmt.Sprintf("%s (%s)", c.name, formatSize(c.size))
}

// modelChoices returns the models offered for provider: the local Ollama
// models, or a fixed list for hosted providers.
func modelChoices(ctx context.Context, provider, ollamaURL string) ([]modelChoice, error) {
	if provider != analyzer.ProviderOllama {
		var out []modelChoice
		for _, name := range hostedModels[provider] {
			out = append(out, modelChoice{name: name})
		}
		return out, nil
	}

	models, err := ListModels(ctx, ollamaURL)
	if err != nil {
		return nil, err
	}
	out := make([]modelChoice, 0, len(models))
	for _, m := range models {
		// Embedding models cannot answer prompts.
		lower := strings.ToLower(m.Name)
		if strings.Contains(lower, "embed") || strings.Contains(lower, "nomic") {
			continue
		}
		out = append(out, modelChoice{name: m.Name, size: m.Size})
	}
	return out, nil
}

// formatSize returns a human-readable size string.
func formatSize(bytes int64) string {
	const gb = 1024 * 1024 * 1024
	const mb = 1024 * 1024
	if bytes >= gb {
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	}
	return fmt.Sprintf("%.0f MB", float64(bytes)/float64(mb))
}
