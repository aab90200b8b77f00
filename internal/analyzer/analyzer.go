// Package analyzer sends units of code to a language model for security
// review and normalizes the answer into a Result.
package analyzer

import (
	"context"
	"errors"
	"fmt"

	"vulnviper/internal/llm"
)

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Default models per provider.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOllamaModel = "qwen3:8b"
)

var (
	// ErrUnknownProvider is returned for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown LLM provider")
	// ErrNoAPIKey is returned when a hosted provider has no API key.
	ErrNoAPIKey = errors.New("API key not set")
)

// Providers lists the supported provider names.
func Providers() []string {
	return []string{ProviderOpenAI, ProviderGemini, ProviderOllama}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderGemini:
		return DefaultGeminiModel
	case ProviderOllama:
		return DefaultOllamaModel
	}
	return ""
}

// Analyzer reviews one unit of code. Analyze never returns an error: any
// failure is reported as a Failure result.
type Analyzer interface {
	Analyze(ctx context.Context, code string) Result
}

// Func adapts a plain function to Analyzer.
type Func func(ctx context.Context, code string) Result

func (f Func) Analyze(ctx context.Context, code string) Result { return f(ctx, code) }

// Config selects and configures a provider.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	OllamaURL string
	Retry     RetryConfig
}

// LLMAnalyzer prompts a chat model and decodes its JSON answer.
type LLMAnalyzer struct {
	client   llm.Client
	provider string
	model    string
	retry    RetryConfig
}

// New builds an analyzer for the configured provider.
func New(cfg Config) (*LLMAnalyzer, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel(cfg.Provider)
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	var client llm.Client
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrNoAPIKey)
		}
		client = llm.NewOpenAIChat(cfg.APIKey, "", model)
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrNoAPIKey)
		}
		client = llm.NewOpenAIChat(cfg.APIKey, llm.GeminiBaseURL, model)
	case ProviderOllama:
		client = llm.NewOllamaChat(cfg.OllamaURL, model)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	return NewWithClient(client, cfg.Provider, model, retry), nil
}

// NewWithClient wraps an existing chat client.
func NewWithClient(client llm.Client, provider, model string, retry RetryConfig) *LLMAnalyzer {
	return &LLMAnalyzer{client: client, provider: provider, model: model, retry: retry}
}

// Provider returns the provider name.
func (a *LLMAnalyzer) Provider() string { return a.provider }

// Model returns the model name.
func (a *LLMAnalyzer) Model() string { return a.model }

func (a *LLMAnalyzer) Analyze(ctx context.Context, code string) Result {
	msgs := buildMessages(code)
	out, err := retryWithBackoff(ctx, a.retry, func() (string, error) {
		return a.client.Generate(ctx, msgs)
	})
	if err != nil {
		return Failure{Err: fmt.Errorf("%s API call failed: %w", a.provider, err)}
	}
	return Decode(out)
}
