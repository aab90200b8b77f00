// Package config loads the scanner configuration from the user's config
// file and VULNVIPER_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"vulnviper/internal/analyzer"
	"vulnviper/internal/chunker"
	"vulnviper/internal/llm"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const (
	// DirName holds per-project state: config file and audit database.
	DirName = ".vulnviper"
	// FileName is the config file inside DirName.
	FileName = "config.json"
	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "VULNVIPER"
	// DBName is the default audit database file inside DirName.
	DBName = "audit.db"
	// DefaultReportName is the Markdown report written by a scan.
	DefaultReportName = "vulnviper_audit_report.md"
)

var (
	ErrNoAPIKey   = errors.New("API key not found. Run 'vulnviper init' or set VULNVIPER_API_KEY")
	ErrNoProvider = errors.New("LLM provider not found. Run 'vulnviper init' or set VULNVIPER_LLM_PROVIDER")
	ErrBadBudget  = errors.New("budget must be positive")
)

// Config is constructed once at startup and passed to the components that
// need it.
type Config struct {
	APIKey    string `json:"api_key" mapstructure:"api_key"`
	Provider  string `json:"llm_provider" mapstructure:"llm_provider"`
	Model     string `json:"llm_model,omitempty" mapstructure:"llm_model"`
	OllamaURL string `json:"ollama_url,omitempty" mapstructure:"ollama_url"`
	Budget    int    `json:"budget,omitempty" mapstructure:"budget"`
	SentryDSN string `json:"sentry_dsn,omitempty" mapstructure:"sentry_dsn"`
	LogLevel  string `json:"log_level,omitempty" mapstructure:"log_level"`
}

// envConfig mirrors Config for VULNVIPER_* variables.
type envConfig struct {
	APIKey    string `envconfig:"API_KEY"`
	Provider  string `envconfig:"LLM_PROVIDER"`
	Model     string `envconfig:"LLM_MODEL"`
	OllamaURL string `envconfig:"OLLAMA_URL"`
	Budget    int    `envconfig:"BUDGET"`
	SentryDSN string `envconfig:"SENTRY_DSN"`
	LogLevel  string `envconfig:"LOG_LEVEL"`
}

// Path returns the config file path for a project directory.
func Path(dir string) string {
	return filepath.Join(dir, DirName, FileName)
}

// DefaultDBPath returns the audit database path for a project directory.
func DefaultDBPath(dir string) string {
	return filepath.Join(dir, DirName, DBName)
}

// LoadFile reads DirName/config.json under dir. A missing file yields an
// empty config.
func LoadFile(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(dir, DirName))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Load builds the effective configuration for dir: .env is loaded into the
// environment, VULNVIPER_* variables take precedence over the config file,
// and defaults fill whatever is left. Load does not validate.
func Load(dir string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	cfg, err := LoadFile(dir)
	if err != nil {
		return nil, err
	}

	var env envConfig
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	cfg.merge(env)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) merge(env envConfig) {
	if env.APIKey != "" {
		c.APIKey = env.APIKey
	}
	if env.Provider != "" {
		c.Provider = env.Provider
	}
	if env.Model != "" {
		c.Model = env.Model
	}
	if env.OllamaURL != "" {
		c.OllamaURL = env.OllamaURL
	}
	if env.Budget != 0 {
		c.Budget = env.Budget
	}
	if env.SentryDSN != "" {
		c.SentryDSN = env.SentryDSN
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
}

func (c *Config) applyDefaults() {
	if c.Budget == 0 {
		c.Budget = chunker.DefaultBudget
	}
	if c.OllamaURL == "" {
		c.OllamaURL = llm.DefaultOllamaURL
	}
}

// Validate checks that a scan can run with this configuration.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return ErrNoProvider
	}
	if !slices.Contains(analyzer.Providers(), c.Provider) {
		return fmt.Errorf("%w: %q (choose one of %v)", analyzer.ErrUnknownProvider, c.Provider, analyzer.Providers())
	}
	if c.APIKey == "" && c.Provider != analyzer.ProviderOllama {
		return ErrNoAPIKey
	}
	if c.Budget <= 0 {
		return fmt.Errorf("%w: %d", ErrBadBudget, c.Budget)
	}
	return nil
}

// EffectiveModel returns the configured model or the provider default.
func (c *Config) EffectiveModel() string {
	if c.Model != "" {
		return c.Model
	}
	return analyzer.DefaultModel(c.Provider)
}

// Analyzer returns the analyzer settings derived from the config.
func (c *Config) Analyzer() analyzer.Config {
	return analyzer.Config{
		Provider:  c.Provider,
		Model:     c.Model,
		APIKey:    c.APIKey,
		OllamaURL: c.OllamaURL,
	}
}

// Save writes the config file under dir, readable only by the owner.
func (c *Config) Save(dir string) error {
	path := Path(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
