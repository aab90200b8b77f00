package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"vulnviper/internal/analyzer"
	"vulnviper/internal/chunker"
	"vulnviper/internal/config"

	"github.com/spf13/cobra"
)

var (
	flagInitAPIKey   string
	flagInitProvider string
	flagInitModel    string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Save the LLM provider, model and API key for this directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err := config.LoadFile(wd)
		if err != nil {
			return err
		}
		if err := runInit(cmd.InOrStdin(), cmd.OutOrStdout(), cfg); err != nil {
			return err
		}
		if err := cfg.Save(wd); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Configuration saved to "+config.Path(wd)))
		return nil
	},
}

// runInit fills cfg from the flags, prompting on in for anything missing.
func runInit(in io.Reader, out io.Writer, cfg *config.Config) error {
	r := bufio.NewReader(in)
	var err error

	provider := flagInitProvider
	if provider == "" {
		provider, err = prompt(r, out, fmt.Sprintf("LLM provider (%s)", strings.Join(analyzer.Providers(), ", ")), cfgOr(cfg.Provider, analyzer.ProviderOpenAI), false)
		if err != nil {
			return err
		}
	}
	provider = strings.ToLower(provider)
	if provider != cfg.Provider {
		cfg.Model = ""
	}
	cfg.Provider = provider

	model := flagInitModel
	if model == "" {
		model, err = prompt(r, out, "Model", cfgOr(cfg.Model, analyzer.DefaultModel(cfg.Provider)), false)
		if err != nil {
			return err
		}
	}
	cfg.Model = model

	if cfg.Provider != analyzer.ProviderOllama {
		if flagInitAPIKey != "" {
			cfg.APIKey = flagInitAPIKey
		} else {
			cfg.APIKey, err = prompt(r, out, "API key", cfg.APIKey, true)
			if err != nil {
				return err
			}
		}
	}

	check := *cfg
	if check.Budget == 0 {
		check.Budget = chunker.DefaultBudget
	}
	return check.Validate()
}

func cfgOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// prompt asks for a value; an empty answer keeps def. A secret default is
// shown masked.
func prompt(r *bufio.Reader, out io.Writer, label, def string, secret bool) (string, error) {
	shown := def
	if secret {
		shown = mask(def)
	}
	if shown != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, shown)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// mask hides all but the last four characters of a secret.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func init() {
	initCmd.Flags().StringVar(&flagInitAPIKey, "api-key", "", "API key for openai or gemini")
	initCmd.Flags().StringVar(&flagInitProvider, "provider", "", "openai, gemini or ollama")
	initCmd.Flags().StringVar(&flagInitModel, "model", "", "model name (default depends on provider)")
	rootCmd.AddCommand(initCmd)
}
