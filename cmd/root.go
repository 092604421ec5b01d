// Package cmd wires the patchjudge CLI.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/patchjudge/patchjudge/internal/config"
	"github.com/patchjudge/patchjudge/internal/otel"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

var (
	// Global flags. Empty or zero means "use the config/env value".
	flagModel          string
	flagAPIKey         string
	flagBaseURL        string
	flagMaxTokens      int64
	flagTimeout        string
	flagPromptTemplate string
)

var rootCmd = &cobra.Command{
	Use:   "patchjudge",
	Short: "LLM-backed evaluation of generated patches against ground truth",
	Long: `patchjudge scores a generated patch against a ground-truth patch for a
given issue statement, using an LLM as the judge.

The judge returns three rubric scores (functional correctness, completeness,
behavioral equivalence); patchjudge combines them into an overall score and a
PASS / PARTIAL / FAIL verdict.`,
	PersistentPreRun: func(*cobra.Command, []string) {
		// Pick up a local .env if present; real env vars win over it.
		_ = godotenv.Load()
	},
}

// Execute runs the root command.
func Execute() {
	otel.Version = Version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "judge model (e.g. claude-sonnet-4-5, gpt-5.1); vendor is selected from the prefix")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "vendor API key (falls back to PATCHJUDGE_API_KEY, ANTHROPIC_API_KEY, OPENAI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "override the vendor API base URL")
	rootCmd.PersistentFlags().Int64Var(&flagMaxTokens, "max-tokens", 0, "max completion tokens (default: 4096)")
	rootCmd.PersistentFlags().StringVar(&flagTimeout, "timeout", "", "per-request timeout as a Go duration (default: 120s)")
	rootCmd.PersistentFlags().StringVar(&flagPromptTemplate, "prompt-template", "", "path to a custom rubric template (default: embedded)")
}

// loadConfig resolves configuration, letting CLI flags override file and env.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	if flagMaxTokens > 0 {
		cfg.MaxTokens = flagMaxTokens
	}
	if flagTimeout != "" {
		cfg.Timeout = flagTimeout
		d, err := parseTimeout(flagTimeout)
		if err != nil {
			return nil, err
		}
		cfg.TimeoutDuration = d
	}
	if flagPromptTemplate != "" {
		cfg.PromptTemplatePath = flagPromptTemplate
	}
	return cfg, nil
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --timeout %q: %w", s, err)
	}
	return d, nil
}
