// Package config loads patchjudge configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .patchjudge.yaml in current directory
//  2. ~/.config/patchjudge/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all patchjudge configuration.
type Config struct {
	// Server settings
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Share binds the server to all interfaces instead of the loopback.
	Share bool `yaml:"share"`

	// LLM settings
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int64  `yaml:"max_tokens"`
	Timeout   string `yaml:"timeout"` // Go duration string, e.g. "120s"

	// Prompt template override; empty uses the embedded default.
	PromptTemplatePath string `yaml:"prompt_template_path"`

	// History database path.
	HistoryDB string `yaml:"history_db"`

	// Rate limit for the HTTP API, requests per minute per client IP.
	// Zero disables limiting.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs

	// Parsed duration (not from YAML, set after loading)
	TimeoutDuration time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Host:               "127.0.0.1",
		Port:               7860,
		Model:              "gpt-5.1",
		MaxTokens:          4096,
		Timeout:            "120s",
		HistoryDB:          "patchjudge.db",
		RateLimitPerMinute: 30,
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}

	var err error
	cfg.TimeoutDuration, err = time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
	}

	return cfg, nil
}

// Addr returns the host:port the server should bind. SHARE=true widens
// the bind address to all interfaces.
func (c *Config) Addr() string {
	host := c.Host
	if c.Share {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", host, c.Port)
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	if data, err := os.ReadFile(".patchjudge.yaml"); err == nil {
		return ".patchjudge.yaml", data, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "patchjudge", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Host != "" {
		cfg.Host = file.Host
	}
	if file.Port > 0 {
		cfg.Port = file.Port
	}
	if file.Share {
		cfg.Share = file.Share
	}
	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.APIKey != "" {
		cfg.APIKey = file.APIKey
	}
	if file.BaseURL != "" {
		cfg.BaseURL = file.BaseURL
	}
	if file.MaxTokens > 0 {
		cfg.MaxTokens = file.MaxTokens
	}
	if file.Timeout != "" {
		cfg.Timeout = file.Timeout
	}
	if file.PromptTemplatePath != "" {
		cfg.PromptTemplatePath = file.PromptTemplatePath
	}
	if file.HistoryDB != "" {
		cfg.HistoryDB = file.HistoryDB
	}
	if file.RateLimitPerMinute > 0 {
		cfg.RateLimitPerMinute = file.RateLimitPerMinute
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) error {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("SHARE"); v == "true" || v == "1" {
		cfg.Share = true
	}
	if v := os.Getenv("PROMPT_TEMPLATE_PATH"); v != "" {
		cfg.PromptTemplatePath = v
	}
	if v := os.Getenv("PATCHJUDGE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("PATCHJUDGE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("PATCHJUDGE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("PATCHJUDGE_TIMEOUT"); v != "" {
		cfg.Timeout = v
	}
	if v := os.Getenv("PATCHJUDGE_HISTORY_DB"); v != "" {
		cfg.HistoryDB = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}

	// API key fallbacks
	if cfg.APIKey == "" {
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			cfg.APIKey = v
		}
	}
	if cfg.APIKey == "" {
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.APIKey = v
		}
	}

	return nil
}
