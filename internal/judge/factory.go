package judge

import (
	"strings"
	"time"
)

// Config holds the settings shared by both vendor backends.
type Config struct {
	// Model is the model identifier; its prefix selects the backend.
	Model string
	// APIKey authenticates against the vendor.
	APIKey string
	// BaseURL optionally overrides the vendor API endpoint.
	BaseURL string
	// MaxTokens caps the completion length (default 4096).
	MaxTokens int64
	// Temperature is the sampling temperature (default 0.3).
	Temperature float64
	// Timeout bounds each request (default 120s).
	Timeout time.Duration
}

const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.3
	defaultTimeout     = 120 * time.Second
)

func (c Config) maxTokensOrDefault() int64 {
	if c.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return c.MaxTokens
}

func (c Config) temperatureOrDefault() float64 {
	if c.Temperature <= 0 {
		return defaultTemperature
	}
	return c.Temperature
}

func (c Config) timeoutOrDefault() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

// openAIPrefixes are model-id prefixes served by the OpenAI-compatible backend.
var openAIPrefixes = []string{"gpt-", "o1-", "o3-", "deepseek-"}

// ProviderFor returns the backend name for a model identifier.
// Unknown prefixes default to the OpenAI-compatible backend, which
// covers most third-party endpoints via BaseURL.
func ProviderFor(modelID string) string {
	id := strings.ToLower(strings.TrimSpace(modelID))
	if strings.HasPrefix(id, "claude-") {
		return "anthropic"
	}
	for _, p := range openAIPrefixes {
		if strings.HasPrefix(id, p) {
			return "openai"
		}
	}
	return "openai"
}

// New returns the evaluator for cfg.Model, keyed on its prefix.
func New(cfg Config) Evaluator {
	if ProviderFor(cfg.Model) == "anthropic" {
		return NewAnthropicEvaluator(cfg)
	}
	return NewOpenAIEvaluator(cfg)
}
