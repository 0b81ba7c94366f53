package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds text-generation provider configuration.
type Config struct {
	// Provider selects the backend: "anthropic", "openai", "gemini",
	// "openrouter" or "mock".
	Provider string `yaml:"provider"`

	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Retry      RetryConfig      `yaml:"retry"`

	// Timeout bounds a single provider call.
	Timeout time.Duration `yaml:"timeout"`
}

type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// RetryConfig configures retry behavior for transient failures. Only the
// feedback path is retried; quiz generation makes exactly one call.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   "anthropic",
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "openai/gpt-4o-mini"},
		Retry: RetryConfig{
			MaxAttempts: 2,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     4 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// ApplyEnv overlays ASSESSD_* environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&cfg.Provider, "ASSESSD_LLM_PROVIDER")
	setString(&cfg.Anthropic.APIKey, "ASSESSD_ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.Model, "ASSESSD_ANTHROPIC_MODEL")
	setString(&cfg.OpenAI.APIKey, "ASSESSD_OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "ASSESSD_OPENAI_MODEL")
	setString(&cfg.OpenAI.BaseURL, "ASSESSD_OPENAI_BASE_URL")
	setString(&cfg.Gemini.APIKey, "ASSESSD_GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "ASSESSD_GEMINI_MODEL")
	setString(&cfg.OpenRouter.APIKey, "ASSESSD_OPENROUTER_API_KEY")
	setString(&cfg.OpenRouter.Model, "ASSESSD_OPENROUTER_MODEL")

	if v := os.Getenv("ASSESSD_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	ApplyEnv(&cfg)
	return cfg
}

// hasKey reports whether the selected provider has credentials.
func (c Config) hasKey() bool {
	switch c.Provider {
	case "anthropic":
		return c.Anthropic.APIKey != ""
	case "openai":
		return c.OpenAI.APIKey != ""
	case "gemini":
		return c.Gemini.APIKey != ""
	case "openrouter":
		return c.OpenRouter.APIKey != ""
	}
	return c.Provider == "mock"
}

// Discover fills in credentials from the vendors' standard env vars when
// the configured provider has none. Lookup order: Gemini, OpenAI,
// Anthropic, OpenRouter. It reports whether usable credentials exist.
func Discover(cfg *Config) bool {
	if cfg.hasKey() {
		return true
	}
	candidates := []struct {
		env      string
		provider string
		key      *string
	}{
		{"GEMINI_API_KEY", "gemini", &cfg.Gemini.APIKey},
		{"OPENAI_API_KEY", "openai", &cfg.OpenAI.APIKey},
		{"ANTHROPIC_API_KEY", "anthropic", &cfg.Anthropic.APIKey},
		{"OPENROUTER_API_KEY", "openrouter", &cfg.OpenRouter.APIKey},
	}
	for _, p := range candidates {
		if k := os.Getenv(p.env); k != "" {
			cfg.Provider = p.provider
			*p.key = k
			return true
		}
	}
	return false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic", "openai", "gemini", "openrouter":
		if !c.hasKey() {
			return fmt.Errorf("an API key is required for the %s provider", c.Provider)
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
