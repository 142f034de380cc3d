// Package llm provides a provider-agnostic client for OpenAI-compatible
// chat completion APIs. Uses net/http directly.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider is the interface for LLM completions. A Complete call is a single
// bounded model round trip from the caller's perspective; transport-level
// retries stay inside the provider.
type Provider interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error)
	// Name returns a human-readable provider name (e.g. "ollama/qwen2.5:14b").
	Name() string
}

// CompletionOpts configures a single completion request.
type CompletionOpts struct {
	MaxTokens   int     // max tokens to generate (0 or -1 = provider default/unlimited)
	Temperature float64 // 0.0-2.0
	Seed        *int    // fixed seed for reproducible sampling (nil = unseeded)
	Format      string  // "json" for structured output, empty for plain text
	System      string  // system prompt (optional)
}

// Config holds LLM provider configuration.
type Config struct {
	Provider    string // "ollama", "openai", "deepseek", "openrouter", "custom"
	Model       string
	Endpoint    string // full API URL
	APIKey      string
	MaxRetries  int // default: 3
	TimeoutSecs int // per-request timeout (default: 60)
}

// ParseFlag parses "--llm provider/model" format. Handles model names with
// slashes and colons like "openrouter/google/gemini-2.0-flash-exp:free".
func ParseFlag(flag string) (*Config, error) {
	if flag == "" {
		return nil, fmt.Errorf("empty LLM flag")
	}

	slashIdx := strings.Index(flag, "/")
	if slashIdx == -1 {
		return nil, fmt.Errorf("invalid --llm format: expected 'provider/model', got %q", flag)
	}

	provider := flag[:slashIdx]
	model := flag[slashIdx+1:]
	if provider == "" {
		return nil, fmt.Errorf("empty provider in --llm flag: %q", flag)
	}
	if model == "" {
		return nil, fmt.Errorf("empty model in --llm flag: %q", flag)
	}

	cfg := &Config{
		Provider:    provider,
		Model:       model,
		MaxRetries:  3,
		TimeoutSecs: 60,
	}

	switch provider {
	case "ollama":
		cfg.Endpoint = "http://localhost:11434/v1/chat/completions"
		// No API key needed for Ollama
	case "openai":
		cfg.Endpoint = "https://api.openai.com/v1/chat/completions"
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	case "deepseek":
		cfg.Endpoint = "https://api.deepseek.com/v1/chat/completions"
		cfg.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	case "openrouter":
		cfg.Endpoint = "https://openrouter.ai/api/v1/chat/completions"
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	case "custom":
		cfg.Endpoint = os.Getenv("SENSAI_LLM_ENDPOINT")
		cfg.APIKey = os.Getenv("SENSAI_LLM_API_KEY")
	default:
		return nil, fmt.Errorf("unknown provider %q. Supported: ollama, openai, deepseek, openrouter, custom", provider)
	}

	if endpoint := os.Getenv("SENSAI_LLM_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if apiKey := os.Getenv("SENSAI_LLM_API_KEY"); apiKey != "" {
		cfg.APIKey = apiKey
	}

	return cfg, nil
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.Provider != "ollama" && c.APIKey == "" {
		return fmt.Errorf("API key is required for provider %q (set via environment variable)", c.Provider)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.TimeoutSecs <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// HTTPError represents an HTTP-level API error with retry context.
type HTTPError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
