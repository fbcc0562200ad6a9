// Package llm wraps chat-completion providers behind a single Complete call
// used by the LLM verification strategy.
package llm

import (
	"context"
	"time"

	"github.com/0xknstntn/news-checker/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one system+user exchange and returns the raw reply
	Complete(ctx context.Context, req Request) (*Response, error)

	// Ping checks if the provider is configured and reachable
	Ping(ctx context.Context) error
}

// Request is a single completion request
type Request struct {
	System string
	Prompt string

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// JSON asks the provider for a JSON object reply where supported
	JSON bool
}

// Response contains the provider's reply
type Response struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	Timeout   time.Duration
	MaxTokens int

	// Proxy URL; empty uses the environment
	Proxy string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:   60 * time.Second,
		MaxTokens: 1500,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config, picking the key
// that belongs to the selected provider.
func ConfigFromModel(cfg model.LLMConfig, proxy string) Config {
	c := Config{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		Timeout:   cfg.Timeout,
		MaxTokens: cfg.MaxTokens,
		Proxy:     proxy,
	}
	switch cfg.Provider {
	case "openai":
		c.APIKey = cfg.OpenAIAPIKey
	case "anthropic", "claude":
		c.APIKey = cfg.AnthropicAPIKey
	case "ollama":
		c.BaseURL = cfg.OllamaBaseURL
	}
	return c
}

func (c Config) timeout(fallback time.Duration) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return fallback
}

func (c Config) maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1000
}
