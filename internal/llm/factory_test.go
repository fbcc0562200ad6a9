package llm

import (
	"testing"
	"time"

	"github.com/0xknstntn/news-checker/internal/model"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{"disabled", Config{}, "", false},
		{"openai", Config{Provider: "openai", APIKey: "k"}, "openai", false},
		{"openai without key", Config{Provider: "openai"}, "", true},
		{"claude alias", Config{Provider: "Claude", APIKey: "k"}, "anthropic", false},
		{"ollama", Config{Provider: "ollama"}, "ollama", false},
		{"unknown", Config{Provider: "gemini"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantName == "" {
				if !tt.wantErr && p != nil {
					t.Errorf("Expected nil provider, got %s", p.Name())
				}
				return
			}
			if p == nil || p.Name() != tt.wantName {
				t.Errorf("Expected provider %s, got %v", tt.wantName, p)
			}
		})
	}
}

func TestConfigFromModel(t *testing.T) {
	mc := model.LLMConfig{
		Provider:        "anthropic",
		Model:           "claude-3-5-haiku-20241022",
		Timeout:         30 * time.Second,
		MaxTokens:       800,
		OpenAIAPIKey:    "sk-openai",
		AnthropicAPIKey: "sk-ant",
		OllamaBaseURL:   "http://ollama:11434",
	}

	c := ConfigFromModel(mc, "http://proxy:3128")
	if c.APIKey != "sk-ant" || c.BaseURL != "" {
		t.Errorf("Expected anthropic key only, got %+v", c)
	}
	if c.Timeout != 30*time.Second || c.MaxTokens != 800 || c.Proxy != "http://proxy:3128" {
		t.Errorf("Unexpected config: %+v", c)
	}

	mc.Provider = "ollama"
	if c := ConfigFromModel(mc, ""); c.BaseURL != "http://ollama:11434" || c.APIKey != "" {
		t.Errorf("Expected ollama base URL only, got %+v", c)
	}
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.Provider != "" {
		t.Error("LLM should be disabled by default")
	}
	if c.maxTokens(Request{}) != 1500 || c.maxTokens(Request{MaxTokens: 10}) != 10 {
		t.Error("Unexpected max token resolution")
	}
	if (Config{}).timeout(time.Second) != time.Second {
		t.Error("Zero timeout should use the fallback")
	}
}
