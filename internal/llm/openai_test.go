package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

func TestOpenAIProvider_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Content != "sys" || req.Messages[1].Content != "user prompt" {
			t.Errorf("Unexpected messages: %+v", req.Messages)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
			t.Errorf("Expected JSON response format, got %+v", req.ResponseFormat)
		}

		resp := openai.ChatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: `  {"claims": []}  `,
					},
					FinishReason: "stop",
				},
			},
			Usage: openai.Usage{TotalTokens: 100},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Complete(context.Background(), Request{System: "sys", Prompt: "user prompt", JSON: true})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != `{"claims": []}` {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Expected 100 tokens, got %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_Complete_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error": {"message": "Internal Server Error", "type": "server_error"}}`},
		{"rate limit", http.StatusTooManyRequests, `{"error": {"message": "Rate limit exceeded", "type": "rate_limit_error"}}`},
		{"malformed", http.StatusOK, `{malformed json`},
		{"no choices", http.StatusOK, `{"choices": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second})
			if err != nil {
				t.Fatalf("Failed to create provider: %v", err)
			}
			if _, err := provider.Complete(context.Background(), Request{Prompt: "x"}); err == nil {
				t.Fatal("Expected error, got nil")
			}
		})
	}
}

func TestOpenAIProvider_Complete_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := provider.Complete(ctx, Request{Prompt: "x"}); err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
}

func TestOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Fatal("Expected error for missing API key")
	}
}

func TestOpenAIProvider_Ping(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() && r.URL.Path == "/models" {
			_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o-mini"}]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if err := provider.Ping(context.Background()); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}

	healthy.Store(false)
	if err := provider.Ping(context.Background()); err == nil {
		t.Error("Expected ping to fail on server error")
	}
}
