package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOllamaProvider_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}
		if req.Format != "json" {
			t.Errorf("Expected format json, got %q", req.Format)
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "llama3.1",
			Response:        `{"claims": []}`,
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Complete(context.Background(), Request{Prompt: "p", JSON: true})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != `{"claims": []}` {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("Unexpected token usage: %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_Complete_EstimatesTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Model: "m", Response: strings.Repeat("a", 40), Done: true})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "m"})
	resp, err := provider.Complete(context.Background(), Request{Prompt: strings.Repeat("b", 40)})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.TokensUsed != 20 {
		t.Errorf("Expected estimated 20 tokens, got %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'llama9' not found"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama9"})
	_, err := provider.Complete(context.Background(), Request{Prompt: "p"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Error should carry the API message: %v", err)
	}
}

func TestOllamaProvider_Complete_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{malformed`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "m"})
	if _, err := provider.Complete(context.Background(), Request{Prompt: "p"}); err == nil {
		t.Fatal("Expected error for malformed JSON, got nil")
	}
}

func TestOllamaProvider_Complete_NoModel(t *testing.T) {
	provider, _ := NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := provider.Complete(context.Background(), Request{Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "model must be specified") {
		t.Fatalf("Expected missing model error, got %v", err)
	}
}

func TestOllamaProvider_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL})
	if err := provider.Ping(context.Background()); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}

	server.Close()
	if err := provider.Ping(context.Background()); err == nil {
		t.Error("Expected ping to fail after server shutdown")
	}
}
