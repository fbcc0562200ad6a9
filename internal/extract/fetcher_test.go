package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher(retries int) *Fetcher {
	f := NewFetcher(&http.Client{Timeout: 5 * time.Second}, "test-agent", 1<<20, retries)
	f.sleep = noSleep
	return f
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	result, err := newTestFetcher(2).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.HTML != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected HTML: %s", result.HTML)
	}
	if result.ContentType != "text/html" {
		t.Errorf("Unexpected content type: %s", result.ContentType)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	result, err := newTestFetcher(2).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if result.HTML != "<html>OK</html>" {
		t.Errorf("Unexpected HTML: %s", result.HTML)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestFetcher(2).FetchWithRetry(context.Background(), server.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 404 {
		t.Fatalf("Expected 404 StatusError, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("404 is not retryable, got %d attempts", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestFetcher(2).FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	if _, err := newTestFetcher(2).FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "0123456789abcdef")
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), "ua", 10, 0)
	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if result.HTML != "0123456789" {
		t.Errorf("body not limited: %q", result.HTML)
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
	}{
		{&StatusError{Code: 503}, true},
		{&StatusError{Code: 500}, true},
		{&StatusError{Code: 429}, true},
		{fmt.Errorf("wrapped: %w", &StatusError{Code: 502}), true},
		{&StatusError{Code: 404}, false},
		{&StatusError{Code: 403}, false},
		{errors.New("fetch: dial tcp: connection refused"), true},
		{errors.New("fetch: read: connection reset by peer"), true},
		{errors.New("create request: invalid URL"), false},
		{errors.New("read body: unexpected EOF"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := isRetryableFetchError(tt.err); got != tt.retryable {
			t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
		}
	}
}

func TestFetchWithRetry_NoRetriesIsSingleGET(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestFetcher(0).FetchWithRetry(context.Background(), server.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 StatusError, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_BackoffHonorsContext(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), "test-agent", 1<<20, 3)
	f.backoff = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.FetchWithRetry(ctx, server.URL)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Backoff ignored cancellation, took %v", elapsed)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts.Load())
	}
}
