package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/0xknstntn/news-checker/internal/util"
)

// Fetcher performs bounded GET requests for article pages
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	retries    int
	backoff    time.Duration
	sleep      util.SleepFunc
}

// NewFetcher creates a Fetcher that follows at most 5 redirects
func NewFetcher(client *http.Client, userAgent string, maxBytes int64, retries int) *Fetcher {
	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return fmt.Errorf("stopped after 5 redirects")
		}
		return nil
	}
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	if retries < 0 {
		retries = 0
	}
	return &Fetcher{
		httpClient: &c,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		retries:    retries,
		backoff:    500 * time.Millisecond,
		sleep:      util.SleepContext,
	}
}

// StatusError is a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// FetchResult contains the fetched page
type FetchResult struct {
	HTML        string
	ContentType string
	FinalURL    string
}

// Fetch retrieves a page once
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ru;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		HTML:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry retries transient failures (5xx, 429, timeouts, refused or
// reset connections) with exponential backoff. With zero retries it is a
// single GET.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var result *FetchResult
	err := util.Retry(ctx, util.RetryPolicy{
		Attempts:  f.retries + 1,
		Backoff:   f.backoff,
		Retryable: isRetryableFetchError,
		Sleep:     f.sleep,
	}, func(ctx context.Context) error {
		r, err := f.Fetch(ctx, rawURL)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// isRetryableFetchError reports whether err is worth another attempt
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, s := range []string{"connection refused", "connection reset", "EOF", "timeout"} {
		if strings.Contains(msg, s) && strings.HasPrefix(msg, "fetch:") {
			return true
		}
	}
	return false
}
