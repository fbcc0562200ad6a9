package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter implements per-host rate limiting for outbound fetches
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter; a non-positive rate disables limiting
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until a request to rawURL's host is allowed
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostKey(rawURL)
	if err != nil {
		return err
	}
	return l.getLimiter(host).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(rawURL string) bool {
	host, err := hostKey(rawURL)
	if err != nil {
		return false
	}
	return l.getLimiter(host).Allow()
}

// getLimiter returns the rate limiter for a host
func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[host] = limiter
	return limiter
}

// SetHostRate sets a custom rate limit for a specific host
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[normalizeHost(host)] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Hosts returns how many hosts have a limiter
func (l *Limiter) Hosts() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}

// hostKey extracts the normalized host from a URL
func hostKey(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return normalizeHost(parsed.Hostname()), nil
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
