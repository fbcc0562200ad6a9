package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

// robotsTTL bounds how long a host's robots.txt is trusted
const robotsTTL = 6 * time.Hour

// RobotsChecker answers robots.txt questions for the extractor.
// Rules are cached per scheme+host.
type RobotsChecker struct {
	cache      *gocache.Cache
	httpClient *http.Client
	agent      string
}

// NewRobotsChecker creates a checker that matches rules against the product
// token of userAgent.
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		cache:      gocache.New(robotsTTL, time.Hour),
		httpClient: client,
		agent:      NormalizeUserAgent(userAgent),
	}
}

// Allowed reports whether rawURL may be fetched. Unreachable or unparseable
// robots.txt files allow the fetch.
func (r *RobotsChecker) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}

	data, err := r.rules(ctx, parsed)
	if err != nil {
		return true
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return data.TestAgent(path, r.agent)
}

func (r *RobotsChecker) rules(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	origin := u.Scheme + "://" + u.Host
	if v, ok := r.cache.Get(origin); ok {
		return v.(*robotstxt.RobotsData), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	// 4xx allows everything, 5xx disallows everything
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.cache.SetDefault(origin, data)
	return data, nil
}

// NormalizeUserAgent extracts the product token used for robots.txt matching,
// e.g. "Mozilla/5.0 (compatible; NewsCheck/1.0)" becomes "NewsCheck".
func NormalizeUserAgent(ua string) string {
	if start := strings.Index(ua, "compatible;"); start >= 0 {
		rest := strings.TrimSpace(ua[start+len("compatible;"):])
		rest = strings.TrimRight(rest, ")")
		if fields := strings.Fields(rest); len(fields) > 0 {
			return strings.Split(fields[0], "/")[0]
		}
	}

	parts := strings.Fields(ua)
	if len(parts) > 0 {
		return strings.Split(parts[0], "/")[0]
	}
	return ua
}
