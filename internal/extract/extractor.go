// Package extract fetches evidence pages and turns them into bounded excerpts.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/0xknstntn/news-checker/internal/cache"
	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/util"
	"github.com/0xknstntn/news-checker/internal/worker"
)

// Error tags carried by failed excerpts
const (
	TagInvalidURL    = "invalid_url"
	TagBlockedRobots = "blocked:robots"
	TagEmpty         = "empty"
	tagBlockedPrefix = "blocked:"
)

// Extractor fetches a URL and returns its readable text. It never returns
// an error; failures are reported in Excerpt.Error.
type Extractor struct {
	fetcher  *Fetcher
	robots   *util.RobotsChecker
	limiter  *worker.Limiter
	cache    cache.Cache
	cacheTTL time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// ExtractorOptions configures optional collaborators; nil fields disable them
type ExtractorOptions struct {
	Robots   *util.RobotsChecker
	Limiter  *worker.Limiter
	Cache    cache.Cache
	CacheTTL time.Duration
	Timeout  time.Duration // Overall bound per Fetch call, including retries
}

// NewExtractor creates an extractor
func NewExtractor(fetcher *Fetcher, opts ExtractorOptions, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Extractor{
		fetcher:  fetcher,
		robots:   opts.Robots,
		limiter:  opts.Limiter,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		timeout:  opts.Timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// NewExtractorFromConfig wires fetcher, robots checker, limiter and cache
func NewExtractorFromConfig(cfg model.ExtractConfig, c cache.Cache, cacheTTL time.Duration, logger *slog.Logger) *Extractor {
	client := util.NewHTTPClient(cfg.Timeout, cfg.Proxy)
	opts := ExtractorOptions{
		Limiter:  worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		Cache:    c,
		CacheTTL: cacheTTL,
		Timeout:  cfg.Timeout * time.Duration(cfg.Retries+2),
	}
	if cfg.RespectRobots {
		opts.Robots = util.NewRobotsChecker(client, cfg.UserAgent)
	}
	return NewExtractor(NewFetcher(client, cfg.UserAgent, cfg.MaxBodyBytes, cfg.Retries), opts, logger)
}

// Fetch returns an Excerpt for rawURL with body text truncated to charLimit runes
func (e *Extractor) Fetch(ctx context.Context, rawURL string, charLimit int) model.Excerpt {
	rawURL = strings.TrimSpace(rawURL)
	logger := e.logger.With("url", rawURL)

	if !validURL(rawURL) {
		return model.Excerpt{URL: rawURL, Error: TagInvalidURL}
	}

	key := cache.Key("extract", rawURL, strconv.Itoa(charLimit))
	var cached model.Excerpt
	if cache.GetJSON(e.cache, key, &cached) {
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.robots != nil && !e.robots.Allowed(ctx, rawURL) {
		logger.Debug("disallowed by robots.txt")
		return model.Excerpt{URL: rawURL, Error: TagBlockedRobots}
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, rawURL); err != nil {
			return model.Excerpt{URL: rawURL, Error: err.Error()}
		}
	}

	result, err := e.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		tag := errorTag(err)
		logger.Debug("fetch failed", "err", err, "tag", tag)
		return model.Excerpt{URL: rawURL, Error: tag}
	}

	if !textual(result.ContentType) {
		return model.Excerpt{URL: rawURL, Error: TagEmpty}
	}

	fetchedAt := e.now().UTC().Truncate(time.Second)
	text := ReadableText(result.HTML)
	text = util.NormalizeRelativeDates(text, fetchedAt)
	if text == "" {
		return model.Excerpt{URL: rawURL, Error: TagEmpty}
	}

	excerpt := model.Excerpt{
		URL:       rawURL,
		Title:     DeriveTitle(text),
		BodyText:  Truncate(text, charLimit),
		FetchedAt: fetchedAt,
	}

	if err := cache.SetJSON(e.cache, key, excerpt, e.cacheTTL); err != nil {
		logger.Debug("cache write failed", "err", err)
	}
	return excerpt
}

// Truncate cuts s to at most limit runes; a non-positive limit keeps s
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// errorTag maps a fetch error to the excerpt error tag
func errorTag(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return tagBlockedPrefix + strconv.Itoa(statusErr.Code)
	}
	return err.Error()
}

func validURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// textual accepts HTML, XML and plain text; an absent header is accepted
func textual(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/") || strings.Contains(ct, "html") || strings.Contains(ct, "xml")
}
