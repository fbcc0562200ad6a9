package search

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/0xknstntn/news-checker/internal/cache"
	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/util"
)

// NewBackends builds the configured backends in configured order
func NewBackends(cfg model.SearchConfig, userAgent string) ([]Backend, error) {
	httpClient := util.NewHTTPClient(cfg.Timeout, cfg.Proxy)
	serp := NewSerpAPIClient(cfg.SerpAPIBaseURL, cfg.SerpAPIKey, httpClient)

	var backends []Backend
	for _, name := range cfg.Engines {
		switch model.Engine(name) {
		case model.EngineGoogleNews:
			backends = append(backends, NewGoogleNewsBackend(serp))
		case model.EngineGoogleWeb:
			backends = append(backends, NewGoogleWebBackend(serp))
		case model.EngineDuckDuckGoWeb:
			backends = append(backends, NewDuckDuckGoBackend(cfg.DuckDuckGoURL, userAgent, httpClient))
		default:
			return nil, fmt.Errorf("unknown search engine %q", name)
		}
	}
	return backends, nil
}

// NewRetrieverFromConfig wires backends, breakers and cache from configuration
func NewRetrieverFromConfig(cfg model.SearchConfig, userAgent string, c cache.Cache, cacheTTL time.Duration, logger *slog.Logger) (*Retriever, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backends, err := NewBackends(cfg, userAgent)
	if err != nil {
		return nil, err
	}
	if cfg.SerpAPIKey == "" {
		logger.Warn("SERPAPI_API_KEY not set; Google engines will contribute nothing")
	}

	return NewRetriever(backends, RetrieverOptions{
		Timeout:         cfg.Timeout,
		Retries:         cfg.Retries,
		RetryBackoff:    cfg.RetryBackoff,
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
		Cache:           c,
		CacheTTL:        cacheTTL,
	}, logger), nil
}
