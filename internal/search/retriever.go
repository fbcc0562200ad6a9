package search

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/0xknstntn/news-checker/internal/cache"
	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/util"
)

// RetrieverOptions configures a Retriever
type RetrieverOptions struct {
	Timeout         time.Duration // Per backend attempt
	Retries         int           // Extra attempts after the first
	RetryBackoff    time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
	Cache           cache.Cache
	CacheTTL        time.Duration
	Sleep           util.SleepFunc
	Now             func() time.Time
}

// Report is the outcome of one retrieval, including per-backend failures
type Report struct {
	Items    []model.EvidenceItem
	Failures map[model.Engine]error
}

// Retriever fans a query out to every backend and merges the results
type Retriever struct {
	backends []Backend
	breakers map[model.Engine]*Breaker
	opts     RetrieverOptions
	logger   *slog.Logger
}

// NewRetriever creates a retriever over backends in their priority order
func NewRetriever(backends []Backend, opts RetrieverOptions, logger *slog.Logger) *Retriever {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	breakers := make(map[model.Engine]*Breaker, len(backends))
	for _, b := range backends {
		br := NewBreaker(opts.BreakerFailures, opts.BreakerCooldown)
		br.now = opts.Now
		breakers[b.Name()] = br
	}

	return &Retriever{
		backends: backends,
		breakers: breakers,
		opts:     opts,
		logger:   logger,
	}
}

// Search returns up to maxResults unique items, newest first. It never fails;
// a backend failure only removes that backend's contribution.
func (r *Retriever) Search(ctx context.Context, query string, maxResults, recencyDays int) []model.EvidenceItem {
	return r.Retrieve(ctx, Query{Text: query, MaxResults: maxResults, RecencyDays: recencyDays}).Items
}

// Retrieve is Search with per-backend failure detail
func (r *Retriever) Retrieve(ctx context.Context, q Query) Report {
	if q.MaxResults <= 0 {
		q.MaxResults = 8
	}

	contributions := make([][]model.EvidenceItem, len(r.backends))
	failures := make(map[model.Engine]error)
	var mu sync.Mutex

	var g errgroup.Group
	for i, b := range r.backends {
		i, b := i, b
		g.Go(func() error {
			items, err := r.searchBackend(ctx, b, q)
			if err != nil {
				mu.Lock()
				failures[b.Name()] = err
				mu.Unlock()
				return nil
			}
			contributions[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var merged []model.EvidenceItem
	for _, items := range contributions {
		merged = append(merged, items...)
	}

	merged = Dedupe(merged)
	SortByDate(merged)
	if len(merged) > q.MaxResults {
		merged = merged[:q.MaxResults]
	}

	r.logger.Debug("retrieval finished", "query", q.Text, "items", len(merged), "failed_backends", len(failures))
	return Report{Items: merged, Failures: failures}
}

// searchBackend runs one backend with breaker, cache, retry and recency filter
func (r *Retriever) searchBackend(ctx context.Context, b Backend, q Query) ([]model.EvidenceItem, error) {
	logger := r.logger.With("engine", b.Name(), "query", q.Text)
	key := cache.Key("search", string(b.Name()), q.Text, strconv.Itoa(q.MaxResults), strconv.Itoa(q.RecencyDays))
	var cached []model.EvidenceItem
	if cache.GetJSON(r.opts.Cache, key, &cached) {
		return FilterRecent(cached, q.RecencyDays, r.opts.Now()), nil
	}

	// Every allowed call records an outcome below
	breaker := r.breakers[b.Name()]
	if !breaker.Allow() {
		logger.Debug("backend skipped", "disabled_until", breaker.DisabledUntil())
		return nil, ErrBackendOpen
	}

	var items []model.EvidenceItem
	err := util.Retry(ctx, util.RetryPolicy{
		Attempts:  r.opts.Retries + 1,
		Backoff:   r.opts.RetryBackoff,
		Sleep:     r.opts.Sleep,
		Retryable: func(err error) bool { return !errors.Is(err, ErrPermanent) },
	}, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()

		var err error
		items, err = b.Search(callCtx, q)
		return err
	})
	if err != nil {
		breaker.RecordFailure()
		logger.Warn("backend failed", "err", err)
		return nil, err
	}
	breaker.RecordSuccess()

	items = FilterRecent(items, q.RecencyDays, r.opts.Now())
	if err := cache.SetJSON(r.opts.Cache, key, items, r.opts.CacheTTL); err != nil {
		logger.Debug("cache write failed", "err", err)
	}
	return items, nil
}

// Engines returns the configured backend names in priority order
func (r *Retriever) Engines() []model.Engine {
	names := make([]model.Engine, len(r.backends))
	for i, b := range r.backends {
		names[i] = b.Name()
	}
	return names
}
