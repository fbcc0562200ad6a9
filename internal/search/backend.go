// Package search implements the evidence retriever and its search backends.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xknstntn/news-checker/internal/model"
)

var (
	// ErrBackendOpen is returned while a backend's circuit breaker is open
	ErrBackendOpen = errors.New("backend temporarily disabled")

	// ErrPermanent marks failures that retrying cannot fix (bad credentials, missing key)
	ErrPermanent = errors.New("permanent backend failure")
)

// Query is one search request as seen by a backend
type Query struct {
	Text        string
	MaxResults  int
	RecencyDays int
}

// Backend is one independent search engine
type Backend interface {
	Name() model.Engine
	Search(ctx context.Context, q Query) ([]model.EvidenceItem, error)
}

// webResultCap bounds general web engines, which are noisier than news engines
const webResultCap = 6

func webLimit(n int) int {
	if n > webResultCap {
		return webResultCap
	}
	return n
}

// statusError classifies a non-2xx backend response
func statusError(engine model.Engine, status int) error {
	if status == 401 || status == 403 {
		return fmt.Errorf("%s: status %d: %w", engine, status, ErrPermanent)
	}
	return fmt.Errorf("%s: status %d", engine, status)
}
