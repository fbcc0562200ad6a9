package search

import (
	"sync"
	"time"
)

// Breaker disables a backend for a cooldown after consecutive failures.
// A nil Breaker always allows.
type Breaker struct {
	mu            sync.Mutex
	maxFailures   int
	cooldown      time.Duration
	failures      int
	disabledUntil time.Time
	trial         bool // A half-open trial call is in flight
	now           func() time.Time
}

// NewBreaker creates a breaker; maxFailures <= 0 never trips
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Allow reports whether a call may proceed. After the cooldown a single
// trial call is let through and other callers are refused until it
// records its outcome, which decides whether the breaker closes.
func (b *Breaker) Allow() bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disabledUntil.IsZero() {
		return true
	}
	if b.trial || !b.now().After(b.disabledUntil) {
		return false
	}
	b.trial = true
	return true
}

// RecordFailure counts a failed call and trips the breaker at the threshold.
// A failed trial call restarts the cooldown.
func (b *Breaker) RecordFailure() {
	if b == nil || b.maxFailures <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
	b.failures++
	if b.failures >= b.maxFailures {
		b.disabledUntil = b.now().Add(b.cooldown)
	}
}

// RecordSuccess resets the breaker
func (b *Breaker) RecordSuccess() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.trial = false
	b.disabledUntil = time.Time{}
}

// DisabledUntil returns the end of the current cooldown, zero when closed
func (b *Breaker) DisabledUntil() time.Time {
	if b == nil {
		return time.Time{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disabledUntil
}
