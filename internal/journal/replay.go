package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xknstntn/news-checker/internal/model"
)

// ErrNotReplayable is returned for entries that cannot be re-enqueued
var ErrNotReplayable = errors.New("journal entry cannot be replayed")

// Enqueuer accepts raw task envelopes
type Enqueuer interface {
	Enqueue(ctx context.Context, payload []byte) error
}

// Replay pushes the stored payload of a failed entry back onto q.
// Succeeded entries and entries without a payload are refused.
func (s *Store) Replay(ctx context.Context, id int64, q Enqueuer) (Entry, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if e.Outcome == model.OutcomeSucceeded {
		return e, fmt.Errorf("%w: entry %d already succeeded", ErrNotReplayable, id)
	}
	if e.Payload == "" {
		return e, fmt.Errorf("%w: entry %d has no payload", ErrNotReplayable, id)
	}
	if err := q.Enqueue(ctx, []byte(e.Payload)); err != nil {
		return e, fmt.Errorf("replay entry %d: %w", id, err)
	}
	return e, nil
}
