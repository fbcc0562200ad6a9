// Package queue implements the durable FIFO of pending verification tasks.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xknstntn/news-checker/internal/model"
)

// ErrMalformedTask marks an envelope that can never be processed
var ErrMalformedTask = errors.New("malformed task")

// Message is one claimed payload. Raw is kept verbatim so Ack can find it.
type Message struct {
	Raw string
}

// Queue is a durable FIFO with blocking, timeout-bounded dequeue.
//
// Dequeue returns ok=false and a nil error on timeout. A dequeued message is
// owned by the caller until Ack; messages left unacknowledged by a crashed
// process are returned to the queue by Recover.
type Queue interface {
	Enqueue(ctx context.Context, payload []byte) error
	Dequeue(ctx context.Context, timeout time.Duration) (Message, bool, error)
	Ack(ctx context.Context, msg Message) error
	Recover(ctx context.Context) (int, error)
	Len(ctx context.Context) (int64, error)
	Close() error
}

// EnqueueTask encodes task as an envelope and appends it to q
func EnqueueTask(ctx context.Context, q Queue, task model.Task) error {
	payload, err := EncodeTask(task)
	if err != nil {
		return err
	}
	if err := q.Enqueue(ctx, payload); err != nil {
		return fmt.Errorf("enqueue task %s: %w", task.ID, err)
	}
	return nil
}

// Open creates the queue described by cfg
func Open(cfg model.QueueConfig) (Queue, error) {
	switch cfg.Backend {
	case "redis":
		return NewRedisQueue(cfg), nil
	case "memory":
		return NewMemoryQueue(), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}
}
