package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue for one-shot runs and tests.
// It is not durable; Recover returns unacknowledged messages to the head.
type MemoryQueue struct {
	mu       sync.Mutex
	items    []string
	inflight map[string]int
	notify   chan struct{}
}

// NewMemoryQueue creates an empty queue
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		inflight: make(map[string]int),
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue appends payload
func (q *MemoryQueue) Enqueue(ctx context.Context, payload []byte) error {
	q.mu.Lock()
	q.items = append(q.items, string(payload))
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue waits up to timeout for the oldest payload
func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if msg, ok := q.pop(); ok {
			return msg, true, nil
		}
		select {
		case <-q.notify:
		case <-timer.C:
			return Message{}, false, nil
		case <-ctx.Done():
			return Message{}, false, ctx.Err()
		}
	}
}

func (q *MemoryQueue) pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Message{}, false
	}
	raw := q.items[0]
	q.items = q.items[1:]
	q.inflight[raw]++

	// Wake another waiter if more work remains
	if len(q.items) > 0 {
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return Message{Raw: raw}, true
}

// Ack forgets msg
func (q *MemoryQueue) Ack(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n := q.inflight[msg.Raw]; n > 1 {
		q.inflight[msg.Raw] = n - 1
	} else {
		delete(q.inflight, msg.Raw)
	}
	return nil
}

// Recover puts unacknowledged messages back at the head
func (q *MemoryQueue) Recover(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var back []string
	for raw, n := range q.inflight {
		for i := 0; i < n; i++ {
			back = append(back, raw)
		}
	}
	q.inflight = make(map[string]int)
	q.items = append(back, q.items...)
	return len(back), nil
}

// Len returns the number of pending payloads
func (q *MemoryQueue) Len(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

// Close is a no-op
func (q *MemoryQueue) Close() error {
	return nil
}
