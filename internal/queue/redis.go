package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/0xknstntn/news-checker/internal/model"
)

// RedisQueue is a reliable queue on a Redis list.
//
// Producers LPUSH onto Key. A consumer atomically moves the oldest element
// into its own processing list (BLMOVE) and removes it from there on Ack, so
// a crash between claim and Ack leaves the payload recoverable.
type RedisQueue struct {
	cfg model.QueueConfig

	once   sync.Once
	client *redis.Client
}

// NewRedisQueue creates a queue; the connection is opened on first use
func NewRedisQueue(cfg model.QueueConfig) *RedisQueue {
	return &RedisQueue{cfg: cfg}
}

// newRedisQueueWithClient is used by tests to inject a client
func newRedisQueueWithClient(cfg model.QueueConfig, client *redis.Client) *RedisQueue {
	q := &RedisQueue{cfg: cfg, client: client}
	q.once.Do(func() {})
	return q
}

func (q *RedisQueue) conn() *redis.Client {
	q.once.Do(func() {
		q.client = redis.NewClient(&redis.Options{
			Addr:     q.cfg.Addr,
			Password: q.cfg.Password,
			DB:       q.cfg.DB,
		})
	})
	return q.client
}

// ProcessingKey is the per-consumer list holding claimed, unacknowledged payloads
func (q *RedisQueue) ProcessingKey() string {
	return q.cfg.Key + ":processing:" + q.cfg.ConsumerID
}

// Enqueue appends payload to the tail of the FIFO
func (q *RedisQueue) Enqueue(ctx context.Context, payload []byte) error {
	if err := q.conn().LPush(ctx, q.cfg.Key, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.cfg.Key, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the oldest payload
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	raw, err := q.conn().BLMove(ctx, q.cfg.Key, q.ProcessingKey(), "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, fmt.Errorf("blmove %s: %w", q.cfg.Key, err)
	}
	return Message{Raw: raw}, true, nil
}

// Ack removes msg from the processing list
func (q *RedisQueue) Ack(ctx context.Context, msg Message) error {
	if err := q.conn().LRem(ctx, q.ProcessingKey(), 1, msg.Raw).Err(); err != nil {
		return fmt.Errorf("lrem %s: %w", q.ProcessingKey(), err)
	}
	return nil
}

// Recover moves payloads left in this consumer's processing list back to the
// head of the queue so they are delivered next. It returns how many moved.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.conn().LMove(ctx, q.ProcessingKey(), q.cfg.Key, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("lmove %s: %w", q.ProcessingKey(), err)
		}
		moved++
	}
}

// Len returns the number of pending payloads
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.conn().LLen(ctx, q.cfg.Key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", q.cfg.Key, err)
	}
	return n, nil
}

// Ping checks connectivity
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.conn().Ping(ctx).Err()
}

// Close releases the connection pool
func (q *RedisQueue) Close() error {
	var err error
	q.once.Do(func() {})
	if q.client != nil {
		err = q.client.Close()
	}
	return err
}
