package worker

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xknstntn/news-checker/internal/queue"
)

// Handler processes one claimed payload. A returned error is terminal for
// that task; the message is acknowledged either way.
type Handler interface {
	Handle(ctx context.Context, payload []byte) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, payload []byte) error

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}

// PanicReporter is implemented by handlers that record recovered panics
type PanicReporter interface {
	ReportPanic(ctx context.Context, payload []byte, recovered any, stack []byte)
}

// ConsumerOptions configures a Consumer
type ConsumerOptions struct {
	Workers        int           // Concurrent workers, default 5
	DequeueTimeout time.Duration // Upper bound on shutdown latency, default 1s
	ErrorSleep     time.Duration // Pause after a queue error, default 1s
}

// Stats is a snapshot of consumer counters
type Stats struct {
	Processed int64
	Failed    int64
	Panicked  int64
	InFlight  int64
}

// Consumer runs a fixed pool of workers that pull tasks from a queue.
//
// Each worker handles one task at a time. Stop sets a flag that workers
// observe between dequeue timeouts; in-flight tasks always run to completion.
type Consumer struct {
	queue   queue.Queue
	handler Handler
	opts    ConsumerOptions
	logger  *slog.Logger

	stopping atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	processed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
	inflight  atomic.Int64
}

// NewConsumer creates a consumer
func NewConsumer(q queue.Queue, h Handler, opts ConsumerOptions, logger *slog.Logger) *Consumer {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.DequeueTimeout <= 0 {
		opts.DequeueTimeout = time.Second
	}
	if opts.ErrorSleep <= 0 {
		opts.ErrorSleep = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		queue:   q,
		handler: h,
		opts:    opts,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Run returns claimed-but-unacknowledged tasks to the queue, starts the
// workers and blocks until ctx is done or Stop is called and every worker
// has exited.
func (c *Consumer) Run(ctx context.Context) error {
	// Workers must not be interrupted mid-task, so they get a context that
	// outlives the shutdown signal.
	base := context.WithoutCancel(ctx)

	if n, err := c.queue.Recover(base); err != nil {
		c.logger.Warn("recover processing list failed", "err", err)
	} else if n > 0 {
		c.logger.Info("recovered unacknowledged tasks", "count", n)
	}

	c.logger.Info("consumer started", "workers", c.opts.Workers, "dequeue_timeout", c.opts.DequeueTimeout)

	for i := 0; i < c.opts.Workers; i++ {
		c.wg.Add(1)
		go c.worker(base, i)
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		c.Stop()
		<-done
	case <-done:
	}

	c.logger.Info("consumer stopped",
		"processed", c.processed.Load(),
		"failed", c.failed.Load(),
		"panicked", c.panicked.Load())
	return nil
}

// Stop asks workers to exit after their current dequeue or task
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		c.stopping.Store(true)
		close(c.stopCh)
		c.logger.Info("shutdown requested", "in_flight", c.inflight.Load())
	})
}

// Stats returns a snapshot of the counters
func (c *Consumer) Stats() Stats {
	return Stats{
		Processed: c.processed.Load(),
		Failed:    c.failed.Load(),
		Panicked:  c.panicked.Load(),
		InFlight:  c.inflight.Load(),
	}
}

func (c *Consumer) worker(ctx context.Context, id int) {
	defer c.wg.Done()
	logger := c.logger.With("worker", id)

	for !c.stopping.Load() {
		msg, ok, err := c.queue.Dequeue(ctx, c.opts.DequeueTimeout)
		if err != nil {
			logger.Warn("dequeue failed", "err", err)
			c.pause(c.opts.ErrorSleep)
			continue
		}
		if !ok {
			continue
		}
		c.process(ctx, logger, msg)
	}
}

// pause sleeps for d unless shutdown is requested first
func (c *Consumer) pause(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-c.stopCh:
	}
}

func (c *Consumer) process(ctx context.Context, logger *slog.Logger, msg queue.Message) {
	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	defer func() {
		if err := c.queue.Ack(ctx, msg); err != nil {
			logger.Warn("ack failed", "err", err)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			c.panicked.Add(1)
			logger.Error("task panicked", "panic", r, "stack", string(stack))
			if pr, ok := c.handler.(PanicReporter); ok {
				pr.ReportPanic(ctx, []byte(msg.Raw), r, stack)
			}
		}
	}()

	c.processed.Add(1)
	if err := c.handler.Handle(ctx, []byte(msg.Raw)); err != nil {
		c.failed.Add(1)
		logger.Warn("task dropped", "err", err)
	}
}
