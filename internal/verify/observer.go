package verify

import (
	"context"
	"log/slog"
	"time"

	"github.com/0xknstntn/news-checker/internal/model"
)

// EventKind names a lifecycle event of a run
type EventKind string

const (
	EventRunStarted  EventKind = "run_started"
	EventStep        EventKind = "step"
	EventToolResult  EventKind = "tool_result"
	EventRunFinished EventKind = "run_finished"
)

// Event is emitted to every observer. Fields not relevant to Kind are zero.
type Event struct {
	Kind     EventKind
	TaskID   string
	Strategy string
	At       time.Time

	// step
	Step   int
	Action ActionKind
	Reason string

	// tool_result
	Tool   string // "plan", "search" or "fetch"
	Target string // Query text or URL
	Items  int
	Err    string

	// run_finished
	Label    model.Label
	Score    int
	Duration time.Duration
}

// Observer receives lifecycle events. Observe runs on the orchestrator's
// goroutines and must not block.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ctx context.Context, e Event)

// Observe calls f
func (f ObserverFunc) Observe(ctx context.Context, e Event) { f(ctx, e) }

// LogObserver narrates runs through a structured logger
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a log observer
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

// Observe logs the event; tool failures log at warn level
func (o *LogObserver) Observe(ctx context.Context, e Event) {
	logger := o.logger.With("task_id", e.TaskID)
	switch e.Kind {
	case EventRunStarted:
		logger.InfoContext(ctx, "run_started", "strategy", e.Strategy)
	case EventStep:
		logger.DebugContext(ctx, "step", "step", e.Step, "action", e.Action, "reason", e.Reason)
	case EventToolResult:
		if e.Err != "" {
			logger.WarnContext(ctx, "tool_result", "tool", e.Tool, "target", e.Target, "err", e.Err)
			return
		}
		logger.DebugContext(ctx, "tool_result", "tool", e.Tool, "target", e.Target, "items", e.Items)
	case EventRunFinished:
		if e.Err != "" {
			logger.WarnContext(ctx, "run_finished", "err", e.Err, "duration", e.Duration)
			return
		}
		logger.InfoContext(ctx, "run_finished", "label", e.Label, "score", e.Score, "steps", e.Step, "duration", e.Duration)
	}
}
