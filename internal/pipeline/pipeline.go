// Package pipeline turns one queued payload into a delivered report:
// decode, verify, render, deliver and journal.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/0xknstntn/news-checker/internal/dispatch"
	"github.com/0xknstntn/news-checker/internal/journal"
	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/queue"
)

// Verifier produces a verification result for one task
type Verifier interface {
	Run(ctx context.Context, task model.Task) (*model.VerificationResult, error)
	Strategy() string
}

// Recorder persists task outcomes
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (int64, error)
}

// Pipeline is the per-task handler run by the consumer workers
type Pipeline struct {
	verifier   Verifier
	dispatcher dispatch.Dispatcher
	journal    Recorder // nil when journaling is disabled
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// New creates a pipeline. rec may be nil.
func New(verifier Verifier, dispatcher dispatch.Dispatcher, rec Recorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		verifier:   verifier,
		dispatcher: dispatcher,
		journal:    rec,
		logger:     logger,
		tracer:     otel.Tracer("github.com/0xknstntn/news-checker/internal/pipeline"),
		now:        time.Now,
	}
}

// Handle processes one raw envelope. A returned error means the task was
// dropped; delivery failures are journaled and do not return an error.
func (p *Pipeline) Handle(ctx context.Context, payload []byte) error {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "pipeline.handle")
	defer span.End()

	task, err := queue.DecodeTask(payload)
	if err != nil {
		p.fail(ctx, span, journal.Entry{Outcome: model.OutcomeDropped, Payload: string(payload)}, start, err)
		return err
	}
	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("task.conversation_id", task.ConversationID),
	)
	logger := p.logger.With("task_id", task.ID, "conversation_id", task.ConversationID)

	res, err := p.verifier.Run(ctx, task)
	if err != nil {
		err = fmt.Errorf("verify task %s: %w", task.ID, err)
		p.fail(ctx, span, entryFor(task, model.OutcomeDropped, payload), start, err)
		return err
	}

	text := dispatch.FormatResult(res)
	if err := p.dispatcher.Deliver(ctx, task.ConversationID, text); err != nil {
		logger.Warn("delivery failed", "dispatcher", p.dispatcher.Name(), "err", err)
		e := entryFor(task, model.OutcomeDeliveryFailed, payload)
		e.Result = res
		p.fail(ctx, span, e, start, err)
		return nil
	}

	logger.Info("task delivered", "label", res.Label, "score", res.Score, "duration", p.now().Sub(start))
	e := entryFor(task, model.OutcomeSucceeded, nil)
	e.Result = res
	p.record(ctx, e, start)
	span.SetAttributes(attribute.String("verify.label", string(res.Label)))
	return nil
}

// ReportPanic journals a task whose handler panicked
func (p *Pipeline) ReportPanic(ctx context.Context, payload []byte, recovered any, stack []byte) {
	e := journal.Entry{Outcome: model.OutcomePanicked, Payload: string(payload), Error: fmt.Sprint(recovered)}
	if task, err := queue.DecodeTask(payload); err == nil {
		e.TaskID = task.ID
		e.ConversationID = task.ConversationID
	}
	p.record(ctx, e, time.Time{})
}

// Check verifies a single free-text input without delivering it
func (p *Pipeline) Check(ctx context.Context, input string) (*model.VerificationResult, error) {
	task := model.NewTask(input, "local")
	if task.Input == "" {
		return nil, fmt.Errorf("%w: input is required", queue.ErrMalformedTask)
	}
	return p.verifier.Run(ctx, task)
}

func entryFor(task model.Task, outcome model.Outcome, payload []byte) journal.Entry {
	return journal.Entry{
		TaskID:         task.ID,
		ConversationID: task.ConversationID,
		Outcome:        outcome,
		Payload:        string(payload),
	}
}

func (p *Pipeline) fail(ctx context.Context, span trace.Span, e journal.Entry, start time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("task.outcome", string(e.Outcome)))
	e.Error = err.Error()
	p.record(ctx, e, start)
}

func (p *Pipeline) record(ctx context.Context, e journal.Entry, start time.Time) {
	if p.journal == nil {
		return
	}
	if !start.IsZero() {
		e.Duration = p.now().Sub(start)
	}
	if _, err := p.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		p.logger.Warn("journal write failed", "task_id", e.TaskID, "outcome", e.Outcome, "err", err)
	}
}

