package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/0xknstntn/news-checker/internal/verify"
)

// SpanObserver records orchestrator lifecycle events on the active span
type SpanObserver struct{}

// Observe adds e as an event on the span carried by ctx
func (SpanObserver) Observe(ctx context.Context, e verify.Event) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{attribute.String("task.id", e.TaskID)}
	switch e.Kind {
	case verify.EventRunStarted:
		attrs = append(attrs, attribute.String("verify.strategy", e.Strategy))
	case verify.EventStep:
		attrs = append(attrs,
			attribute.Int("verify.step", e.Step),
			attribute.String("verify.action", string(e.Action)),
			attribute.String("verify.reason", e.Reason),
		)
	case verify.EventToolResult:
		attrs = append(attrs,
			attribute.String("verify.tool", e.Tool),
			attribute.String("verify.target", e.Target),
			attribute.Int("verify.items", e.Items),
		)
		if e.Err != "" {
			attrs = append(attrs, attribute.String("error", e.Err))
		}
	case verify.EventRunFinished:
		attrs = append(attrs,
			attribute.String("verify.label", string(e.Label)),
			attribute.Int("verify.score", e.Score),
			attribute.Int64("verify.duration_ms", e.Duration.Milliseconds()),
		)
		if e.Err != "" {
			attrs = append(attrs, attribute.String("error", e.Err))
		}
	}
	span.AddEvent(string(e.Kind), trace.WithAttributes(attrs...))
}
