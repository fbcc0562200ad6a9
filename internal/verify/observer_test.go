package verify

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0xknstntn/news-checker/internal/model"
)

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogObserver(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	ctx := context.Background()

	obs.Observe(ctx, Event{Kind: EventRunStarted, TaskID: "t1", Strategy: "heuristic"})
	obs.Observe(ctx, Event{Kind: EventToolResult, TaskID: "t1", Tool: "fetch", Target: "https://a.example/", Err: "blocked:404"})
	obs.Observe(ctx, Event{Kind: EventRunFinished, TaskID: "t1", Label: model.LabelUnclear, Score: 40})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(t, lines, 3) {
		assert.Contains(t, lines[0], `"msg":"run_started"`)
		assert.Contains(t, lines[0], `"task_id":"t1"`)
		assert.Contains(t, lines[1], `"level":"WARN"`)
		assert.Contains(t, lines[1], `"err":"blocked:404"`)
		assert.Contains(t, lines[2], `"label":"Unclear"`)
	}
}

func TestObserverFunc(t *testing.T) {
	var got []EventKind
	f := ObserverFunc(func(ctx context.Context, e Event) { got = append(got, e.Kind) })
	f.Observe(context.Background(), Event{Kind: EventStep})
	assert.Equal(t, []EventKind{EventStep}, got)
}
