package verify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/search"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRetriever struct {
	mu      sync.Mutex
	queries []search.Query
	respond func(q search.Query) search.Report
}

func (f *fakeRetriever) Retrieve(ctx context.Context, q search.Query) search.Report {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.respond == nil {
		return search.Report{}
	}
	return f.respond(q)
}

func (f *fakeRetriever) seen() []search.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]search.Query(nil), f.queries...)
}

type fakeExtractor struct {
	mu    sync.Mutex
	urls  []string
	pages map[string]string
}

func (f *fakeExtractor) Fetch(ctx context.Context, url string, charLimit int) model.Excerpt {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()

	body, ok := f.pages[url]
	if !ok {
		return model.Excerpt{URL: url, Error: "blocked:404"}
	}
	return model.Excerpt{URL: url, BodyText: body, FetchedAt: testNow}
}

func (f *fakeExtractor) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(ctx context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func newTestOrchestrator(r Retriever, e Extractor, s Strategy, observers ...Observer) *Orchestrator {
	return NewOrchestrator(r, e, s, Options{
		Limits:    DefaultLimits(),
		Observers: observers,
		Now:       func() time.Time { return testNow },
	}, discardLogger())
}

func newTask(input string) model.Task {
	return model.Task{ID: "task-1", Input: input, ConversationID: "42", CreatedAt: testNow}
}
