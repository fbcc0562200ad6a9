package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xknstntn/news-checker/internal/dispatch"
	"github.com/0xknstntn/news-checker/internal/journal"
	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/queue"
	"github.com/0xknstntn/news-checker/internal/search"
	"github.com/0xknstntn/news-checker/internal/verify"
	"github.com/0xknstntn/news-checker/internal/worker"
)

var (
	_ worker.Handler       = (*Pipeline)(nil)
	_ worker.PanicReporter = (*Pipeline)(nil)
	_ worker.Checker       = (*Pipeline)(nil)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubVerifier struct {
	res   *model.VerificationResult
	err   error
	panic bool
	tasks []model.Task
}

func (s *stubVerifier) Run(ctx context.Context, task model.Task) (*model.VerificationResult, error) {
	if s.panic {
		panic("boom")
	}
	s.tasks = append(s.tasks, task)
	return s.res, s.err
}

func (s *stubVerifier) Strategy() string { return "stub" }

type delivery struct {
	conversationID string
	text           string
}

type stubDispatcher struct {
	mu   sync.Mutex
	sent []delivery
	err  error
}

func (d *stubDispatcher) Name() string { return "stub" }

func (d *stubDispatcher) Deliver(ctx context.Context, conversationID, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, delivery{conversationID, text})
	return nil
}

func (d *stubDispatcher) deliveries() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivery(nil), d.sent...)
}

func openJournal(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func onlyEntry(t *testing.T, store *journal.Store) journal.Entry {
	t.Helper()
	entries, err := store.List(context.Background(), journal.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0]
}

var likelyTrue = &model.VerificationResult{
	Label:       model.LabelLikelyTrue,
	Score:       78,
	Notes:       "Checked two outlets.",
	SourceLinks: []string{"https://www.reuters.com/a"},
	Strategy:    "stub",
}

func TestHandleSucceeded(t *testing.T) {
	store := openJournal(t)
	v := &stubVerifier{res: likelyTrue}
	d := &stubDispatcher{}
	p := New(v, d, store, discardLogger())

	err := p.Handle(context.Background(), []byte(`{"input":"Company X laid off 500 employees","chat_id":42}`))
	require.NoError(t, err)

	require.Len(t, v.tasks, 1)
	assert.Equal(t, "Company X laid off 500 employees", v.tasks[0].Input)

	sent := d.deliveries()
	require.Len(t, sent, 1)
	assert.Equal(t, "42", sent[0].conversationID)
	assert.Equal(t, dispatch.FormatResult(likelyTrue), sent[0].text)

	e := onlyEntry(t, store)
	assert.Equal(t, model.OutcomeSucceeded, e.Outcome)
	assert.Equal(t, "42", e.ConversationID)
	assert.Equal(t, model.LabelLikelyTrue, e.Label)
	assert.Equal(t, 78, e.Score)
	assert.Empty(t, e.Payload, "successful payloads are not kept")
}

func TestHandleMalformed(t *testing.T) {
	store := openJournal(t)
	v := &stubVerifier{res: likelyTrue}
	d := &stubDispatcher{}
	p := New(v, d, store, discardLogger())

	payload := `{"text":"no input field"}`
	err := p.Handle(context.Background(), []byte(payload))
	require.ErrorIs(t, err, queue.ErrMalformedTask)
	assert.Empty(t, v.tasks)
	assert.Empty(t, d.deliveries())

	e := onlyEntry(t, store)
	assert.Equal(t, model.OutcomeDropped, e.Outcome)
	assert.Equal(t, payload, e.Payload)
	assert.Contains(t, e.Error, "malformed task")
}

func TestHandleVerifyError(t *testing.T) {
	store := openJournal(t)
	p := New(&stubVerifier{err: verify.ErrNoPlan}, &stubDispatcher{}, store, discardLogger())

	err := p.Handle(context.Background(), []byte(`{"input":"   ...   ","conversation_id":"c1"}`))
	require.ErrorIs(t, err, verify.ErrNoPlan)

	e := onlyEntry(t, store)
	assert.Equal(t, model.OutcomeDropped, e.Outcome)
	assert.Equal(t, "c1", e.ConversationID)
	assert.NotEmpty(t, e.Payload)
}

func TestHandleDeliveryFailed(t *testing.T) {
	store := openJournal(t)
	d := &stubDispatcher{err: errors.Join(dispatch.ErrDeliveryFailed, errors.New("status 403"))}
	p := New(&stubVerifier{res: likelyTrue}, d, store, discardLogger())

	err := p.Handle(context.Background(), []byte(`{"input":"Company X laid off 500 employees","chat_id":"7"}`))
	require.NoError(t, err, "delivery failures do not drop the task")

	e := onlyEntry(t, store)
	assert.Equal(t, model.OutcomeDeliveryFailed, e.Outcome)
	assert.Contains(t, e.Error, "status 403")
	require.NotNil(t, e.Result)
	assert.Equal(t, model.LabelLikelyTrue, e.Result.Label)
}

func TestHandleWithoutJournal(t *testing.T) {
	d := &stubDispatcher{}
	p := New(&stubVerifier{res: likelyTrue}, d, nil, discardLogger())

	require.NoError(t, p.Handle(context.Background(), []byte(`{"input":"a claim here","chat_id":1}`)))
	assert.Len(t, d.deliveries(), 1)
}

func TestCheck(t *testing.T) {
	v := &stubVerifier{res: likelyTrue}
	p := New(v, &stubDispatcher{}, nil, discardLogger())

	res, err := p.Check(context.Background(), "  Company X laid off 500 employees ")
	require.NoError(t, err)
	assert.Same(t, likelyTrue, res)
	require.Len(t, v.tasks, 1)
	assert.Equal(t, "Company X laid off 500 employees", v.tasks[0].Input)

	_, err = p.Check(context.Background(), " ")
	require.ErrorIs(t, err, queue.ErrMalformedTask)
}

func runConsumer(t *testing.T, q queue.Queue, h worker.Handler, n int) {
	t.Helper()
	c := worker.NewConsumer(q, h, worker.ConsumerOptions{Workers: 2, DequeueTimeout: 10 * time.Millisecond}, discardLogger())
	done := make(chan struct{})
	go func() {
		_ = c.Run(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool {
		s := c.Stats()
		return s.Processed >= int64(n) && s.InFlight == 0
	}, 5*time.Second, 5*time.Millisecond)
	c.Stop()
	<-done
}

func TestConsumerPanicIsJournaled(t *testing.T) {
	store := openJournal(t)
	q := queue.NewMemoryQueue()
	p := New(&stubVerifier{panic: true}, &stubDispatcher{}, store, discardLogger())

	payload := `{"input":"Company X laid off 500 employees","chat_id":9}`
	require.NoError(t, q.Enqueue(context.Background(), []byte(payload)))
	runConsumer(t, q, p, 1)

	e := onlyEntry(t, store)
	assert.Equal(t, model.OutcomePanicked, e.Outcome)
	assert.Equal(t, "9", e.ConversationID)
	assert.Equal(t, "boom", e.Error)
	assert.Equal(t, payload, e.Payload)
}

type staticRetriever struct {
	items []model.EvidenceItem
}

func (r staticRetriever) Retrieve(ctx context.Context, q search.Query) search.Report {
	return search.Report{Items: r.items}
}

type noPages struct{}

func (noPages) Fetch(ctx context.Context, url string, charLimit int) model.Excerpt {
	return model.Excerpt{URL: url, Error: "blocked:403"}
}

func TestEndToEndHeuristic(t *testing.T) {
	store := openJournal(t)
	q := queue.NewMemoryQueue()
	d := &stubDispatcher{}

	now := time.Now().UTC()
	published := now.Add(-72 * time.Hour)
	retriever := staticRetriever{items: []model.EvidenceItem{
		{
			Title:       "Company X lays off 500 employees",
			URL:         "https://www.reuters.com/business/company-x-layoffs",
			Snippet:     "Company X laid off 500 employees on Tuesday, the company said.",
			SourceName:  "Reuters",
			PublishedAt: &published,
			Engine:      model.EngineGoogleNews,
		},
	}}
	orch := verify.NewOrchestrator(retriever, noPages{}, verify.NewHeuristicStrategy(nil), verify.Options{}, discardLogger())
	p := New(orch, d, store, discardLogger())

	task := model.NewTask("Company X laid off 500 employees.", "42")
	require.NoError(t, queue.EnqueueTask(context.Background(), q, task))
	runConsumer(t, q, p, 1)

	sent := d.deliveries()
	require.Len(t, sent, 1)
	assert.Equal(t, "42", sent[0].conversationID)
	assert.Contains(t, sent[0].text, "reuters.com")

	e := onlyEntry(t, store)
	assert.Equal(t, model.OutcomeSucceeded, e.Outcome)
	assert.Equal(t, task.ID, e.TaskID)
	require.NotNil(t, e.Result)
	assert.NoError(t, e.Result.Check())
	assert.Equal(t, "heuristic", e.Result.Strategy)
}
