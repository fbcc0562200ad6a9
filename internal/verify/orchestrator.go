package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/search"
)

// ErrNoPlan is returned when the input holds nothing to verify
var ErrNoPlan = errors.New("no claims to verify")

// toolParallelism bounds concurrent searches and fetches within one step
const toolParallelism = 4

// Retriever is the evidence search the orchestrator depends on
type Retriever interface {
	Retrieve(ctx context.Context, q search.Query) search.Report
}

// Extractor is the page reader the orchestrator depends on
type Extractor interface {
	Fetch(ctx context.Context, url string, charLimit int) model.Excerpt
}

// Options configures an Orchestrator
type Options struct {
	Limits    Limits
	Observers []Observer
	Now       func() time.Time
}

// Orchestrator runs the bounded decide → act → observe loop for one task
// at a time. It is safe for concurrent use by multiple workers.
type Orchestrator struct {
	retriever Retriever
	extractor Extractor
	strategy  Strategy
	limits    Limits
	observers []Observer
	tracer    trace.Tracer
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(retriever Retriever, extractor Extractor, strategy Strategy, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	limits := opts.Limits
	if limits.MaxSteps <= 0 {
		limits = DefaultLimits()
	}
	return &Orchestrator{
		retriever: retriever,
		extractor: extractor,
		strategy:  strategy,
		limits:    limits,
		observers: opts.Observers,
		tracer:    otel.Tracer("github.com/0xknstntn/news-checker/internal/verify"),
		logger:    logger,
		now:       opts.Now,
	}
}

// Strategy returns the configured strategy name
func (o *Orchestrator) Strategy() string { return o.strategy.Name() }

// Run verifies task.Input. Tool failures only degrade the result; the only
// error is ErrNoPlan for input without anything to verify.
func (o *Orchestrator) Run(ctx context.Context, task model.Task) (*model.VerificationResult, error) {
	start := o.now()
	st := newState(task, o.limits, start.UTC())

	ctx, span := o.tracer.Start(ctx, "verify.run", trace.WithAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("verify.strategy", o.strategy.Name()),
	))
	defer span.End()

	o.emit(ctx, Event{Kind: EventRunStarted, TaskID: task.ID, Strategy: o.strategy.Name()})

	if strings.TrimSpace(task.Input) == "" {
		return nil, o.abort(ctx, span, st, start, ErrNoPlan)
	}

	finished := false
	for st.Step < o.limits.MaxSteps {
		st.Step++
		action, err := o.strategy.Next(ctx, st)
		if err != nil {
			if errors.Is(err, ErrNoPlan) && !st.planned() {
				return nil, o.abort(ctx, span, st, start, err)
			}
			o.logger.Warn("strategy failed, finishing early", "task_id", task.ID, "step", st.Step, "err", err)
			st.degrade("Verification stopped early after an internal error.")
			break
		}

		o.emit(ctx, Event{Kind: EventStep, TaskID: task.ID, Step: st.Step, Action: action.Kind, Reason: action.Reason})
		if action.Kind == ActionFinish {
			finished = true
			break
		}
		o.execute(ctx, st, action)
	}

	if !finished && st.Step >= o.limits.MaxSteps {
		st.degrade(fmt.Sprintf("Stopped after %d steps; evidence may be incomplete.", o.limits.MaxSteps))
	}
	if !st.planned() {
		st.Claims = []model.Claim{{Text: strings.TrimSpace(task.Input), Index: 0, Rule: "input"}}
	}

	res, err := o.strategy.Result(ctx, st)
	if err != nil || res == nil {
		o.logger.Warn("strategy result failed", "task_id", task.ID, "err", err)
		res = NewRubric(nil).Aggregate(st, unclearVerdicts(st.Claims), "Claims could not be scored.")
	}
	o.finalize(st, res)

	span.SetAttributes(
		attribute.String("verify.label", string(res.Label)),
		attribute.Int("verify.score", res.Score),
		attribute.Int("verify.steps", st.Step),
	)
	o.emit(ctx, Event{
		Kind:     EventRunFinished,
		TaskID:   task.ID,
		Step:     st.Step,
		Label:    res.Label,
		Score:    res.Score,
		Duration: o.now().Sub(start),
	})
	return res, nil
}

func (o *Orchestrator) abort(ctx context.Context, span trace.Span, st *State, start time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	o.emit(ctx, Event{Kind: EventRunFinished, TaskID: st.TaskID, Step: st.Step, Err: err.Error(), Duration: o.now().Sub(start)})
	return err
}

// finalize enforces the result invariants whatever the strategy returned
func (o *Orchestrator) finalize(st *State, res *model.VerificationResult) {
	if res.Strategy == "" {
		res.Strategy = o.strategy.Name()
	}
	if res.Score < 0 {
		res.Score = 0
	}
	if res.Score > 100 {
		res.Score = 100
	}
	if !st.HasEvidence() {
		res.Label = model.LabelUnclear
		if res.Score > 60 {
			res.Score = 60
		}
	}
	if err := res.Check(); err != nil {
		res.Label = model.LabelForScore(res.Score)
	}
	if res.SourceLinks == nil {
		res.SourceLinks = res.CitedURLs()
	}
}

func (o *Orchestrator) execute(ctx context.Context, st *State, a Action) {
	ctx, span := o.tracer.Start(ctx, "verify."+string(a.Kind), trace.WithAttributes(attribute.Int("verify.step", st.Step)))
	defer span.End()

	switch a.Kind {
	case ActionPlan:
		o.applyPlan(ctx, st, a)
	case ActionSearch:
		o.search(ctx, st, a)
	case ActionFetch:
		o.fetch(ctx, st, a)
	default:
		o.logger.Warn("unknown action", "task_id", st.TaskID, "action", a.Kind)
		st.degrade("Verification stopped early after an internal error.")
	}
}

func (o *Orchestrator) applyPlan(ctx context.Context, st *State, a Action) {
	claims := a.Claims
	if len(claims) > st.Limits.MaxClaims {
		claims = claims[:st.Limits.MaxClaims]
	}
	st.Claims = append([]model.Claim{}, claims...)
	st.Language = a.Language
	st.Planned = a.Queries

	o.emit(ctx, Event{Kind: EventToolResult, TaskID: st.TaskID, Step: st.Step, Tool: "plan", Target: st.Language, Items: len(st.Claims)})
}

type searchOutcome struct {
	query  PlannedQuery
	report search.Report
}

func (o *Orchestrator) search(ctx context.Context, st *State, a Action) {
	queries := make([]PlannedQuery, 0, len(a.Queries))
	for _, q := range a.Queries {
		if len(queries) == st.QueriesLeft() {
			break
		}
		queries = append(queries, q)
	}

	recency := a.RecencyDays
	if recency < 0 {
		recency = st.Limits.RecencyDays
	}
	if recency == 0 {
		st.Widened = true
	}

	outcomes := make([]searchOutcome, len(queries))
	var g errgroup.Group
	g.SetLimit(toolParallelism)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			rep := o.retriever.Retrieve(ctx, search.Query{Text: q.Text, MaxResults: st.Limits.MaxResults, RecencyDays: recency})
			outcomes[i] = searchOutcome{query: q, report: rep}

			ev := Event{Kind: EventToolResult, TaskID: st.TaskID, Step: st.Step, Tool: "search", Target: q.Text, Items: len(rep.Items)}
			if len(rep.Failures) > 0 {
				ev.Err = failureSummary(rep.Failures)
			}
			o.emit(ctx, ev)
			return nil
		})
	}
	_ = g.Wait()

	failed := make(map[model.Engine]bool)
	for _, out := range outcomes {
		st.Searched = append(st.Searched, out.query)
		st.addEvidence(out.report.Items)
		for engine := range out.report.Failures {
			failed[engine] = true
		}
	}
	if len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for e := range failed {
			names = append(names, string(e))
		}
		sort.Strings(names)
		st.degrade(fmt.Sprintf("Some search engines failed (%s); coverage may be incomplete.", strings.Join(names, ", ")))
	}
}

func failureSummary(failures map[model.Engine]error) string {
	parts := make([]string, 0, len(failures))
	for engine, err := range failures {
		parts = append(parts, fmt.Sprintf("%s: %v", engine, err))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (o *Orchestrator) fetch(ctx context.Context, st *State, a Action) {
	var urls []string
	for _, u := range a.URLs {
		if len(urls) == st.FetchesLeft() {
			break
		}
		if !st.Fetched(u) && !contains(urls, u) {
			urls = append(urls, u)
		}
	}

	excerpts := make([]model.Excerpt, len(urls))
	var mu sync.Mutex
	failed := 0

	var g errgroup.Group
	g.SetLimit(toolParallelism)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			x := o.extractor.Fetch(ctx, u, st.Limits.CharLimit)
			excerpts[i] = x

			ev := Event{Kind: EventToolResult, TaskID: st.TaskID, Step: st.Step, Tool: "fetch", Target: u, Err: x.Error}
			if x.OK() {
				ev.Items = 1
			} else {
				mu.Lock()
				failed++
				mu.Unlock()
			}
			o.emit(ctx, ev)
			return nil
		})
	}
	_ = g.Wait()

	st.Excerpts = append(st.Excerpts, excerpts...)
	if failed > 0 {
		st.degrade(fmt.Sprintf("%d of %d selected pages could not be read.", failed, len(urls)))
	}
}

func (o *Orchestrator) emit(ctx context.Context, e Event) {
	e.At = o.now()
	if e.Strategy == "" {
		e.Strategy = o.strategy.Name()
	}
	for _, obs := range o.observers {
		obs.Observe(ctx, e)
	}
}

func unclearVerdicts(claims []model.Claim) []model.ClaimVerdict {
	out := make([]model.ClaimVerdict, len(claims))
	for i, c := range claims {
		out[i] = model.ClaimVerdict{Claim: c, Status: model.StatusUnclear}
	}
	return out
}
