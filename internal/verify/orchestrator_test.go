package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/search"
)

func TestOrchestrator_NoEvidenceIsUnclear(t *testing.T) {
	retriever := &fakeRetriever{respond: func(q search.Query) search.Report {
		return search.Report{Failures: map[model.Engine]error{model.EngineGoogleNews: errors.New("quota exceeded")}}
	}}
	extractor := &fakeExtractor{}
	rec := &recorder{}

	o := newTestOrchestrator(retriever, extractor, NewHeuristicStrategy(nil), rec)
	res, err := o.Run(context.Background(), newTask("Company X announces 20% layoffs"))
	require.NoError(t, err)

	assert.Equal(t, model.LabelUnclear, res.Label)
	assert.LessOrEqual(t, res.Score, 60)
	assert.NoError(t, res.Check())
	assert.Contains(t, res.Notes, "No usable evidence")
	assert.Contains(t, res.Notes, "google_news_serpapi")
	require.Len(t, res.ClaimVerdicts, 1)
	assert.Equal(t, model.StatusUnclear, res.ClaimVerdicts[0].Status)
	assert.Empty(t, extractor.fetched(), "nothing to fetch without evidence")

	kinds := rec.kinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, EventRunStarted, kinds[0])
	assert.Equal(t, EventRunFinished, kinds[len(kinds)-1])
	assert.Contains(t, kinds, EventToolResult)
}

func TestOrchestrator_SupportedByPrimaryAndMajor(t *testing.T) {
	items := []model.EvidenceItem{
		{Title: "Company X announces 20% layoffs", URL: "https://www.reuters.com/business/x-layoffs", SourceName: "Reuters",
			Snippet: "Company X announces 20% layoffs across its global workforce.", PublishedAt: ago(72 * time.Hour), Engine: model.EngineGoogleNews},
		{Title: "Form 8-K: Company X", URL: "https://www.sec.gov/x-8k", SourceName: "SEC",
			Snippet: "Company X announces workforce reduction of 20%; layoffs begin in June.", PublishedAt: ago(80 * time.Hour), Engine: model.EngineGoogleWeb},
	}
	retriever := &fakeRetriever{respond: func(q search.Query) search.Report {
		return search.Report{Items: items}
	}}
	extractor := &fakeExtractor{pages: map[string]string{
		"https://www.reuters.com/business/x-layoffs": "Company X said on Tuesday it announces 20% layoffs, about 2,000 roles.",
		"https://www.sec.gov/x-8k":                   "The board of Company X approved a plan that announces layoffs of 20% of staff.",
	}}

	o := newTestOrchestrator(retriever, extractor, NewHeuristicStrategy(nil))
	res, err := o.Run(context.Background(), newTask("Company X announces 20% layoffs"))
	require.NoError(t, err)

	assert.Equal(t, model.LabelTrue, res.Label)
	assert.GreaterOrEqual(t, res.Score, 90)
	assert.NoError(t, res.Check())
	assert.Equal(t, "heuristic", res.Strategy)

	require.Len(t, res.ClaimVerdicts, 1)
	v := res.ClaimVerdicts[0]
	assert.Equal(t, model.StatusSupported, v.Status)
	require.Len(t, v.Evidence, 2)
	for _, ce := range v.Evidence {
		assert.Equal(t, model.QualityHigh, ce.Quality)
		assert.NotEmpty(t, ce.Fact)
	}
	assert.ElementsMatch(t, []string{"https://www.reuters.com/business/x-layoffs", "https://www.sec.gov/x-8k"}, res.SourceLinks)

	// Official source is selected first
	fetched := extractor.fetched()
	require.Len(t, fetched, 2)
	assert.ElementsMatch(t, []string{"https://www.sec.gov/x-8k", "https://www.reuters.com/business/x-layoffs"}, fetched)

	for _, q := range retriever.seen() {
		assert.Equal(t, 7, q.RecencyDays)
		assert.Equal(t, 8, q.MaxResults)
	}
}

func TestOrchestrator_RefutedBySnippets(t *testing.T) {
	retriever := &fakeRetriever{respond: func(q search.Query) search.Report {
		return search.Report{Items: []model.EvidenceItem{{
			Title:       "Fact check: Company X layoffs claim is false",
			URL:         "https://apnews.com/article/fact-check-x",
			Snippet:     "Company X denied reports it announces 20% layoffs; the claim is false.",
			PublishedAt: ago(96 * time.Hour),
		}}}
	}}
	extractor := &fakeExtractor{}

	o := newTestOrchestrator(retriever, extractor, NewHeuristicStrategy(nil))
	res, err := o.Run(context.Background(), newTask("Company X announces 20% layoffs"))
	require.NoError(t, err)

	assert.Equal(t, model.LabelFalse, res.Label)
	assert.NoError(t, res.Check())
	assert.Equal(t, model.StatusRefuted, res.ClaimVerdicts[0].Status)
	assert.Contains(t, res.Notes, "could not be read")
	assert.Contains(t, res.Notes, "search snippets")
}

func TestOrchestrator_UnrelatedDenialDoesNotRefute(t *testing.T) {
	items := []model.EvidenceItem{
		{Title: "Company X announces 20% layoffs", URL: "https://www.reuters.com/business/x-layoffs", SourceName: "Reuters",
			Snippet: "Company X announces 20% layoffs", PublishedAt: ago(24 * time.Hour), Engine: model.EngineGoogleNews},
		{Title: "Company X announces 20% layoffs", URL: "https://www.bbc.com/news/business-x", SourceName: "BBC",
			Snippet: "Company X announces 20% layoffs", PublishedAt: ago(30 * time.Hour), Engine: model.EngineGoogleNews},
	}
	body := "Company X announces 20% layoffs across its offices. " +
		"The chief executive denied that the cuts were linked to the merger."
	retriever := &fakeRetriever{respond: func(q search.Query) search.Report {
		return search.Report{Items: items}
	}}
	extractor := &fakeExtractor{pages: map[string]string{
		"https://www.reuters.com/business/x-layoffs": body,
		"https://www.bbc.com/news/business-x":        body,
	}}

	o := newTestOrchestrator(retriever, extractor, NewHeuristicStrategy(nil))
	res, err := o.Run(context.Background(), newTask("Company X announces 20% layoffs"))
	require.NoError(t, err)

	require.Len(t, res.ClaimVerdicts, 1)
	assert.Equal(t, model.StatusSupported, res.ClaimVerdicts[0].Status)
	assert.Contains(t, []model.Label{model.LabelTrue, model.LabelLikelyTrue}, res.Label)
	assert.GreaterOrEqual(t, res.Score, 70)
	assert.NoError(t, res.Check())
}

func TestRefutingSentence(t *testing.T) {
	claim := "Company X announces 20% layoffs"
	tests := []struct {
		name  string
		texts []string
		want  bool
	}{
		{"cue about the claim", []string{"Company X denied it announces 20% layoffs."}, true},
		{"cue in another sentence", []string{"Company X announces 20% layoffs. The CEO denied any link to the merger."}, false},
		{"cue in title only", []string{"Fact check: Company X layoffs claim is false", "Posts went viral."}, true},
		{"no cue", []string{"Company X announces 20% layoffs."}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, refutingSentence(claim, tt.texts...))
		})
	}
}

func TestOrchestrator_TranslatedQueryForForeignInput(t *testing.T) {
	retriever := &fakeRetriever{}
	o := newTestOrchestrator(retriever, &fakeExtractor{}, NewHeuristicStrategy(nil))

	_, err := o.Run(context.Background(), newTask("Компания Яндекс объявила о сокращении 20% сотрудников"))
	require.NoError(t, err)

	seen := retriever.seen()
	require.NotEmpty(t, seen)
	latin := 0
	for _, q := range seen {
		if isLatin(q.Text) {
			latin++
		}
	}
	assert.Positive(t, latin, "expected a working-language query among %v", seen)
	assert.LessOrEqual(t, len(seen), DefaultLimits().MaxQueries)
}

func TestOrchestrator_WidensWhenNothingRecent(t *testing.T) {
	retriever := &fakeRetriever{respond: func(q search.Query) search.Report {
		if q.RecencyDays != 0 {
			return search.Report{}
		}
		return search.Report{Items: []model.EvidenceItem{{
			Title:       "Company X announces 20% layoffs",
			URL:         "https://www.bbc.com/news/x",
			Snippet:     "Company X announces 20% layoffs.",
			PublishedAt: ago(60 * 24 * time.Hour),
		}}}
	}}
	o := newTestOrchestrator(retriever, &fakeExtractor{}, NewHeuristicStrategy(nil))

	res, err := o.Run(context.Background(), newTask("Company X announces 20% layoffs"))
	require.NoError(t, err)

	var widened bool
	for _, q := range retriever.seen() {
		if q.RecencyDays == 0 {
			widened = true
		}
	}
	assert.True(t, widened)
	assert.Equal(t, []string{"https://www.bbc.com/news/x"}, res.SourceLinks)
	assert.Contains(t, res.Notes, "resurfacing")
}

func TestOrchestrator_EmptyInput(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator(&fakeRetriever{}, &fakeExtractor{}, NewHeuristicStrategy(nil), rec)

	_, err := o.Run(context.Background(), newTask("   "))
	assert.ErrorIs(t, err, ErrNoPlan)
	assert.Equal(t, []EventKind{EventRunStarted, EventRunFinished}, rec.kinds())
}

// loopingStrategy never finishes
type loopingStrategy struct {
	rubric *Rubric
}

func (s *loopingStrategy) Name() string { return "looping" }

func (s *loopingStrategy) Next(ctx context.Context, st *State) (Action, error) {
	if !st.planned() {
		return Plan([]model.Claim{{Text: "claim"}}, "en", nil), nil
	}
	return Search([]PlannedQuery{{Text: "again"}}, -1, "more"), nil
}

func (s *loopingStrategy) Result(ctx context.Context, st *State) (*model.VerificationResult, error) {
	return s.rubric.Aggregate(st, unclearVerdicts(st.Claims)), nil
}

func TestOrchestrator_StepBound(t *testing.T) {
	retriever := &fakeRetriever{}
	limits := DefaultLimits()
	limits.MaxSteps = 5
	limits.MaxQueries = 100

	o := NewOrchestrator(retriever, &fakeExtractor{}, &loopingStrategy{rubric: NewRubric(nil)}, Options{Limits: limits}, discardLogger())
	res, err := o.Run(context.Background(), newTask("anything at all"))
	require.NoError(t, err)

	assert.Len(t, retriever.seen(), 4, "one plan step and four search steps")
	assert.Contains(t, res.Notes, "Stopped after 5 steps")
	assert.Equal(t, "looping", res.Strategy)
}

func TestOrchestrator_QueryBudget(t *testing.T) {
	retriever := &fakeRetriever{}
	limits := DefaultLimits()
	limits.MaxSteps = 10
	limits.MaxQueries = 2

	o := NewOrchestrator(retriever, &fakeExtractor{}, &loopingStrategy{rubric: NewRubric(nil)}, Options{Limits: limits}, discardLogger())
	_, err := o.Run(context.Background(), newTask("anything at all"))
	require.NoError(t, err)
	assert.Len(t, retriever.seen(), 2)
}

// brokenStrategy fails after planning and cannot produce a result
type brokenStrategy struct{}

func (brokenStrategy) Name() string { return "broken" }

func (brokenStrategy) Next(ctx context.Context, st *State) (Action, error) {
	if !st.planned() {
		return Plan([]model.Claim{{Text: "claim one"}}, "en", nil), nil
	}
	return Action{}, errors.New("boom")
}

func (brokenStrategy) Result(ctx context.Context, st *State) (*model.VerificationResult, error) {
	return nil, errors.New("boom")
}

func TestOrchestrator_StrategyFailureStillAnswers(t *testing.T) {
	o := newTestOrchestrator(&fakeRetriever{}, &fakeExtractor{}, brokenStrategy{})
	res, err := o.Run(context.Background(), newTask("claim one"))
	require.NoError(t, err)

	assert.Equal(t, model.LabelUnclear, res.Label)
	assert.Equal(t, "broken", res.Strategy)
	assert.Contains(t, res.Notes, "internal error")
}

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy("heuristic", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "heuristic", s.Name())

	_, err = NewStrategy("llm", nil, nil)
	assert.Error(t, err)

	s, err = NewStrategy("llm", &scriptedProvider{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "llm:scripted", s.Name())

	_, err = NewStrategy("oracle", nil, nil)
	assert.Error(t, err)
}
