package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/0xknstntn/news-checker/internal/llm"
	"github.com/0xknstntn/news-checker/internal/model"
)

// LLMStrategy plans claims and queries and scores claims with a language
// model. Search, selection and fetch decisions are shared with the
// heuristic strategy, which also takes over whenever the model fails or
// cites a URL it was not given.
type LLMStrategy struct {
	provider  llm.Provider
	fallback  *HeuristicStrategy
	authority *AuthorityClassifier
	rubric    *Rubric
	logger    *slog.Logger
}

// NewLLMStrategy creates a strategy backed by provider
func NewLLMStrategy(provider llm.Provider, authority *AuthorityClassifier, logger *slog.Logger) *LLMStrategy {
	if authority == nil {
		authority = NewAuthorityClassifier(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMStrategy{
		provider:  provider,
		fallback:  NewHeuristicStrategy(authority),
		authority: authority,
		rubric:    NewRubric(authority),
		logger:    logger,
	}
}

// Name returns the strategy name
func (s *LLMStrategy) Name() string { return "llm:" + s.provider.Name() }

// Next asks the model for a plan once, then defers to the shared flow
func (s *LLMStrategy) Next(ctx context.Context, st *State) (Action, error) {
	if st.planned() {
		return s.fallback.after(st), nil
	}

	action, err := s.plan(ctx, st)
	if err != nil {
		s.logger.Warn("llm planning failed, using heuristic plan", "task_id", st.TaskID, "err", err)
		st.degrade("The language model was unavailable for planning; claims were split heuristically.")
		return s.fallback.Next(ctx, st)
	}
	return action, nil
}

func (s *LLMStrategy) plan(ctx context.Context, st *State) (Action, error) {
	resp, err := s.provider.Complete(ctx, llm.Request{
		System: llm.PlanSystem,
		Prompt: llm.BuildPlanPrompt(llm.PlanInput{
			Input:           st.Input,
			MaxClaims:       st.Limits.MaxClaims,
			MaxQueries:      st.Limits.MaxQueries,
			WorkingLanguage: st.Limits.WorkingLanguage,
		}),
		JSON: true,
	})
	if err != nil {
		return Action{}, err
	}

	var reply llm.PlanReply
	if err := llm.DecodeJSON(resp.Text, &reply); err != nil {
		return Action{}, err
	}

	var claims []model.Claim
	var queries []PlannedQuery
	for _, pc := range reply.Claims {
		text := strings.TrimSpace(pc.Text)
		if text == "" || len(claims) == st.Limits.MaxClaims {
			continue
		}
		idx := len(claims)
		claims = append(claims, model.Claim{Text: text, Index: idx, Rule: "llm"})
		for i, q := range pc.Queries {
			if q = strings.TrimSpace(q); q != "" && i < 3 {
				queries = append(queries, PlannedQuery{ClaimIndex: idx, Text: q, Translated: isLatin(q) && !isLatin(text)})
			}
		}
	}
	if len(claims) == 0 {
		return Action{}, fmt.Errorf("plan has no claims: %w", ErrNoPlan)
	}

	lang := strings.TrimSpace(reply.Language)
	if lang == "" {
		lang = detectLanguage(st.Input)
	}

	if len(queries) == 0 {
		queries = s.fallback.queries(claims, lang, st.Limits)
	}
	queries = s.ensureTranslated(claims, queries, lang, st.Limits)
	return Plan(claims, lang, queries), nil
}

// ensureTranslated puts a working-language query first when the model
// forgot one for foreign input, then applies the query budget.
func (s *LLMStrategy) ensureTranslated(claims []model.Claim, queries []PlannedQuery, lang string, limits Limits) []PlannedQuery {
	if lang != "und" && !sameLanguage(lang, limits.WorkingLanguage) {
		has := false
		for _, q := range queries {
			if q.Translated {
				has = true
				break
			}
		}
		if !has {
			q := PlannedQuery{ClaimIndex: claims[0].Index, Text: transliterate(keywordQuery(claims[0].Text)), Translated: true}
			queries = append([]PlannedQuery{q}, queries...)
		}
	}
	if len(queries) > limits.MaxQueries {
		queries = queries[:limits.MaxQueries]
	}
	return queries
}

// Result asks the model to score each claim. Invalid replies and citation
// leaks fall back to the heuristic verdict.
func (s *LLMStrategy) Result(ctx context.Context, st *State) (*model.VerificationResult, error) {
	verdicts, notes, err := s.score(ctx, st)
	if err != nil {
		s.logger.Warn("llm scoring failed, using heuristic verdict", "task_id", st.TaskID, "err", err)
		st.degrade("The language model verdict was rejected; claims were scored heuristically.")
		return s.fallback.Result(ctx, st)
	}

	res := s.rubric.Aggregate(st, verdicts, notes)
	res.Strategy = s.Name()
	return res, nil
}

func (s *LLMStrategy) score(ctx context.Context, st *State) ([]model.ClaimVerdict, string, error) {
	resp, err := s.provider.Complete(ctx, llm.Request{
		System: llm.VerdictSystem,
		Prompt: llm.BuildVerdictPrompt(llm.VerdictInput{
			Claims:   st.Claims,
			Evidence: st.Evidence,
			Excerpts: st.Excerpts,
			Now:      st.Now,
		}),
		JSON: true,
	})
	if err != nil {
		return nil, "", err
	}

	var reply llm.VerdictReply
	if err := llm.DecodeJSON(resp.Text, &reply); err != nil {
		return nil, "", err
	}

	allowed := make([]string, 0, len(st.Evidence)+len(st.Excerpts))
	for _, e := range st.Evidence {
		allowed = append(allowed, e.URL)
	}
	for _, x := range st.UsableExcerpts() {
		allowed = append(allowed, x.URL)
	}
	if err := llm.CheckCitations(reply.CitedURLs(), allowed); err != nil {
		return nil, "", err
	}

	byIndex := make(map[int]llm.VerdictClaim, len(reply.Claims))
	for _, vc := range reply.Claims {
		byIndex[vc.Index] = vc
	}

	verdicts := make([]model.ClaimVerdict, 0, len(st.Claims))
	for _, c := range st.Claims {
		v := model.ClaimVerdict{Claim: c, Status: model.StatusUnclear}
		vc, ok := byIndex[c.Index]
		if ok {
			if status := model.ClaimStatus(strings.ToLower(strings.TrimSpace(vc.Status))); status.Valid() {
				v.Status = status
			}
			for _, ve := range vc.Evidence {
				if len(v.Evidence) == 2 {
					break
				}
				v.Evidence = append(v.Evidence, s.cite(st, ve))
			}
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, reply.Notes, nil
}

func (s *LLMStrategy) cite(st *State, ve llm.VerdictEvidence) model.CitedEvidence {
	item, ok := st.evidenceFor(ve.URL)
	if !ok {
		item = model.EvidenceItem{URL: ve.URL}
		if x, ok := st.excerptFor(ve.URL); ok {
			item.Title = x.Title
		}
	}

	quality := model.Quality(strings.ToLower(strings.TrimSpace(ve.Quality)))
	if !quality.Valid() {
		quality = s.authority.Quality(item)
	}
	return model.CitedEvidence{Item: item, Quality: quality, Fact: clip(ve.Fact, 200)}
}
