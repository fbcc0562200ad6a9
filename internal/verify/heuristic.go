package verify

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/0xknstntn/news-checker/internal/extract"
	"github.com/0xknstntn/news-checker/internal/model"
)

// Match thresholds on the share of claim words found in a source
const (
	supportOverlap = 0.5
	refuteOverlap  = 0.3
	queryWords     = 8
)

var refutationCues = []string{
	"fake", "false", "hoax", "debunk", "denied", "denies", "deny", "not true", "untrue",
	"misleading", "no evidence", "fabricated", "rumor", "rumour", "fact check", "fact-check",
	"фейк", "опроверг", "неправд", "ложн", "не соответствует", "слух", "дезинформ", "не подтвержд",
}

// HeuristicStrategy verifies without a language model: sentence splitting
// for claims, keyword queries, authority-ranked selection and word-overlap
// scoring with refutation cues.
type HeuristicStrategy struct {
	splitter  *extract.ClaimSplitter
	authority *AuthorityClassifier
	rubric    *Rubric
}

// NewHeuristicStrategy creates the default strategy
func NewHeuristicStrategy(authority *AuthorityClassifier) *HeuristicStrategy {
	if authority == nil {
		authority = NewAuthorityClassifier(nil)
	}
	return &HeuristicStrategy{
		splitter:  extract.NewClaimSplitter(),
		authority: authority,
		rubric:    NewRubric(authority),
	}
}

// Name returns the strategy name
func (h *HeuristicStrategy) Name() string { return "heuristic" }

// Next walks plan → search → (widen) → fetch → finish
func (h *HeuristicStrategy) Next(ctx context.Context, st *State) (Action, error) {
	if !st.planned() {
		claims := h.splitter.Split(st.Input, st.Limits.MaxClaims)
		if len(claims) == 0 {
			return Action{}, ErrNoPlan
		}
		lang := detectLanguage(st.Input)
		return Plan(claims, lang, h.queries(claims, lang, st.Limits)), nil
	}
	return h.after(st), nil
}

// after decides everything past planning; shared with the LLM strategy
func (h *HeuristicStrategy) after(st *State) Action {
	if len(st.Searched) == 0 && len(st.Planned) > 0 && st.QueriesLeft() > 0 {
		return Search(st.Planned, -1, "search planned queries")
	}

	if len(st.Evidence) == 0 && !st.Widened && st.QueriesLeft() > 0 {
		if widened := h.widen(st); len(widened) > 0 {
			return Search(widened, 0, "no recent coverage, search without a date limit")
		}
	}

	if len(st.Excerpts) == 0 && len(st.Evidence) > 0 && st.FetchesLeft() > 0 {
		if urls := h.Select(st); len(urls) > 0 {
			return Fetch(urls)
		}
	}

	return Finish("evidence gathered")
}

// queries derives the per-claim variants: the claim itself, a keyword
// form, and a romanized working-language variant for foreign input.
func (h *HeuristicStrategy) queries(claims []model.Claim, lang string, limits Limits) []PlannedQuery {
	foreign := lang != "und" && !sameLanguage(lang, limits.WorkingLanguage)

	perClaim := make([][]PlannedQuery, len(claims))
	for i, c := range claims {
		var qs []PlannedQuery
		add := func(text string, translated bool) {
			text = strings.TrimSpace(text)
			if text == "" {
				return
			}
			for _, q := range qs {
				if strings.EqualFold(q.Text, text) {
					return
				}
			}
			qs = append(qs, PlannedQuery{ClaimIndex: c.Index, Text: text, Translated: translated})
		}

		full := clip(c.Text, 120)
		keywords := keywordQuery(c.Text)
		if foreign {
			// Translation first so it survives the query budget
			add(transliterate(keywords), true)
		}
		add(full, false)
		add(keywords, false)
		perClaim[i] = qs
	}

	// Round-robin across claims so every claim gets a query before any gets two
	var out []PlannedQuery
	for round := 0; len(out) < limits.MaxQueries; round++ {
		added := false
		for _, qs := range perClaim {
			if round < len(qs) && len(out) < limits.MaxQueries {
				out = append(out, qs[round])
				added = true
			}
		}
		if !added {
			break
		}
	}
	return out
}

// widen re-plans with keyword queries not searched yet
func (h *HeuristicStrategy) widen(st *State) []PlannedQuery {
	var out []PlannedQuery
	for _, c := range st.Claims {
		q := PlannedQuery{ClaimIndex: c.Index, Text: keywordQuery(c.Text)}
		if q.Text == "" || searched(st, q.Text) {
			q.Text = clip(c.Text, 120)
		}
		if q.Text == "" || len(out) >= st.QueriesLeft() {
			continue
		}
		out = append(out, q)
	}
	return out
}

func searched(st *State, text string) bool {
	for _, q := range st.Searched {
		if strings.EqualFold(q.Text, text) {
			return true
		}
	}
	return false
}

// keywordQuery keeps the content words of a claim, at most queryWords of them
func keywordQuery(text string) string {
	var words []string
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, ".,;:!?«»\"'()[]")
		if w == "" {
			continue
		}
		if t := tokens(w); len(t) == 0 {
			continue
		}
		words = append(words, w)
		if len(words) == queryWords {
			break
		}
	}
	return strings.Join(words, " ")
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return strings.TrimRight(s, ".!?")
	}
	cut := extract.Truncate(s, n)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}

type candidate struct {
	item  model.EvidenceItem
	host  string
	tier  Tier
	score float64
}

// Select picks 2 to MaxFetch URLs: the best official source and the best
// major outlet first, then the best remaining candidates on distinct hosts.
func (h *HeuristicStrategy) Select(st *State) []string {
	limit := st.FetchesLeft()
	if limit > 4 {
		limit = 4
	}
	if limit <= 0 {
		return nil
	}

	var cands []candidate
	for _, e := range st.Evidence {
		if st.Fetched(e.URL) {
			continue
		}
		tier := h.authority.Classify(e.URL)
		rel := 0.0
		for _, c := range st.Claims {
			if o := overlap(c.Text, e.Title+" "+e.Snippet); o > rel {
				rel = o
			}
		}
		cands = append(cands, candidate{
			item:  e,
			host:  hostOf(e.URL),
			tier:  tier,
			score: 2*rel + 0.5*float64(tier),
		})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	var picked []string
	hosts := make(map[string]bool)
	take := func(c candidate) {
		picked = append(picked, c.item.URL)
		hosts[c.host] = true
	}

	for _, want := range []Tier{TierOfficial, TierMajor} {
		for _, c := range cands {
			if c.tier == want && !hosts[c.host] && len(picked) < limit {
				take(c)
				break
			}
		}
	}
	for _, c := range cands {
		if len(picked) >= limit {
			break
		}
		if hosts[c.host] || contains(picked, c.item.URL) {
			continue
		}
		take(c)
	}
	// Fall back to repeated hosts when diversity leaves fewer than two
	for _, c := range cands {
		if len(picked) >= 2 || len(picked) >= limit {
			break
		}
		if !contains(picked, c.item.URL) {
			take(c)
		}
	}
	return picked
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Result scores every claim against snippets and excerpts
func (h *HeuristicStrategy) Result(ctx context.Context, st *State) (*model.VerificationResult, error) {
	verdicts := make([]model.ClaimVerdict, 0, len(st.Claims))
	for _, c := range st.Claims {
		verdicts = append(verdicts, h.judge(st, c))
	}
	res := h.rubric.Aggregate(st, verdicts)
	res.Strategy = h.Name()
	return res, nil
}

type match struct {
	item    model.EvidenceItem
	quality model.Quality
	overlap float64
	refutes bool
	fact    string
}

func (h *HeuristicStrategy) judge(st *State, c model.Claim) model.ClaimVerdict {
	var supports, refutes []match

	for _, e := range st.Evidence {
		text := e.Title + " " + e.Snippet
		fact := e.Snippet
		sources := []string{e.Title, e.Snippet}
		if x, ok := st.excerptFor(e.URL); ok {
			text += " " + x.BodyText
			sources = append(sources, x.BodyText)
			if s := bestSentence(c.Text, x.BodyText); s != "" {
				fact = s
			}
		}

		o := overlap(c.Text, text)
		m := match{item: e, quality: h.authority.Quality(e), overlap: o, fact: fact}
		switch {
		case o >= refuteOverlap && refutingSentence(c.Text, sources...) && !hasRefutationCue(c.Text):
			m.refutes = true
			refutes = append(refutes, m)
		case o >= supportOverlap:
			supports = append(supports, m)
		}
	}

	v := model.ClaimVerdict{Claim: c, Status: model.StatusUnclear}
	var cite []match
	switch {
	case len(refutes) > 0 && weight(refutes) >= weight(supports):
		v.Status = model.StatusRefuted
		cite = refutes
	case len(supports) > 0:
		v.Status = model.StatusSupported
		cite = supports
	}

	sort.SliceStable(cite, func(i, j int) bool {
		return cite[i].quality.Weight()*cite[i].overlap > cite[j].quality.Weight()*cite[j].overlap
	})
	for i := 0; i < len(cite) && i < 2; i++ {
		v.Evidence = append(v.Evidence, model.CitedEvidence{
			Item:    cite[i].item,
			Quality: cite[i].quality,
			Fact:    clip(cite[i].fact, 200),
		})
	}
	return v
}

func weight(ms []match) float64 {
	var w float64
	for _, m := range ms {
		w += m.quality.Weight() * m.overlap
	}
	return w
}

func hasRefutationCue(text string) bool {
	folded := fold(text)
	for _, cue := range refutationCues {
		if strings.Contains(folded, cue) {
			return true
		}
	}
	return false
}

// refutingSentence reports whether some sentence of texts both carries a
// refutation cue and is about the claim. A denial elsewhere in an article
// does not count against it.
func refutingSentence(claim string, texts ...string) bool {
	for _, t := range texts {
		for _, s := range extract.SplitSentences(t, 1, len(t)+1) {
			if hasRefutationCue(s) && overlap(claim, s) >= refuteOverlap {
				return true
			}
		}
	}
	return false
}

// bestSentence returns the excerpt sentence sharing most words with the claim
func bestSentence(claim, body string) string {
	best, bestScore := "", 0.0
	for _, s := range extract.SplitSentences(body, 20, 300) {
		if o := overlap(claim, s); o > bestScore {
			best, bestScore = s, o
		}
	}
	return best
}
