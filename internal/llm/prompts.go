package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/0xknstntn/news-checker/internal/model"
)

// PlanSystem is the system prompt for claim parsing and query planning
const PlanSystem = `You are a fact-checking planner. You split a news statement into atomic, checkable claims and write web search queries for each. You never judge truth at this stage. Reply with a single JSON object only.`

// VerdictSystem is the system prompt for claim scoring
const VerdictSystem = `You are a fact-checker. You classify each claim as supported, refuted or unclear using ONLY the evidence provided. You never use outside knowledge and never cite a URL that is not in the evidence list. Reply with a single JSON object only.`

// PlanInput describes what the planner should produce
type PlanInput struct {
	Input           string
	MaxClaims       int
	MaxQueries      int
	WorkingLanguage string
}

// PlanReply is the planner's decoded answer
type PlanReply struct {
	Language string      `json:"language"`
	Claims   []PlanClaim `json:"claims"`
}

// PlanClaim is one claim with its search queries
type PlanClaim struct {
	Text    string   `json:"text"`
	Queries []string `json:"queries"`
}

// BuildPlanPrompt asks for claims, per-claim queries and the input language.
// A non-working-language input must also get a translated query.
func BuildPlanPrompt(in PlanInput) string {
	return fmt.Sprintf(`Statement:
"""
%s
"""

Rules:
1. Split the statement into 1 to %d atomic factual claims. Drop opinions and questions.
2. For each claim write 1 to 3 short search queries (names, numbers, places; no filler words).
3. Detect the statement language as a BCP-47 code.
4. If the language is not %q, at least one query per claim MUST be a translation into %q.
5. Use at most %d queries in total.

Reply as:
{"language": "<code>", "claims": [{"text": "<claim>", "queries": ["<query>", "..."]}]}`,
		strings.TrimSpace(in.Input), in.MaxClaims, in.WorkingLanguage, in.WorkingLanguage, in.MaxQueries)
}

// VerdictInput is the evidence the scorer may use
type VerdictInput struct {
	Claims   []model.Claim
	Evidence []model.EvidenceItem
	Excerpts []model.Excerpt
	Now      time.Time
}

// VerdictReply is the scorer's decoded answer
type VerdictReply struct {
	Claims []VerdictClaim `json:"claims"`
	Notes  string         `json:"notes"`
}

// VerdictClaim is the status of one claim with its cited evidence
type VerdictClaim struct {
	Index    int               `json:"index"`
	Status   string            `json:"status"`
	Evidence []VerdictEvidence `json:"evidence"`
}

// VerdictEvidence is a single citation
type VerdictEvidence struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
	Fact    string `json:"fact"`
}

// BuildVerdictPrompt lists claims, search results and page excerpts and
// restricts citations to the listed URLs.
func BuildVerdictPrompt(in VerdictInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Today is %s.\n\nClaims:\n", in.Now.UTC().Format("2006-01-02"))
	for _, c := range in.Claims {
		fmt.Fprintf(&b, "%d. %s\n", c.Index, c.Text)
	}

	b.WriteString("\nSearch results:\n")
	if len(in.Evidence) == 0 {
		b.WriteString("(none)\n")
	}
	for i, e := range in.Evidence {
		date := "undated"
		if e.PublishedAt != nil {
			date = e.PublishedAt.UTC().Format("2006-01-02")
		}
		fmt.Fprintf(&b, "[%d] %s | %s | %s\n    %s\n    %s\n", i+1, e.Title, e.SourceName, date, e.URL, e.Snippet)
	}

	b.WriteString("\nPage excerpts:\n")
	n := 0
	for _, x := range in.Excerpts {
		if !x.OK() {
			continue
		}
		n++
		fmt.Fprintf(&b, "--- %s\n%s\n", x.URL, x.BodyText)
	}
	if n == 0 {
		b.WriteString("(none)\n")
	}

	b.WriteString(`
Rules:
1. status is "supported", "refuted" or "unclear". Use "unclear" when evidence is missing, off-topic or too old.
2. Cite at most 2 evidence entries per claim, only with URLs listed above.
3. quality is "high" (official or primary source, major wire service), "medium" (reputable secondary outlet, encyclopedia) or "low" (anonymous, unsourced, tabloid).
4. fact is one short sentence from the evidence that supports your status.
5. notes mentions contradictions between sources and evidence gaps in one or two sentences.

Reply as:
{"claims": [{"index": 0, "status": "...", "evidence": [{"url": "...", "quality": "...", "fact": "..."}]}], "notes": "..."}`)

	return b.String()
}

// CitedURLs returns every URL the reply cites, including ones mentioned in
// facts and notes.
func (r VerdictReply) CitedURLs() []string {
	var b strings.Builder
	for _, c := range r.Claims {
		for _, e := range c.Evidence {
			b.WriteString(e.URL)
			b.WriteByte(' ')
			b.WriteString(e.Fact)
			b.WriteByte(' ')
		}
	}
	b.WriteString(r.Notes)
	return ExtractURLs(b.String())
}
