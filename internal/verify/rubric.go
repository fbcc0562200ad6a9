package verify

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/0xknstntn/news-checker/internal/model"
)

// NoEvidenceScore is the score given when nothing usable was gathered
const NoEvidenceScore = 40

const breakingWindow = 48 * time.Hour

// Rubric turns per-claim verdicts into the overall label and score. The
// mapping is monotone in truthfulness: upgrading a claim from refuted to
// unclear to supported never lowers the score, and better evidence pushes
// the score further in the direction of the claim's status.
type Rubric struct {
	authority *AuthorityClassifier
}

// NewRubric creates a rubric; authority decides what counts as primary evidence
func NewRubric(authority *AuthorityClassifier) *Rubric {
	if authority == nil {
		authority = NewAuthorityClassifier(nil)
	}
	return &Rubric{authority: authority}
}

// Aggregate builds the verification result. notes are strategy remarks
// placed before the rubric's own notes.
func (r *Rubric) Aggregate(st *State, verdicts []model.ClaimVerdict, notes ...string) *model.VerificationResult {
	res := &model.VerificationResult{ClaimVerdicts: verdicts}

	var all []string
	for _, n := range notes {
		if n = strings.TrimSpace(n); n != "" {
			all = append(all, n)
		}
	}

	if !st.HasEvidence() {
		for i := range res.ClaimVerdicts {
			res.ClaimVerdicts[i].Status = model.StatusUnclear
			res.ClaimVerdicts[i].Evidence = nil
		}
		res.Score = NoEvidenceScore
		res.Label = model.LabelUnclear
		all = append(all, "No usable evidence was found, so the claim cannot be confirmed or refuted.")
		all = append(all, st.Degraded...)
		res.Notes = strings.Join(all, " ")
		return res
	}

	res.Score = r.score(st, verdicts)
	res.Label = model.LabelForScore(res.Score)

	all = append(all, r.notes(st, verdicts)...)
	all = append(all, st.Degraded...)
	res.Notes = strings.Join(all, " ")

	res.SourceLinks = res.CitedURLs()
	if len(res.SourceLinks) == 0 {
		// Best leads when nothing was cited
		for i := 0; i < len(st.Evidence) && i < 3; i++ {
			res.SourceLinks = append(res.SourceLinks, st.Evidence[i].URL)
		}
	}
	return res
}

func (r *Rubric) score(st *State, verdicts []model.ClaimVerdict) int {
	if len(verdicts) == 0 {
		return 50
	}

	var sum float64
	highCitations := 0
	primary := false
	refutedByHigh := false
	allSupported := true

	for _, v := range verdicts {
		weight := model.QualityLow.Weight()
		for _, ce := range v.Evidence {
			weight = math.Max(weight, ce.Quality.Weight())
			if ce.Quality == model.QualityHigh {
				highCitations++
				if v.Status == model.StatusRefuted {
					refutedByHigh = true
				}
			}
			if r.authority.Classify(ce.Item.URL) == TierOfficial {
				primary = true
			}
		}

		switch v.Status {
		case model.StatusSupported:
			sum += weight
		case model.StatusRefuted:
			sum -= weight
			allSupported = false
		default:
			allSupported = false
		}
	}

	mean := sum / float64(len(verdicts))

	// Snippets alone are weaker than read pages
	if len(st.UsableExcerpts()) == 0 {
		mean *= 0.8
	}

	score := int(math.Round(50 + 50*mean))

	// True needs corroboration or a primary source; False needs high-quality refutation
	if score >= 90 && !(allSupported && (highCitations >= 2 || primary)) {
		score = 89
	}
	if score < 20 && !refutedByHigh {
		score = 20
	}
	return model.LabelForScore(score).Band().Clamp(score)
}

func (r *Rubric) notes(st *State, verdicts []model.ClaimVerdict) []string {
	var notes []string

	var supported, refuted int
	for _, v := range verdicts {
		switch v.Status {
		case model.StatusSupported:
			supported++
		case model.StatusRefuted:
			refuted++
		}
	}
	if supported > 0 && refuted > 0 {
		notes = append(notes, "Claims point in different directions: some are supported, others refuted.")
	}

	var newest, oldest time.Time
	dated := 0
	for _, e := range st.Evidence {
		if e.PublishedAt == nil {
			continue
		}
		dated++
		if newest.IsZero() || e.PublishedAt.After(newest) {
			newest = *e.PublishedAt
		}
		if oldest.IsZero() || e.PublishedAt.Before(oldest) {
			oldest = *e.PublishedAt
		}
	}

	if dated > 0 && st.Now.Sub(oldest) < breakingWindow {
		notes = append(notes, "Breaking story: all coverage is less than 48 hours old and details may change.")
	}

	if days := st.Limits.RecencyDays * 4; dated > 0 && days > 0 && st.Now.Sub(newest) > time.Duration(days)*24*time.Hour {
		notes = append(notes, fmt.Sprintf("The newest coverage is from %s; the story may be resurfacing out of context.", newest.UTC().Format("2006-01-02")))
	}

	if len(st.UsableExcerpts()) == 0 {
		notes = append(notes, "No source page could be read; the verdict rests on search snippets.")
	}

	return notes
}
