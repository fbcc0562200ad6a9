// Package verify runs the step-bounded verification loop: a Strategy decides
// the next action, the Orchestrator executes it against the retriever and the
// extractor, and the final verdict is aggregated by the Rubric.
package verify

import (
	"time"

	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/search"
)

// Limits bounds a single verification run
type Limits struct {
	MaxSteps        int
	MaxClaims       int
	MaxQueries      int
	MaxFetch        int
	MaxResults      int
	RecencyDays     int
	CharLimit       int
	WorkingLanguage string
}

// DefaultLimits mirrors the configuration defaults
func DefaultLimits() Limits {
	return Limits{
		MaxSteps:        8,
		MaxClaims:       3,
		MaxQueries:      6,
		MaxFetch:        4,
		MaxResults:      8,
		RecencyDays:     7,
		CharLimit:       2000,
		WorkingLanguage: "en",
	}
}

// LimitsFromConfig builds run limits from the verify, search and extract sections
func LimitsFromConfig(cfg model.Config) Limits {
	return Limits{
		MaxSteps:        cfg.Verify.MaxSteps,
		MaxClaims:       cfg.Verify.MaxClaims,
		MaxQueries:      cfg.Verify.MaxQueries,
		MaxFetch:        cfg.Verify.MaxFetch,
		MaxResults:      cfg.Search.MaxResults,
		RecencyDays:     cfg.Search.RecencyDays,
		CharLimit:       cfg.Extract.CharLimit,
		WorkingLanguage: cfg.Verify.WorkingLanguage,
	}
}

// PlannedQuery is one search query tied to the claim it serves
type PlannedQuery struct {
	ClaimIndex int    `json:"claim_index"`
	Text       string `json:"text"`
	Translated bool   `json:"translated,omitempty"` // Working-language variant of a foreign-language claim
}

// State is everything one run has learned so far. The Orchestrator applies
// actions to it; strategies read it and may only record degraded notes.
type State struct {
	TaskID   string
	Input    string
	Language string // Detected input language, BCP-47 base
	Limits   Limits
	Now      time.Time

	Claims   []model.Claim
	Planned  []PlannedQuery
	Searched []PlannedQuery
	Widened  bool // A no-date-limit search round has run

	Evidence []model.EvidenceItem
	Excerpts []model.Excerpt

	Degraded []string // Tool failures that weaken the verdict
	Step     int
}

func newState(task model.Task, limits Limits, now time.Time) *State {
	return &State{
		TaskID: task.ID,
		Input:  task.Input,
		Limits: limits,
		Now:    now,
	}
}

// planned reports whether claims have been parsed
func (s *State) planned() bool {
	return s.Claims != nil
}

// QueriesLeft is the remaining query budget
func (s *State) QueriesLeft() int {
	left := s.Limits.MaxQueries - len(s.Searched)
	if left < 0 {
		return 0
	}
	return left
}

// FetchesLeft is the remaining fetch budget
func (s *State) FetchesLeft() int {
	left := s.Limits.MaxFetch - len(s.Excerpts)
	if left < 0 {
		return 0
	}
	return left
}

// Fetched reports whether url already has an excerpt
func (s *State) Fetched(url string) bool {
	for _, x := range s.Excerpts {
		if x.URL == url {
			return true
		}
	}
	return false
}

// UsableExcerpts returns excerpts that carry text
func (s *State) UsableExcerpts() []model.Excerpt {
	var out []model.Excerpt
	for _, x := range s.Excerpts {
		if x.OK() {
			out = append(out, x)
		}
	}
	return out
}

// HasEvidence reports whether any search result or readable page was gathered
func (s *State) HasEvidence() bool {
	return len(s.Evidence) > 0 || len(s.UsableExcerpts()) > 0
}

// addEvidence merges items, keeping the first occurrence per normalized URL
func (s *State) addEvidence(items []model.EvidenceItem) {
	merged := append(s.Evidence, items...)
	s.Evidence = search.Dedupe(merged)
}

func (s *State) degrade(note string) {
	for _, d := range s.Degraded {
		if d == note {
			return
		}
	}
	s.Degraded = append(s.Degraded, note)
}

// evidenceFor looks up a gathered item by URL
func (s *State) evidenceFor(url string) (model.EvidenceItem, bool) {
	key := search.NormalizeURL(url)
	for _, e := range s.Evidence {
		if e.URL == key {
			return e, true
		}
	}
	return model.EvidenceItem{}, false
}

// excerptFor looks up a usable excerpt by URL
func (s *State) excerptFor(url string) (model.Excerpt, bool) {
	key := search.NormalizeURL(url)
	for _, x := range s.Excerpts {
		if x.OK() && search.NormalizeURL(x.URL) == key {
			return x, true
		}
	}
	return model.Excerpt{}, false
}
