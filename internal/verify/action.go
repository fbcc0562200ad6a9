package verify

import "github.com/0xknstntn/news-checker/internal/model"

// ActionKind names what the orchestrator does next
type ActionKind string

const (
	ActionPlan   ActionKind = "plan"
	ActionSearch ActionKind = "search"
	ActionFetch  ActionKind = "fetch"
	ActionFinish ActionKind = "finish"
)

// Action is a strategy decision. Only the fields of its kind are read.
type Action struct {
	Kind ActionKind

	// plan
	Claims   []model.Claim
	Language string
	Queries  []PlannedQuery

	// search; RecencyDays < 0 keeps the configured window, 0 disables it
	RecencyDays int

	// fetch
	URLs []string

	Reason string
}

// Plan sets the claims and the queries for them
func Plan(claims []model.Claim, language string, queries []PlannedQuery) Action {
	return Action{Kind: ActionPlan, Claims: claims, Language: language, Queries: queries, Reason: "parse claims"}
}

// Search runs queries through the retriever
func Search(queries []PlannedQuery, recencyDays int, reason string) Action {
	return Action{Kind: ActionSearch, Queries: queries, RecencyDays: recencyDays, Reason: reason}
}

// Fetch extracts the given pages
func Fetch(urls []string) Action {
	return Action{Kind: ActionFetch, URLs: urls, Reason: "read selected sources"}
}

// Finish ends the loop
func Finish(reason string) Action {
	return Action{Kind: ActionFinish, Reason: reason}
}
