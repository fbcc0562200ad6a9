package model

import "time"

// Engine identifies the search backend that produced an evidence item
type Engine string

const (
	EngineGoogleNews    Engine = "google_news_serpapi"
	EngineGoogleWeb     Engine = "google_web_serpapi"
	EngineDuckDuckGoWeb Engine = "duckduckgo_web"
)

// KnownEngines lists every engine the retriever can be configured with
func KnownEngines() []Engine {
	return []Engine{EngineGoogleNews, EngineGoogleWeb, EngineDuckDuckGoWeb}
}

// EvidenceItem is one search hit. URL is the unique key within a batch.
type EvidenceItem struct {
	Title       string     `json:"title,omitempty"`
	URL         string     `json:"url"`
	Snippet     string     `json:"snippet,omitempty"`
	SourceName  string     `json:"source,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Engine      Engine     `json:"engine"`
}

// Excerpt is the readable text fetched from one evidence URL.
// A failed fetch carries Error and no body; it is a normal outcome.
type Excerpt struct {
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	BodyText  string    `json:"excerpt"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// OK reports whether the excerpt carries usable text
func (e Excerpt) OK() bool {
	return e.Error == "" && e.BodyText != ""
}

// Quality is the evidence quality tier attached to a cited item
type Quality string

const (
	QualityHigh   Quality = "high"   // Primary/official sources, top-tier outlets with corroboration
	QualityMedium Quality = "medium" // Reputable secondary sources, encyclopedic
	QualityLow    Quality = "low"    // Anonymous, unsourced, tabloid
)

// Weight returns the rubric weight of a quality tier
func (q Quality) Weight() float64 {
	switch q {
	case QualityHigh:
		return 1.0
	case QualityMedium:
		return 0.75
	case QualityLow:
		return 0.4
	default:
		return 0
	}
}

// Valid reports whether q is one of the known tiers
func (q Quality) Valid() bool {
	return q == QualityHigh || q == QualityMedium || q == QualityLow
}
