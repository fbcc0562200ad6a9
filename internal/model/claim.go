package model

// Claim is an atomic factual assertion extracted from a task input.
// Claims only live for the duration of one verification run.
type Claim struct {
	Text  string `json:"text"`           // The assertion itself
	Index int    `json:"index"`          // Position in the input (0-based)
	Rule  string `json:"rule,omitempty"` // Which splitting rule produced it (e.g., "sentence", "llm")
}

// ClaimStatus is the per-claim outcome of evidence scoring
type ClaimStatus string

const (
	StatusSupported ClaimStatus = "supported"
	StatusRefuted   ClaimStatus = "refuted"
	StatusUnclear   ClaimStatus = "unclear"
)

// Valid reports whether s is one of the known statuses
func (s ClaimStatus) Valid() bool {
	switch s {
	case StatusSupported, StatusRefuted, StatusUnclear:
		return true
	}
	return false
}

// Mark returns the status glyph used in rendered reports
func (s ClaimStatus) Mark() string {
	switch s {
	case StatusSupported:
		return "✅"
	case StatusRefuted:
		return "❌"
	default:
		return "❓"
	}
}

// CitedEvidence is one evidence item attached to a claim verdict
type CitedEvidence struct {
	Item    EvidenceItem `json:"item"`
	Quality Quality      `json:"quality"`
	Fact    string       `json:"fact,omitempty"` // Short supporting fact, usually a snippet or excerpt sentence
}

// ClaimVerdict is the scored outcome for a single claim
type ClaimVerdict struct {
	Claim    Claim           `json:"claim"`
	Status   ClaimStatus     `json:"status"`
	Evidence []CitedEvidence `json:"cited_evidence"` // At most two, best first
}
