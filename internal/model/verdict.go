package model

import "fmt"

// Label is the overall verdict label of a verification run
type Label string

const (
	LabelTrue        Label = "True"
	LabelLikelyTrue  Label = "LikelyTrue"
	LabelUnclear     Label = "Unclear"
	LabelLikelyFalse Label = "LikelyFalse"
	LabelFalse       Label = "False"
)

// Band is the inclusive score range owned by a label
type Band struct {
	Min int
	Max int
}

// Contains reports whether score lies inside the band
func (b Band) Contains(score int) bool {
	return score >= b.Min && score <= b.Max
}

// Clamp pulls score into the band
func (b Band) Clamp(score int) int {
	if score < b.Min {
		return b.Min
	}
	if score > b.Max {
		return b.Max
	}
	return score
}

var labelBands = map[Label]Band{
	LabelTrue:        {Min: 90, Max: 100},
	LabelLikelyTrue:  {Min: 70, Max: 89},
	LabelUnclear:     {Min: 40, Max: 69},
	LabelLikelyFalse: {Min: 20, Max: 39},
	LabelFalse:       {Min: 0, Max: 19},
}

// Band returns the score band of the label
func (l Label) Band() Band {
	return labelBands[l]
}

// Valid reports whether l is one of the five known labels
func (l Label) Valid() bool {
	_, ok := labelBands[l]
	return ok
}

// Display returns the human form used in rendered reports
func (l Label) Display() string {
	switch l {
	case LabelLikelyTrue:
		return "Likely true"
	case LabelLikelyFalse:
		return "Likely false"
	default:
		return string(l)
	}
}

// LabelForScore maps a score to the label whose band contains it.
// Scores above 100 map to True and below 0 to False.
func LabelForScore(score int) Label {
	switch {
	case score >= 90:
		return LabelTrue
	case score >= 70:
		return LabelLikelyTrue
	case score >= 40:
		return LabelUnclear
	case score >= 20:
		return LabelLikelyFalse
	default:
		return LabelFalse
	}
}

// VerificationResult is the terminal artifact of one task
type VerificationResult struct {
	Label         Label          `json:"overall_label"`
	Score         int            `json:"overall_score"`
	ClaimVerdicts []ClaimVerdict `json:"claim_verdicts"`
	Notes         string         `json:"notes"`
	SourceLinks   []string       `json:"source_links"`
	Strategy      string         `json:"strategy,omitempty"` // Which reasoning strategy produced the claim verdicts
}

// Check verifies that the score lies within the band of the label
func (r *VerificationResult) Check() error {
	if !r.Label.Valid() {
		return fmt.Errorf("unknown label %q", r.Label)
	}
	if !r.Label.Band().Contains(r.Score) {
		return fmt.Errorf("score %d outside %s band [%d, %d]", r.Score, r.Label, r.Label.Band().Min, r.Label.Band().Max)
	}
	return nil
}

// CitedURLs returns the flattened, de-duplicated list of cited evidence URLs in claim order
func (r *VerificationResult) CitedURLs() []string {
	seen := make(map[string]bool)
	var urls []string
	for _, cv := range r.ClaimVerdicts {
		for _, ce := range cv.Evidence {
			if ce.Item.URL == "" || seen[ce.Item.URL] {
				continue
			}
			seen[ce.Item.URL] = true
			urls = append(urls, ce.Item.URL)
		}
	}
	return urls
}
