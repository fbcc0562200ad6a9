package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/0xknstntn/news-checker/internal/model"
)

// ClaimSplitter breaks a short user message into atomic claims
type ClaimSplitter struct {
	keywords []string
}

// NewClaimSplitter creates a splitter with the default factual markers
func NewClaimSplitter() *ClaimSplitter {
	return &ClaimSplitter{
		keywords: []string{
			// English
			"announced", "announces", "said", "says", "reported", "confirmed",
			"according to", "will", "has", "was", "were", "killed", "died",
			"percent", "%", "million", "billion", "banned", "approved", "arrested",
			// Russian
			"заявил", "сообщил", "объявил", "по данным", "будет", "погиб",
			"процент", "млн", "млрд", "запрет", "утвердил", "арестован",
		},
	}
}

// Split returns at most max claims from input. Short inputs and inputs with
// a single sentence become one claim. When there are more candidate
// sentences than max, sentences with factual markers or digits win; the
// original order is kept.
func (s *ClaimSplitter) Split(input string, max int) []model.Claim {
	if max <= 0 {
		max = 1
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	sentences := dedupeSentences(SplitSentences(input, 12, 400))
	if len(sentences) == 0 {
		return []model.Claim{{Text: collapse(input), Index: 0, Rule: "input"}}
	}

	if len(sentences) > max {
		sentences = s.rank(sentences, max)
	}

	claims := make([]model.Claim, len(sentences))
	for i, sentence := range sentences {
		claims[i] = model.Claim{Text: sentence, Index: i, Rule: "sentence"}
	}
	return claims
}

// rank keeps the max most factual sentences in input order
func (s *ClaimSplitter) rank(sentences []string, max int) []string {
	type scored struct {
		idx   int
		score int
	}
	scores := make([]scored, len(sentences))
	for i, sentence := range sentences {
		scores[i] = scored{idx: i, score: s.score(sentence)}
	}

	keep := make(map[int]bool, max)
	for len(keep) < max {
		best := -1
		for i, sc := range scores {
			if keep[sc.idx] {
				continue
			}
			if best < 0 || sc.score > scores[best].score {
				best = i
			}
		}
		keep[scores[best].idx] = true
	}

	out := make([]string, 0, max)
	for i, sentence := range sentences {
		if keep[i] {
			out = append(out, sentence)
		}
	}
	return out
}

func (s *ClaimSplitter) score(sentence string) int {
	lower := strings.ToLower(sentence)
	score := 0
	for _, keyword := range s.keywords {
		if strings.Contains(lower, keyword) {
			score++
		}
	}
	if strings.IndexFunc(sentence, unicode.IsDigit) >= 0 {
		score += 2
	}
	return score
}

// SplitSentences splits text on sentence terminators followed by whitespace
// and keeps sentences whose length in runes lies within [minLen, maxLen].
// A trailing fragment without a terminator counts as a sentence.
func SplitSentences(text string, minLen, maxLen int) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	keep := func() {
		sentence := strings.TrimSpace(current.String())
		n := utf8.RuneCountInString(sentence)
		if n >= minLen && n <= maxLen {
			sentences = append(sentences, collapse(sentence))
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' || r == '…' {
			// Only split when whitespace follows, so "3.5" and "U.S." stay whole
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) && !abbreviationBefore(runes, i) {
				keep()
			}
		}
	}

	if current.Len() > 0 {
		keep()
	}

	return sentences
}

// abbreviationBefore reports whether the period at i ends a single-letter
// initial such as the "J." in "J. Smith"
func abbreviationBefore(runes []rune, i int) bool {
	if runes[i] != '.' || i == 0 {
		return false
	}
	if !unicode.IsUpper(runes[i-1]) {
		return false
	}
	return i == 1 || !unicode.IsLetter(runes[i-2])
}

// dedupeSentences removes case-insensitive duplicates
func dedupeSentences(sentences []string) []string {
	seen := make(map[string]bool)
	var unique []string

	for _, sentence := range sentences {
		key := strings.ToLower(strings.TrimSpace(sentence))
		if !seen[key] {
			seen[key] = true
			unique = append(unique, sentence)
		}
	}

	return unique
}

// DeriveTitle returns the first sentence of text (split on ". ") when it is
// 5 to 180 characters long, otherwise "".
func DeriveTitle(text string) string {
	head := text
	if i := strings.Index(text, ". "); i >= 0 {
		head = text[:i]
	}
	head = strings.TrimSpace(head)
	n := utf8.RuneCountInString(head)
	if n < 5 || n > 180 {
		return ""
	}
	return head
}
