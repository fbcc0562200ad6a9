package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrCitationLeak is returned when a reply cites a URL outside the evidence
// allowlist.
var ErrCitationLeak = errors.New("citation leak")

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]"'<>]+`)

// ExtractURLs returns the distinct URLs found in text, in order of appearance
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	seen := make(map[string]bool)
	var unique []string
	for _, u := range matches {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}
	return unique
}

// CheckCitations fails with ErrCitationLeak if any URL in cited is not in
// allowed. Trailing slashes are ignored when comparing.
func CheckCitations(cited, allowed []string) error {
	allow := make(map[string]bool, len(allowed))
	for _, u := range allowed {
		allow[strings.TrimSuffix(u, "/")] = true
	}
	for _, u := range cited {
		if !allow[strings.TrimSuffix(u, "/")] {
			return fmt.Errorf("%w: %s", ErrCitationLeak, u)
		}
	}
	return nil
}
