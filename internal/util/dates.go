package util

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeDatePattern = regexp.MustCompile(`(?i)\b(\d+)\s+(second|minute|min|hour|day|week|month|year)s?\s+ago\b`)

var dayWordPattern = regexp.MustCompile(`\b([Yy]esterday|[Tt]oday)\b`)

// absoluteLayouts are tried in order by ParseDate
var absoluteLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"01/02/2006, 03:04 PM, -0700 MST", // Google News
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// ParseDate normalizes an absolute or relative date string to UTC.
// Relative forms ("3 hours ago", "yesterday") are anchored at now.
// The second return value is false when nothing could be parsed.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := relativeDatePattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		return now.Add(-relativeUnit(strings.ToLower(m[2]), n)).UTC(), true
	}

	switch strings.ToLower(s) {
	case "today", "just now":
		return now.UTC(), true
	case "yesterday":
		return now.Add(-24 * time.Hour).UTC(), true
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// relativeUnit converts a unit name and count to a duration; a month is 30 days
func relativeUnit(unit string, n int) time.Duration {
	d := time.Duration(n)
	switch unit {
	case "second":
		return d * time.Second
	case "minute", "min":
		return d * time.Minute
	case "hour":
		return d * time.Hour
	case "day":
		return d * 24 * time.Hour
	case "week":
		return d * 7 * 24 * time.Hour
	case "month":
		return d * 30 * 24 * time.Hour
	case "year":
		return d * 365 * 24 * time.Hour
	}
	return 0
}

// NormalizeRelativeDates rewrites relative date phrases in free text as
// ISO-8601 dates anchored at now.
func NormalizeRelativeDates(text string, now time.Time) string {
	text = relativeDatePattern.ReplaceAllStringFunc(text, func(match string) string {
		t, ok := ParseDate(match, now)
		if !ok {
			return match
		}
		return t.Format("2006-01-02")
	})

	var b strings.Builder
	last := 0
	for _, loc := range dayWordPattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		// "Today" inside a name such as "USA Today" stays as written
		if text[start] == 'T' || text[start] == 'Y' {
			if !sentenceStart(text[:start]) {
				continue
			}
		}
		t, ok := ParseDate(text[start:end], now)
		if !ok {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(t.Format("2006-01-02"))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// sentenceStart reports whether a word following prefix opens a sentence
func sentenceStart(prefix string) bool {
	prefix = strings.TrimRight(prefix, " \t\n\r\"'(«“")
	if prefix == "" {
		return true
	}
	switch prefix[len(prefix)-1] {
	case '.', '!', '?', ':', ';', '\n':
		return true
	}
	return false
}
