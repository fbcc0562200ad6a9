package search

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/0xknstntn/news-checker/internal/model"
)

// NormalizeURL strips the fragment and lowercases scheme and host
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

// Dedupe keeps the first item per normalized URL and stores the normalized
// URL on the kept item. Items without a URL are dropped. Dedupe(Dedupe(x))
// equals Dedupe(x).
func Dedupe(items []model.EvidenceItem) []model.EvidenceItem {
	seen := make(map[string]bool, len(items))
	out := make([]model.EvidenceItem, 0, len(items))
	for _, item := range items {
		key := NormalizeURL(item.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		item.URL = key
		out = append(out, item)
	}
	return out
}

// SortByDate orders items newest first. Undated items sort last, keeping
// their relative order.
func SortByDate(items []model.EvidenceItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return publishedUnix(items[i]) > publishedUnix(items[j])
	})
}

func publishedUnix(item model.EvidenceItem) int64 {
	if item.PublishedAt == nil {
		return 0
	}
	return item.PublishedAt.Unix()
}

// FilterRecent drops dated items older than days before now. Undated items are kept.
func FilterRecent(items []model.EvidenceItem, days int, now time.Time) []model.EvidenceItem {
	if days <= 0 {
		return items
	}
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	out := items[:0:0]
	for _, item := range items {
		if item.PublishedAt != nil && item.PublishedAt.Before(cutoff) {
			continue
		}
		out = append(out, item)
	}
	return out
}
