package dispatch

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/0xknstntn/news-checker/internal/model"
)

const maxBullets = 2

// FormatResult renders a verification result as the chat report: a verdict
// line, numbered claims with up to two evidence bullets each, then the
// sources, notes and links lines. The output is light markdown.
func FormatResult(res *model.VerificationResult) string {
	if res == nil {
		return ""
	}

	var sections []string
	sections = append(sections, fmt.Sprintf("%s **%s (%d%%)**", labelMark(res.Label), res.Label.Display(), res.Score))

	for i, cv := range res.ClaimVerdicts {
		var b strings.Builder
		fmt.Fprintf(&b, "%s **%s** %s %s", keycap(i+1), strings.TrimSpace(cv.Claim.Text), dash, cv.Status.Mark())
		for j, ce := range cv.Evidence {
			if j == maxBullets {
				break
			}
			b.WriteString("\n")
			b.WriteString(bullet(ce))
		}
		sections = append(sections, b.String())
	}

	var footer []string
	if sources := sourceList(res); sources != "" {
		footer = append(footer, "📚 **Sources:** "+sources)
	}
	if notes := strings.TrimSpace(res.Notes); notes != "" {
		footer = append(footer, "⚠️ **Notes:** "+notes)
	}
	if len(res.SourceLinks) > 0 {
		footer = append(footer, "🔗 **Links:** "+strings.Join(res.SourceLinks, " "))
	}
	if len(footer) > 0 {
		sections = append(sections, strings.Join(footer, "\n"))
	}

	return strings.Join(sections, "\n\n")
}

const dash = "—"

func labelMark(l model.Label) string {
	switch l {
	case model.LabelTrue, model.LabelLikelyTrue:
		return model.StatusSupported.Mark()
	case model.LabelFalse, model.LabelLikelyFalse:
		return model.StatusRefuted.Mark()
	default:
		return model.StatusUnclear.Mark()
	}
}

// keycap renders n as a keycap emoji; numbers above 9 fall back to "n."
func keycap(n int) string {
	if n < 0 || n > 9 {
		return fmt.Sprintf("%d.", n)
	}
	return fmt.Sprintf("%d\uFE0F\u20E3", n)
}

func bullet(ce model.CitedEvidence) string {
	meta := []string{}
	if ce.Item.PublishedAt != nil {
		meta = append(meta, ce.Item.PublishedAt.UTC().Format("2006-01-02"))
	}
	if ce.Quality != "" {
		meta = append(meta, string(ce.Quality))
	}

	line := "• " + sourceName(ce.Item)
	if len(meta) > 0 {
		line += " (" + strings.Join(meta, ", ") + ")"
	}
	fact := strings.TrimSpace(ce.Fact)
	if fact == "" {
		fact = strings.TrimSpace(ce.Item.Snippet)
	}
	if fact != "" {
		line += " " + dash + " " + fact
	}
	return line
}

func sourceName(item model.EvidenceItem) string {
	if name := strings.TrimSpace(item.SourceName); name != "" {
		return name
	}
	if u, err := url.Parse(item.URL); err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Hostname(), "www.")
	}
	return item.URL
}

// sourceList names each cited source once, with its best quality
func sourceList(res *model.VerificationResult) string {
	var order []string
	best := make(map[string]model.Quality)
	for _, cv := range res.ClaimVerdicts {
		for _, ce := range cv.Evidence {
			name := sourceName(ce.Item)
			if name == "" {
				continue
			}
			prev, seen := best[name]
			if !seen {
				order = append(order, name)
			}
			if !seen || ce.Quality.Weight() > prev.Weight() {
				best[name] = ce.Quality
			}
		}
	}

	parts := make([]string, 0, len(order))
	for _, name := range order {
		if q := best[name]; q != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", name, q))
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ", ")
}
