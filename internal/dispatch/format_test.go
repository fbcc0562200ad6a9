package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xknstntn/news-checker/internal/model"
)

func sampleResult() *model.VerificationResult {
	published := time.Date(2024, 5, 8, 9, 30, 0, 0, time.UTC)
	return &model.VerificationResult{
		Label: model.LabelLikelyTrue,
		Score: 82,
		ClaimVerdicts: []model.ClaimVerdict{
			{
				Claim:  model.Claim{Text: "Company X laid off 500 employees", Index: 0},
				Status: model.StatusSupported,
				Evidence: []model.CitedEvidence{
					{
						Item:    model.EvidenceItem{URL: "https://www.reuters.com/a", SourceName: "Reuters", PublishedAt: &published},
						Quality: model.QualityHigh,
						Fact:    "Company X cut 500 jobs on Tuesday.",
					},
					{
						Item:    model.EvidenceItem{URL: "https://www.example-news.com/b", Snippet: "Layoffs confirmed."},
						Quality: model.QualityMedium,
					},
					{
						Item:    model.EvidenceItem{URL: "https://c.example.org/c", SourceName: "Third"},
						Quality: model.QualityLow,
					},
				},
			},
			{
				Claim:  model.Claim{Text: "The CEO resigned", Index: 1},
				Status: model.StatusUnclear,
			},
		},
		Notes:       "Coverage is limited to search snippets.",
		SourceLinks: []string{"https://www.reuters.com/a", "https://www.example-news.com/b"},
	}
}

func TestFormatResult(t *testing.T) {
	out := FormatResult(sampleResult())

	assert.True(t, strings.HasPrefix(out, "✅ **Likely true (82%)**"), out)
	assert.Contains(t, out, "1️⃣ **Company X laid off 500 employees** — ✅")
	assert.Contains(t, out, "• Reuters (2024-05-08, high) — Company X cut 500 jobs on Tuesday.")
	assert.Contains(t, out, "• example-news.com (medium) — Layoffs confirmed.")
	assert.NotContains(t, out, "Third", "only two bullets per claim")
	assert.Contains(t, out, "2️⃣ **The CEO resigned** — ❓")
	assert.Contains(t, out, "📚 **Sources:** Reuters (high), example-news.com (medium), Third (low)")
	assert.Contains(t, out, "⚠️ **Notes:** Coverage is limited to search snippets.")
	assert.Contains(t, out, "🔗 **Links:** https://www.reuters.com/a https://www.example-news.com/b")
}

func TestFormatResultLabels(t *testing.T) {
	tests := []struct {
		label model.Label
		score int
		want  string
	}{
		{model.LabelTrue, 95, "✅ **True (95%)**"},
		{model.LabelUnclear, 40, "❓ **Unclear (40%)**"},
		{model.LabelLikelyFalse, 25, "❌ **Likely false (25%)**"},
		{model.LabelFalse, 5, "❌ **False (5%)**"},
	}
	for _, tt := range tests {
		t.Run(string(tt.label), func(t *testing.T) {
			out := FormatResult(&model.VerificationResult{Label: tt.label, Score: tt.score})
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestFormatResultNil(t *testing.T) {
	assert.Empty(t, FormatResult(nil))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"bold", "**Verdict:** True", "Verdict: True"},
		{"italic and code", "_maybe_ `x`", "maybe x"},
		{"link", "see [Reuters](https://reuters.com)", "see Reuters"},
		{"line breaks kept", "a **b**\nc", "a b\nc"},
		{"paragraphs", "one\n\ntwo", "one\n\ntwo"},
		{"bare url", "https://example.com/a_b_c", "https://example.com/a_b_c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}

func TestPlainTextReport(t *testing.T) {
	out := PlainText(FormatResult(sampleResult()))

	require.NotContains(t, out, "**")
	lines := strings.Split(out, "\n")
	assert.Equal(t, "✅ Likely true (82%)", lines[0])
	assert.Contains(t, out, "1️⃣ Company X laid off 500 employees — ✅\n• Reuters (2024-05-08, high)")
	assert.Contains(t, out, "📚 Sources: Reuters (high)")
	assert.Contains(t, out, "🔗 Links: https://www.reuters.com/a https://www.example-news.com/b")
}
