package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0xknstntn/news-checker/internal/model"
)

func TestAuthorityClassifier_Classify(t *testing.T) {
	a := NewAuthorityClassifier(map[string]Tier{"Example-Ministry.org": TierOfficial})

	tests := []struct {
		url  string
		want Tier
	}{
		{"https://www.reuters.com/world/x", TierMajor},
		{"https://news.bbc.co.uk/2/hi/x", TierMajor},
		{"https://data.gov/dataset", TierOfficial},
		{"https://www.gov.uk/government/news/x", TierOfficial},
		{"https://rosstat.gov.ru/folder/1", TierOfficial},
		{"https://en.wikipedia.org/wiki/X", TierReputable},
		{"https://www.dailymail.co.uk/news/x", TierLow},
		{"https://t.me/channel/1", TierLow},
		{"https://example-ministry.org/statement", TierOfficial},
		{"https://acme-corp.com/press/2024/layoffs", TierOfficial},
		{"https://random-site.net/blog/post", TierLow},
		{"https://www.reuters.com/opinion/x", TierMajor},
		{"https://cs.stanford.edu/paper", TierOfficial},
		{"https://random-site.net/article", TierUnknown},
		{"not a url", TierUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Classify(tt.url))
		})
	}
}

func TestAuthorityClassifier_Quality(t *testing.T) {
	a := NewAuthorityClassifier(nil)

	assert.Equal(t, model.QualityHigh, a.Quality(model.EvidenceItem{URL: "https://apnews.com/a"}))
	assert.Equal(t, model.QualityHigh, a.Quality(model.EvidenceItem{URL: "https://www.sec.gov/a"}))
	assert.Equal(t, model.QualityMedium, a.Quality(model.EvidenceItem{URL: "https://en.wikipedia.org/wiki/A"}))
	assert.Equal(t, model.QualityLow, a.Quality(model.EvidenceItem{URL: "https://reddit.com/r/a"}))
	assert.Equal(t, model.QualityMedium, a.Quality(model.EvidenceItem{URL: "https://local-paper.com/a", Engine: model.EngineGoogleNews}))
	assert.Equal(t, model.QualityLow, a.Quality(model.EvidenceItem{URL: "https://local-paper.com/a", Engine: model.EngineDuckDuckGoWeb}))
}
