package verify

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/0xknstntn/news-checker/internal/model"
)

// Tier is the authority of a source domain
type Tier int

const (
	TierUnknown  Tier = iota
	TierLow           // Tabloids, social media, anonymous blogs
	TierReputable     // Regional outlets, encyclopedias, trade press
	TierMajor         // Wire services and top-tier outlets
	TierOfficial      // Governments, regulators, companies' own press rooms
)

func (t Tier) String() string {
	switch t {
	case TierOfficial:
		return "official"
	case TierMajor:
		return "major"
	case TierReputable:
		return "reputable"
	case TierLow:
		return "low"
	default:
		return "unknown"
	}
}

// AuthorityClassifier classifies sources into authority tiers
type AuthorityClassifier struct {
	domains      map[string]Tier
	pathPatterns []compiledPattern
}

type compiledPattern struct {
	pattern *regexp.Regexp
	tier    Tier
}

var officialDomains = []string{
	"gov", "gov.uk", "gov.ru", "kremlin.ru", "government.ru", "europa.eu", "un.org", "who.int",
	"imf.org", "worldbank.org", "oecd.org", "nato.int", "sec.gov", "federalreserve.gov",
	"ecb.europa.eu", "cbr.ru", "rosstat.gov.ru", "mil.ru", "mid.ru", "whitehouse.gov",
	"prnewswire.com", "businesswire.com", "globenewswire.com",
}

var majorDomains = []string{
	"reuters.com", "apnews.com", "afp.com", "bbc.com", "bbc.co.uk", "nytimes.com",
	"washingtonpost.com", "wsj.com", "ft.com", "bloomberg.com", "theguardian.com",
	"economist.com", "cnn.com", "npr.org", "aljazeera.com", "dw.com", "lemonde.fr",
	"tass.ru", "ria.ru", "interfax.ru", "rbc.ru", "kommersant.ru", "vedomosti.ru",
	"meduza.io", "cnbc.com", "axios.com", "politico.com", "nature.com", "science.org",
}

var reputableDomains = []string{
	"wikipedia.org", "britannica.com", "forbes.com", "theverge.com", "techcrunch.com",
	"arstechnica.com", "wired.com", "independent.co.uk", "usatoday.com", "euronews.com",
	"lenta.ru", "gazeta.ru", "izvestia.ru", "fontanka.ru", "novayagazeta.ru", "snopes.com",
	"factcheck.org", "politifact.com", "fullfact.org",
}

var lowDomains = []string{
	"dailymail.co.uk", "thesun.co.uk", "nypost.com", "mirror.co.uk", "express.co.uk",
	"twitter.com", "x.com", "facebook.com", "instagram.com", "tiktok.com", "t.me", "vk.com",
	"reddit.com", "medium.com", "substack.com", "blogspot.com", "wordpress.com", "livejournal.com",
	"youtube.com", "pikabu.ru", "dzen.ru",
}

// NewAuthorityClassifier creates a classifier with the built-in domain lists
// plus extra host→tier overrides.
func NewAuthorityClassifier(extra map[string]Tier) *AuthorityClassifier {
	a := &AuthorityClassifier{domains: make(map[string]Tier)}

	for _, list := range []struct {
		domains []string
		tier    Tier
	}{
		{lowDomains, TierLow},
		{reputableDomains, TierReputable},
		{majorDomains, TierMajor},
		{officialDomains, TierOfficial},
	} {
		for _, d := range list.domains {
			a.domains[d] = list.tier
		}
	}
	for d, t := range extra {
		a.domains[strings.ToLower(d)] = t
	}

	for _, p := range []struct {
		expr string
		tier Tier
	}{
		{`(?i)/(press|newsroom|press-releases?|media-centre|pressroom)(/|$)`, TierOfficial},
		{`(?i)/(opinion|blogs?|comment)(/|$)`, TierLow},
	} {
		a.pathPatterns = append(a.pathPatterns, compiledPattern{pattern: regexp.MustCompile(p.expr), tier: p.tier})
	}

	return a
}

// Classify classifies a URL into an authority tier
func (a *AuthorityClassifier) Classify(rawURL string) Tier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return TierUnknown
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	// Walk from the full host to its registrable suffixes: news.bbc.co.uk,
	// bbc.co.uk, co.uk, uk.
	tier := TierUnknown
	for h := host; h != ""; {
		if t, ok := a.domains[h]; ok {
			tier = t
			break
		}
		dot := strings.IndexByte(h, '.')
		if dot < 0 {
			break
		}
		h = h[dot+1:]
	}

	// Path patterns only classify hosts missing from the lists
	if tier == TierUnknown {
		for _, cp := range a.pathPatterns {
			if cp.pattern.MatchString(parsed.Path) {
				return cp.tier
			}
		}
	}

	if tier == TierUnknown && (strings.HasSuffix(host, ".edu") || strings.HasSuffix(host, ".ac.uk") || strings.HasSuffix(host, ".mil")) {
		return TierOfficial
	}
	return tier
}

// Quality maps an evidence item to a quality tier. Unknown domains surfaced
// by a news engine count as medium, other unknown domains as low.
func (a *AuthorityClassifier) Quality(item model.EvidenceItem) model.Quality {
	switch a.Classify(item.URL) {
	case TierOfficial, TierMajor:
		return model.QualityHigh
	case TierReputable:
		return model.QualityMedium
	case TierLow:
		return model.QualityLow
	}
	if item.Engine == model.EngineGoogleNews {
		return model.QualityMedium
	}
	return model.QualityLow
}
