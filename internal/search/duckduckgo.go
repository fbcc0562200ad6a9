package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/0xknstntn/news-checker/internal/model"
)

// DuckDuckGoBackend scrapes the DuckDuckGo HTML endpoint for web results.
// The endpoint carries no publication dates.
type DuckDuckGoBackend struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// NewDuckDuckGoBackend creates the backend; endpoint defaults to the public HTML endpoint
func NewDuckDuckGoBackend(endpoint, userAgent string, httpClient *http.Client) *DuckDuckGoBackend {
	if endpoint == "" {
		endpoint = "https://html.duckduckgo.com/html/"
	}
	return &DuckDuckGoBackend{
		endpoint:   endpoint,
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

// Name returns the engine id
func (b *DuckDuckGoBackend) Name() model.Engine { return model.EngineDuckDuckGoWeb }

// Search returns up to min(6, q.MaxResults) results
func (b *DuckDuckGoBackend) Search(ctx context.Context, q Query) ([]model.EvidenceItem, error) {
	form := url.Values{}
	form.Set("q", q.Text)
	form.Set("kl", "wt-wt")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	// 202 is returned with a challenge page when rate limited
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(b.Name(), resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: parse html: %w", b.Name(), err)
	}

	items := parseDuckDuckGo(doc, webLimit(q.MaxResults))
	return items, nil
}

// parseDuckDuckGo walks the result page in document order. Each a.result__a
// opens a result; the following .result__snippet fills its snippet.
// Sponsored blocks (.result--ad) are skipped.
func parseDuckDuckGo(doc *html.Node, limit int) []model.EvidenceItem {
	var items []model.EvidenceItem
	current := -1

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(items) >= limit && current < 0 {
			return
		}
		if n.Type == html.ElementNode {
			classes := attr(n, "class")
			if n.DataAtom == atom.Div && hasClass(classes, "result--ad") {
				return
			}
			switch {
			case n.DataAtom == atom.A && hasClass(classes, "result__a"):
				current = -1
				if len(items) >= limit {
					return
				}
				link := resolveDuckDuckGoLink(attr(n, "href"))
				if link == "" {
					return
				}
				items = append(items, model.EvidenceItem{
					Title:      nodeText(n),
					URL:        link,
					SourceName: string(model.EngineDuckDuckGoWeb),
					Engine:     model.EngineDuckDuckGoWeb,
				})
				current = len(items) - 1
				return
			case hasClass(classes, "result__snippet"):
				if current >= 0 && items[current].Snippet == "" {
					items[current].Snippet = nodeText(n)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return items
}

// resolveDuckDuckGoLink unwraps //duckduckgo.com/l/?uddg=<target> redirects
func resolveDuckDuckGoLink(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classes, want string) bool {
	for _, c := range strings.Fields(classes) {
		if c == want {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
