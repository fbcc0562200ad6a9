package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/util"
)

// SerpAPIClient calls the SerpAPI search endpoint
type SerpAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewSerpAPIClient creates a client; baseURL defaults to https://serpapi.com
func NewSerpAPIClient(baseURL, apiKey string, httpClient *http.Client) *SerpAPIClient {
	if baseURL == "" {
		baseURL = "https://serpapi.com"
	}
	return &SerpAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (c *SerpAPIClient) get(ctx context.Context, engine model.Engine, params url.Values, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%s: SERPAPI_API_KEY not set: %w", engine, ErrPermanent)
	}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", engine, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", engine, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(engine, resp.StatusCode)
	}

	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", engine, err)
	}
	// "Google hasn't returned any results" is an empty result, not a failure
	if envelope.Error != "" && !strings.Contains(strings.ToLower(envelope.Error), "any results") {
		return fmt.Errorf("%s: %s", engine, envelope.Error)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", engine, err)
	}
	return nil
}

// sourceName accepts both {"name": "..."} and a bare string
type sourceName string

func (s *sourceName) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = sourceName(name)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	*s = sourceName(obj.Name)
	return nil
}

type newsResult struct {
	Title         string       `json:"title"`
	Link          string       `json:"link"`
	URL           string       `json:"url"`
	Snippet       string       `json:"snippet"`
	Excerpt       string       `json:"excerpt"`
	Source        sourceName   `json:"source"`
	Date          string       `json:"date"`
	PublishedDate string       `json:"published_date"`
	Stories       []newsResult `json:"stories"`
}

// GoogleNewsBackend queries Google News through SerpAPI
type GoogleNewsBackend struct {
	client *SerpAPIClient
}

// NewGoogleNewsBackend creates the primary news backend
func NewGoogleNewsBackend(client *SerpAPIClient) *GoogleNewsBackend {
	return &GoogleNewsBackend{client: client}
}

// Name returns the engine id
func (b *GoogleNewsBackend) Name() model.Engine { return model.EngineGoogleNews }

// Search returns up to q.MaxResults news articles
func (b *GoogleNewsBackend) Search(ctx context.Context, q Query) ([]model.EvidenceItem, error) {
	params := url.Values{}
	params.Set("engine", "google_news")
	params.Set("q", q.Text)
	params.Set("hl", "en")
	params.Set("gl", "us")
	params.Set("num", strconv.Itoa(q.MaxResults))

	var data struct {
		NewsResults []newsResult `json:"news_results"`
		Articles    []newsResult `json:"articles"`
	}
	if err := b.client.get(ctx, b.Name(), params, &data); err != nil {
		return nil, err
	}

	results := data.NewsResults
	if len(results) == 0 {
		results = data.Articles
	}

	now := b.client.now()
	var items []model.EvidenceItem
	var add func(r newsResult)
	add = func(r newsResult) {
		link := r.Link
		if link == "" {
			link = r.URL
		}
		if link == "" {
			// Story clusters carry their articles in "stories"
			for _, s := range r.Stories {
				add(s)
			}
			return
		}
		snippet := r.Snippet
		if snippet == "" {
			snippet = r.Excerpt
		}
		date := r.Date
		if date == "" {
			date = r.PublishedDate
		}
		item := model.EvidenceItem{
			Title:      r.Title,
			URL:        link,
			Snippet:    snippet,
			SourceName: string(r.Source),
			Engine:     model.EngineGoogleNews,
		}
		if t, ok := util.ParseDate(date, now); ok {
			item.PublishedAt = &t
		}
		items = append(items, item)
	}
	for _, r := range results {
		add(r)
	}

	if len(items) > q.MaxResults {
		items = items[:q.MaxResults]
	}
	return items, nil
}

// GoogleWebBackend queries Google web search through SerpAPI
type GoogleWebBackend struct {
	client *SerpAPIClient
}

// NewGoogleWebBackend creates the general web backend
func NewGoogleWebBackend(client *SerpAPIClient) *GoogleWebBackend {
	return &GoogleWebBackend{client: client}
}

// Name returns the engine id
func (b *GoogleWebBackend) Name() model.Engine { return model.EngineGoogleWeb }

// Search returns up to min(6, q.MaxResults) organic results
func (b *GoogleWebBackend) Search(ctx context.Context, q Query) ([]model.EvidenceItem, error) {
	limit := webLimit(q.MaxResults)

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", q.Text)
	params.Set("num", strconv.Itoa(limit))

	var data struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
			Source  string `json:"source"`
			Date    string `json:"date"`
		} `json:"organic_results"`
	}
	if err := b.client.get(ctx, b.Name(), params, &data); err != nil {
		return nil, err
	}

	now := b.client.now()
	var items []model.EvidenceItem
	for _, r := range data.OrganicResults {
		if r.Link == "" {
			continue
		}
		source := r.Source
		if source == "" {
			source = string(model.EngineGoogleWeb)
		}
		item := model.EvidenceItem{
			Title:      r.Title,
			URL:        r.Link,
			Snippet:    r.Snippet,
			SourceName: source,
			Engine:     model.EngineGoogleWeb,
		}
		if t, ok := util.ParseDate(r.Date, now); ok {
			item.PublishedAt = &t
		}
		items = append(items, item)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}
