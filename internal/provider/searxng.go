package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/search"
)

// SearXNGConfig configures a self-hosted SearXNG instance.
type SearXNGConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SearXNG searches via a SearXNG instance's JSON API.
type SearXNG struct {
	cfg    SearXNGConfig
	client *http.Client
}

// Ensure SearXNG implements search.SearchProvider.
var _ search.SearchProvider = (*SearXNG)(nil)

// NewSearXNG creates a SearXNG adapter. The instance URL is required.
func NewSearXNG(cfg SearXNGConfig) (*SearXNG, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, amerrors.ConfigError("searxng requires an instance url", nil).
			WithDetail(amerrors.DetailProviderID, search.ProviderSearXNG).
			WithSuggestion("Set SEARXNG_URL or providers.searxng.base_url")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, amerrors.ConfigError("invalid searxng url", err)
	}
	return &SearXNG{cfg: cfg, client: newHTTPClient(cfg.Timeout)}, nil
}

// ID implements search.SearchProvider.
func (p *SearXNG) ID() string { return search.ProviderSearXNG }

type searxngResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Engine        string  `json:"engine"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"publishedDate"`
	} `json:"results"`
	NumberOfResults float64 `json:"number_of_results"`
}

// Search implements search.SearchProvider.
func (p *SearXNG) Search(ctx context.Context, query string, maxResults int, opts search.ProviderOptions) ([]search.ProviderResult, error) {
	values := url.Values{}
	values.Set("q", siteQuery(query, opts.Filters))
	values.Set("format", "json")
	values.Set("pageno", "1")
	if tr := searxngTimeRange(opts.Filters.TimeRange); tr != "" {
		values.Set("time_range", tr)
	}
	if opts.Filters.Language != "" {
		values.Set("language", opts.Filters.Language)
	}
	if c := searxngCategory(opts.SearchType); c != "" {
		values.Set("categories", c)
	}

	start := time.Now()
	data, err := getBody(ctx, p.client, search.ProviderSearXNG, p.cfg.BaseURL+"/search?"+values.Encode(), map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, err
	}

	var resp searxngResponse
	if err := decodeJSON(search.ProviderSearXNG, data, &resp); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	results := make([]search.ProviderResult, 0, maxResults)
	for _, entry := range resp.Results {
		if len(results) >= maxResults {
			break
		}
		if entry.URL == "" {
			continue
		}
		results = append(results, search.ProviderResult{
			Title:        strings.TrimSpace(entry.Title),
			URL:          entry.URL,
			Snippet:      strings.TrimSpace(entry.Content),
			Rank:         len(results) + 1,
			PublishDate:  entry.PublishedDate,
			ResponseTime: elapsed,
		})
	}
	return results, nil
}

func searxngTimeRange(timeRange string) string {
	switch strings.ToLower(timeRange) {
	case "day", "d":
		return "day"
	case "week", "w":
		return "week"
	case "month", "m":
		return "month"
	case "year", "y":
		return "year"
	default:
		return ""
	}
}

func searxngCategory(t search.SearchType) string {
	switch t {
	case search.SearchTypeCode:
		return "it"
	case search.SearchTypeNews:
		return "news"
	case search.SearchTypeAcademic:
		return "science"
	default:
		return ""
	}
}
