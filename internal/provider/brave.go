package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/search"
)

// DefaultBraveBaseURL is the Brave web search endpoint.
const DefaultBraveBaseURL = "https://api.search.brave.com/res/v1/web/search"

// BraveConfig configures the Brave adapter.
type BraveConfig struct {
	APIKey         string
	BaseURL        string
	DefaultCountry string
	Timeout        time.Duration
}

// Brave searches via the Brave Search API.
type Brave struct {
	cfg    BraveConfig
	client *http.Client
}

// Ensure Brave implements search.SearchProvider.
var _ search.SearchProvider = (*Brave)(nil)

// NewBrave creates a Brave adapter. An empty API key is a configuration error.
func NewBrave(cfg BraveConfig) (*Brave, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, amerrors.New(amerrors.ErrCodeMissingAPIKey, "brave requires an API key", nil).
			WithDetail(amerrors.DetailProviderID, search.ProviderBrave).
			WithSuggestion("Set BRAVE_API_KEY or providers.brave.api_key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBraveBaseURL
	}
	return &Brave{cfg: cfg, client: newHTTPClient(cfg.Timeout)}, nil
}

// ID implements search.SearchProvider.
func (p *Brave) ID() string { return search.ProviderBrave }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			Age         string `json:"age"`
		} `json:"results"`
	} `json:"web"`
}

// Search implements search.SearchProvider.
func (p *Brave) Search(ctx context.Context, query string, maxResults int, opts search.ProviderOptions) ([]search.ProviderResult, error) {
	searchURL, err := url.Parse(p.cfg.BaseURL)
	if err != nil {
		return nil, amerrors.ProviderFailed(search.ProviderBrave, "invalid base url", err)
	}
	if maxResults > 20 {
		maxResults = 20
	}

	values := searchURL.Query()
	values.Set("q", siteQuery(query, opts.Filters))
	values.Set("count", fmt.Sprintf("%d", maxResults))
	country := opts.Filters.Region
	if country == "" {
		country = p.cfg.DefaultCountry
	}
	if country != "" {
		values.Set("country", strings.ToUpper(country))
	}
	if opts.Filters.Language != "" {
		values.Set("search_lang", opts.Filters.Language)
	}
	if f := braveFreshness(opts.Filters.TimeRange); f != "" {
		values.Set("freshness", f)
	}
	searchURL.RawQuery = values.Encode()

	start := time.Now()
	data, err := getBody(ctx, p.client, search.ProviderBrave, searchURL.String(), map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": p.cfg.APIKey,
	})
	if err != nil {
		return nil, err
	}

	var resp braveResponse
	if err := decodeJSON(search.ProviderBrave, data, &resp); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	results := make([]search.ProviderResult, 0, len(resp.Web.Results))
	for i, entry := range resp.Web.Results {
		results = append(results, search.ProviderResult{
			Title:        strings.TrimSpace(entry.Title),
			URL:          entry.URL,
			Snippet:      strings.TrimSpace(stripTags(entry.Description)),
			Rank:         i + 1,
			PublishDate:  entry.Age,
			ResponseTime: elapsed,
		})
	}
	return results, nil
}

func braveFreshness(timeRange string) string {
	switch strings.ToLower(timeRange) {
	case "day", "d":
		return "pd"
	case "week", "w":
		return "pw"
	case "month", "m":
		return "pm"
	case "year", "y":
		return "py"
	default:
		return ""
	}
}

// siteQuery appends site: operators for backends without domain parameters.
func siteQuery(query string, f search.Filters) string {
	var b strings.Builder
	b.WriteString(query)
	if len(f.IncludeSites) == 1 {
		b.WriteString(" site:" + f.IncludeSites[0])
	}
	for _, site := range f.ExcludeSites {
		b.WriteString(" -site:" + site)
	}
	return b.String()
}

// stripTags removes the <strong> highlighting some providers embed in snippets.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
