package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/search"
)

// DefaultExaBaseURL is the public Exa API.
const DefaultExaBaseURL = "https://api.exa.ai"

// ExaConfig configures an Exa adapter. The same adapter serves both the
// standard and the deep variant; they differ in ID and SearchType.
type ExaConfig struct {
	ID         string // defaults to "exa"
	APIKey     string
	BaseURL    string
	SearchType string // auto, neural, keyword, fast or deep
	Timeout    time.Duration
}

// Exa searches via the Exa /search endpoint.
type Exa struct {
	cfg    ExaConfig
	client *http.Client
}

// Ensure Exa implements search.SearchProvider.
var _ search.SearchProvider = (*Exa)(nil)

// NewExa creates an Exa adapter. An empty API key is a configuration error.
func NewExa(cfg ExaConfig) (*Exa, error) {
	if cfg.ID == "" {
		cfg.ID = search.ProviderExa
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, amerrors.New(amerrors.ErrCodeMissingAPIKey, cfg.ID+" requires an API key", nil).
			WithDetail(amerrors.DetailProviderID, cfg.ID).
			WithSuggestion("Set EXA_API_KEY or providers.exa.api_key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultExaBaseURL
	}
	if cfg.SearchType == "" {
		cfg.SearchType = "auto"
	}
	return &Exa{cfg: cfg, client: newHTTPClient(cfg.Timeout)}, nil
}

// NewExaDeep creates the deep-research variant registered as "exa_deep".
func NewExaDeep(cfg ExaConfig) (*Exa, error) {
	cfg.ID = search.ProviderExaDeep
	cfg.SearchType = "deep"
	return NewExa(cfg)
}

// ID implements search.SearchProvider.
func (p *Exa) ID() string { return p.cfg.ID }

type exaResponse struct {
	Results []struct {
		Title         string   `json:"title"`
		URL           string   `json:"url"`
		PublishedDate string   `json:"publishedDate"`
		Score         float64  `json:"score"`
		Text          string   `json:"text"`
		Highlights    []string `json:"highlights"`
		Summary       string   `json:"summary"`
	} `json:"results"`
}

// Search implements search.SearchProvider.
func (p *Exa) Search(ctx context.Context, query string, maxResults int, opts search.ProviderOptions) ([]search.ProviderResult, error) {
	payload := map[string]any{
		"query":      query,
		"type":       p.cfg.SearchType,
		"numResults": maxResults,
		"contents": map[string]any{
			"highlights": map[string]any{"maxCharacters": 300},
		},
	}
	if category := exaCategory(opts.SearchType); category != "" {
		payload["category"] = category
	}
	if len(opts.Filters.IncludeSites) > 0 {
		payload["includeDomains"] = opts.Filters.IncludeSites
	}
	if len(opts.Filters.ExcludeSites) > 0 {
		payload["excludeDomains"] = opts.Filters.ExcludeSites
	}
	if since, ok := timeRangeStart(opts.Filters.TimeRange, time.Now()); ok {
		payload["startPublishedDate"] = since.Format(time.RFC3339)
	}
	if opts.Filters.Region != "" {
		payload["userLocation"] = strings.ToUpper(opts.Filters.Region)
	}

	start := time.Now()
	data, err := postJSON(ctx, p.client, p.cfg.ID, resolveEndpoint(p.cfg.BaseURL, "/search"), map[string]string{
		"x-api-key": p.cfg.APIKey,
		"Accept":    "application/json",
	}, payload)
	if err != nil {
		return nil, err
	}

	var resp exaResponse
	if err := decodeJSON(p.cfg.ID, data, &resp); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	results := make([]search.ProviderResult, 0, len(resp.Results))
	for i, entry := range resp.Results {
		snippet := entry.Summary
		if len(entry.Highlights) > 0 {
			snippet = strings.Join(entry.Highlights, " ")
		} else if snippet == "" {
			snippet = truncate(entry.Text, 300)
		}
		results = append(results, search.ProviderResult{
			Title:         strings.TrimSpace(entry.Title),
			URL:           entry.URL,
			Snippet:       strings.TrimSpace(snippet),
			Rank:          i + 1,
			PublishDate:   entry.PublishedDate,
			BaseRelevance: scoreToRelevance(entry.Score),
			ResponseTime:  elapsed,
		})
	}
	return results, nil
}

func exaCategory(t search.SearchType) string {
	switch t {
	case search.SearchTypeNews:
		return "news"
	case search.SearchTypeAcademic:
		return "research paper"
	default:
		return ""
	}
}

// scoreToRelevance maps a 0-1 provider score to 0-100. Scores already on
// a 0-100 scale pass through.
func scoreToRelevance(score float64) float64 {
	switch {
	case score <= 0:
		return 0
	case score <= 1:
		return score * 100
	case score > 100:
		return 100
	default:
		return score
	}
}

// timeRangeStart converts a day/week/month/year filter into a start time.
func timeRangeStart(timeRange string, now time.Time) (time.Time, bool) {
	switch strings.ToLower(timeRange) {
	case "day", "d":
		return now.AddDate(0, 0, -1), true
	case "week", "w":
		return now.AddDate(0, 0, -7), true
	case "month", "m":
		return now.AddDate(0, -1, 0), true
	case "year", "y":
		return now.AddDate(-1, 0, 0), true
	default:
		return time.Time{}, false
	}
}
