package mcp

import (
	"strings"

	"github.com/Aman-CERP/amansearch/internal/search"
)

// Tool names.
const (
	ToolWebSearch    = "web_search"
	ToolSearchCode   = "search_code"
	ToolSearchStatus = "search_status"
)

// Output formats accepted by the search tools.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// FiltersInput narrows provider results.
type FiltersInput struct {
	Language     string   `json:"language,omitempty" jsonschema:"ISO language code, e.g. en"`
	Region       string   `json:"region,omitempty" jsonschema:"region code, e.g. us"`
	TimeRange    string   `json:"time_range,omitempty" jsonschema:"restrict by age: day, week, month or year"`
	IncludeSites []string `json:"include_sites,omitempty" jsonschema:"only keep results from these domains"`
	ExcludeSites []string `json:"exclude_sites,omitempty" jsonschema:"drop results from these domains"`
}

// WebSearchInput defines the input schema for the web_search tool.
type WebSearchInput struct {
	Query            string        `json:"query" jsonschema:"the search query to execute"`
	Mode             string        `json:"mode,omitempty" jsonschema:"provider preset: fast, auto, deep, code or custom"`
	Engines          []string      `json:"engines,omitempty" jsonschema:"explicit provider ids, e.g. exa, brave, searxng, duckduckgo"`
	MaxResults       int           `json:"max_results,omitempty" jsonschema:"maximum number of results, default 10, at most 50"`
	SearchType       string        `json:"search_type,omitempty" jsonschema:"general, code, documentation, news or academic"`
	Filters          *FiltersInput `json:"filters,omitempty" jsonschema:"optional result filters"`
	FetchFullContent bool          `json:"fetch_full_content,omitempty" jsonschema:"fetch each result page as markdown and extract code blocks"`
	Deduplicate      *bool         `json:"deduplicate,omitempty" jsonschema:"drop duplicate URLs, default true"`
	SemanticSearch   *bool         `json:"semantic_search,omitempty" jsonschema:"also drop near-duplicate content, default true"`
	Format           string        `json:"format,omitempty" jsonschema:"response format: markdown (default) or json"`
}

// SearchCodeInput defines the input schema for the search_code tool.
type SearchCodeInput struct {
	Query            string   `json:"query" jsonschema:"the code search query to execute"`
	Language         string   `json:"language,omitempty" jsonschema:"programming language to bias results toward, e.g. go"`
	MaxResults       int      `json:"max_results,omitempty" jsonschema:"maximum number of results, default 10, at most 50"`
	Engines          []string `json:"engines,omitempty" jsonschema:"explicit provider ids"`
	FetchFullContent bool     `json:"fetch_full_content,omitempty" jsonschema:"fetch pages and extract code blocks"`
	Format           string   `json:"format,omitempty" jsonschema:"response format: markdown (default) or json"`
}

// SearchStatusInput defines the input schema for the search_status tool (no parameters).
type SearchStatusInput struct{}

var validModes = map[string]search.Mode{
	"fast":   search.ModeFast,
	"auto":   search.ModeAuto,
	"deep":   search.ModeDeep,
	"code":   search.ModeCode,
	"custom": search.ModeCustom,
}

var validSearchTypes = map[string]search.SearchType{
	"general":       search.SearchTypeGeneral,
	"code":          search.SearchTypeCode,
	"documentation": search.SearchTypeDocumentation,
	"docs":          search.SearchTypeDocumentation,
	"news":          search.SearchTypeNews,
	"academic":      search.SearchTypeAcademic,
}

var validTimeRanges = map[string]bool{"": true, "day": true, "week": true, "month": true, "year": true}

// applyWebSearch validates in and copies it onto req, which carries the
// server's defaults.
func applyWebSearch(req search.SearchRequest, in WebSearchInput) (search.SearchRequest, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return req, NewInvalidParamsError("query cannot be empty or whitespace only")
	}
	req.Query = query

	if in.Mode != "" {
		m, ok := validModes[strings.ToLower(in.Mode)]
		if !ok {
			return req, NewInvalidParamsError("mode must be one of fast, auto, deep, code, custom")
		}
		req.Mode = m
	}
	if in.SearchType != "" {
		st, ok := validSearchTypes[strings.ToLower(in.SearchType)]
		if !ok {
			return req, NewInvalidParamsError("search_type must be one of general, code, documentation, news, academic")
		}
		req.SearchType = st
	}
	if in.MaxResults != 0 {
		req.MaxResults = clampLimit(in.MaxResults, search.DefaultMaxResults, 1, search.MaxMaxResults)
	}
	if len(in.Engines) > 0 {
		req.Engines = normalizeEngines(in.Engines)
	}
	if in.Filters != nil {
		tr := strings.ToLower(in.Filters.TimeRange)
		if !validTimeRanges[tr] {
			return req, NewInvalidParamsError("filters.time_range must be one of day, week, month, year")
		}
		req.Filters = search.Filters{
			Language:     in.Filters.Language,
			Region:       in.Filters.Region,
			TimeRange:    tr,
			IncludeSites: in.Filters.IncludeSites,
			ExcludeSites: in.Filters.ExcludeSites,
		}
	}
	req.FetchFullContent = in.FetchFullContent
	if in.Deduplicate != nil {
		req.Deduplicate = *in.Deduplicate
	}
	if in.SemanticSearch != nil {
		req.SemanticSearch = *in.SemanticSearch
	}
	return req, checkFormat(in.Format)
}

// applySearchCode forces code routing on top of the server defaults.
func applySearchCode(req search.SearchRequest, in SearchCodeInput) (search.SearchRequest, error) {
	req, err := applyWebSearch(req, WebSearchInput{
		Query:            in.Query,
		MaxResults:       in.MaxResults,
		Engines:          in.Engines,
		FetchFullContent: in.FetchFullContent,
		Format:           in.Format,
	})
	if err != nil {
		return req, err
	}
	req.Mode = search.ModeCode
	req.SearchType = search.SearchTypeCode
	if in.Language != "" && !strings.Contains(strings.ToLower(req.Query), strings.ToLower(in.Language)) {
		req.Query = in.Language + " " + req.Query
	}
	return req, nil
}

func checkFormat(format string) error {
	switch strings.ToLower(format) {
	case "", FormatMarkdown, FormatJSON:
		return nil
	default:
		return NewInvalidParamsError("format must be markdown or json")
	}
}

func normalizeEngines(engines []string) []string {
	out := make([]string, 0, len(engines))
	seen := make(map[string]bool, len(engines))
	for _, e := range engines {
		id := strings.ToLower(strings.TrimSpace(e))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// clampLimit returns def for zero, otherwise v bounded to [lo, hi].
func clampLimit(v, def, lo, hi int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
