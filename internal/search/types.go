// Package search implements the web search orchestration pipeline: query
// optimization, engine routing, parallel provider fan-out, deduplication,
// relevance ranking, optional content enrichment and result aggregation.
package search

import (
	"encoding/json"
	"strings"
	"time"
)

// Mode selects a preset provider set.
type Mode string

const (
	ModeFast   Mode = "fast"
	ModeAuto   Mode = "auto"
	ModeDeep   Mode = "deep"
	ModeCode   Mode = "code"
	ModeCustom Mode = "custom"
)

// ParseMode converts a string to a Mode. Unknown values fall back to auto.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFast:
		return ModeFast
	case ModeDeep:
		return ModeDeep
	case ModeCode:
		return ModeCode
	case ModeCustom:
		return ModeCustom
	default:
		return ModeAuto
	}
}

// SearchType describes the kind of content the caller is after.
type SearchType string

const (
	SearchTypeGeneral       SearchType = "general"
	SearchTypeCode          SearchType = "code"
	SearchTypeDocumentation SearchType = "documentation"
	SearchTypeNews          SearchType = "news"
	SearchTypeAcademic      SearchType = "academic"
)

// ParseSearchType converts a string to a SearchType. Unknown values mean general.
func ParseSearchType(s string) SearchType {
	switch SearchType(strings.ToLower(strings.TrimSpace(s))) {
	case SearchTypeCode:
		return SearchTypeCode
	case SearchTypeDocumentation, "docs":
		return SearchTypeDocumentation
	case SearchTypeNews:
		return SearchTypeNews
	case SearchTypeAcademic:
		return SearchTypeAcademic
	default:
		return SearchTypeGeneral
	}
}

// Result count limits.
const (
	DefaultMaxResults = 10
	MaxMaxResults     = 50
)

// Filters narrows what providers return.
type Filters struct {
	Language     string   `json:"language,omitempty"`
	Region       string   `json:"region,omitempty"`
	TimeRange    string   `json:"time_range,omitempty"` // day, week, month, year
	IncludeSites []string `json:"include_sites,omitempty"`
	ExcludeSites []string `json:"exclude_sites,omitempty"`
}

// SearchRequest is one orchestration call's input.
type SearchRequest struct {
	Query            string     `json:"query"`
	Mode             Mode       `json:"mode"`
	Engines          []string   `json:"engines,omitempty"`
	MaxResults       int        `json:"max_results"`
	Filters          Filters    `json:"filters"`
	FetchFullContent bool       `json:"fetch_full_content"`
	Deduplicate      bool       `json:"deduplicate"`
	SemanticSearch   bool       `json:"semantic_search"`
	SearchType       SearchType `json:"search_type"`
}

// NewSearchRequest returns a request with the default flags enabled.
func NewSearchRequest(query string) SearchRequest {
	return SearchRequest{
		Query:          query,
		Mode:           ModeAuto,
		MaxResults:     DefaultMaxResults,
		Deduplicate:    true,
		SemanticSearch: true,
		SearchType:     SearchTypeGeneral,
	}
}

// Normalize returns a copy with defaults applied and limits clamped.
func (r SearchRequest) Normalize() SearchRequest {
	out := r
	out.Query = strings.TrimSpace(r.Query)
	if out.Mode == "" {
		out.Mode = ModeAuto
	}
	if out.SearchType == "" {
		out.SearchType = SearchTypeGeneral
	}
	if out.MaxResults <= 0 {
		out.MaxResults = DefaultMaxResults
	}
	if out.MaxResults > MaxMaxResults {
		out.MaxResults = MaxMaxResults
	}
	if len(r.Engines) > 0 {
		out.Engines = append([]string(nil), r.Engines...)
	}
	return out
}

// ProviderOptions is what an adapter receives besides the query.
type ProviderOptions struct {
	Filters    Filters
	SearchType SearchType
	Mode       Mode
}

// ProviderResult is a single hit as returned by one provider.
type ProviderResult struct {
	Title          string
	URL            string
	Snippet        string
	Source         string // provider id
	Rank           int    // 1-based position in the provider's list
	PublishDate    string
	BaseRelevance  float64 // 0-100, provider-supplied score
	AuthorityScore float64 // 0-100
	IsSecure       bool // set from the URL scheme by the executor
	ResponseTime   time.Duration
}

// CodeSnippet is a fenced code block found in fetched content.
type CodeSnippet struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// MergedResult is a ProviderResult after it enters the merged pipeline.
type MergedResult struct {
	ProviderResult
	RelevanceScore float64
	FullContent    *string
	CodeSnippets   []CodeSnippet
}

type resultMetadata struct {
	Engine         string  `json:"engine"`
	OriginalRank   int     `json:"original_rank"`
	AuthorityScore float64 `json:"authority_score"`
	IsSecure       bool    `json:"is_secure"`
	ResponseTime   float64 `json:"response_time"`
}

type resultJSON struct {
	Title          string         `json:"title"`
	URL            string         `json:"url"`
	Snippet        string         `json:"snippet"`
	Source         string         `json:"source"`
	RelevanceScore float64        `json:"relevance_score"`
	PublishDate    string         `json:"publish_date,omitempty"`
	FullContent    *string        `json:"full_content,omitempty"`
	CodeSnippets   []CodeSnippet  `json:"code_snippets"`
	Metadata       resultMetadata `json:"metadata"`
}

// MarshalJSON renders the result in the public wire shape.
// response_time is reported in seconds.
func (m MergedResult) MarshalJSON() ([]byte, error) {
	snippets := m.CodeSnippets
	if snippets == nil {
		snippets = []CodeSnippet{}
	}
	return json.Marshal(resultJSON{
		Title:          m.Title,
		URL:            m.URL,
		Snippet:        m.Snippet,
		Source:         m.Source,
		RelevanceScore: m.RelevanceScore,
		PublishDate:    m.PublishDate,
		FullContent:    m.FullContent,
		CodeSnippets:   snippets,
		Metadata: resultMetadata{
			Engine:         m.Source,
			OriginalRank:   m.Rank,
			AuthorityScore: m.AuthorityScore,
			IsSecure:       m.IsSecure,
			ResponseTime:   m.ResponseTime.Seconds(),
		},
	})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (m *MergedResult) UnmarshalJSON(data []byte) error {
	var r resultJSON
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*m = MergedResult{
		ProviderResult: ProviderResult{
			Title:          r.Title,
			URL:            r.URL,
			Snippet:        r.Snippet,
			Source:         r.Source,
			Rank:           r.Metadata.OriginalRank,
			PublishDate:    r.PublishDate,
			AuthorityScore: r.Metadata.AuthorityScore,
			IsSecure:       r.Metadata.IsSecure,
			ResponseTime:   time.Duration(r.Metadata.ResponseTime * float64(time.Second)),
		},
		RelevanceScore: r.RelevanceScore,
		FullContent:    r.FullContent,
		CodeSnippets:   r.CodeSnippets,
	}
	return nil
}

// OptimizationRecord documents how the query was rewritten.
type OptimizationRecord struct {
	OriginalQuery    string   `json:"original_query"`
	OptimizedQuery   string   `json:"optimized_query"`
	AddedTerms       []string `json:"added_terms"`
	RemovedTerms     []string `json:"removed_terms"`
	DetectedLanguage string   `json:"detected_language"`
}

// PartialFailure records one provider that did not contribute results.
type PartialFailure struct {
	Provider string `json:"provider"`
	Error    string `json:"error"`
}

// DomainCount is one entry of the top-domains summary.
type DomainCount struct {
	Domain     string  `json:"domain"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Recommendation is a highlighted result with the reason it was picked.
type Recommendation struct {
	Title  string  `json:"title"`
	URL    string  `json:"url"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Summary describes the result set as a whole.
type Summary struct {
	TopDomains       []DomainCount    `json:"top_domains"`
	CommonThemes     []string         `json:"common_themes"`
	RecommendedLinks []Recommendation `json:"recommended_links"`
}

// Quality holds aggregate quality metrics, each in [0, 100].
type Quality struct {
	AvgRelevance float64 `json:"avg_relevance"`
	AvgAuthority float64 `json:"avg_authority"`
	Coverage     float64 `json:"coverage"`
	Freshness    float64 `json:"freshness"`
}

// SearchOutput is the orchestrator's response.
type SearchOutput struct {
	Query             string             `json:"query"`
	TotalResults      int                `json:"total_results"`
	SearchTimeMs      int64              `json:"search_time_ms"`
	EnginesUsed       []string           `json:"engines_used"`
	Results           []MergedResult     `json:"results"`
	Summary           Summary            `json:"summary"`
	Quality           Quality            `json:"quality"`
	PartialFailures   []PartialFailure   `json:"partial_failures"`
	QueryOptimization OptimizationRecord `json:"query_optimization"`
	Cached            bool               `json:"cached,omitempty"`
}

// Success reports whether the search produced a usable answer: at least one
// result and at least one provider that did not fail.
func (o *SearchOutput) Success() bool {
	return len(o.Results) > 0 && len(o.PartialFailures) < len(o.EnginesUsed)
}

// Clone returns a deep copy safe to hand to another caller.
func (o *SearchOutput) Clone() *SearchOutput {
	if o == nil {
		return nil
	}
	c := *o
	c.EnginesUsed = append([]string(nil), o.EnginesUsed...)
	c.PartialFailures = append([]PartialFailure(nil), o.PartialFailures...)
	c.Results = make([]MergedResult, len(o.Results))
	for i, r := range o.Results {
		r.CodeSnippets = append([]CodeSnippet(nil), r.CodeSnippets...)
		if r.FullContent != nil {
			content := *r.FullContent
			r.FullContent = &content
		}
		c.Results[i] = r
	}
	c.Summary.TopDomains = append([]DomainCount(nil), o.Summary.TopDomains...)
	c.Summary.CommonThemes = append([]string(nil), o.Summary.CommonThemes...)
	c.Summary.RecommendedLinks = append([]Recommendation(nil), o.Summary.RecommendedLinks...)
	return &c
}

// MarshalJSON adds the derived success flag and guarantees arrays, not null.
func (o SearchOutput) MarshalJSON() ([]byte, error) {
	type alias SearchOutput
	a := alias(o)
	if a.EnginesUsed == nil {
		a.EnginesUsed = []string{}
	}
	if a.Results == nil {
		a.Results = []MergedResult{}
	}
	if a.PartialFailures == nil {
		a.PartialFailures = []PartialFailure{}
	}
	return json.Marshal(struct {
		alias
		Success bool `json:"success"`
	}{alias: a, Success: o.Success()})
}
