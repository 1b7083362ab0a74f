package mcp

import (
	"context"
	"sync"

	"github.com/Aman-CERP/amansearch/internal/search"
	"github.com/Aman-CERP/amansearch/pkg/searcher"
)

// fakeBackend records requests and returns a canned output.
type fakeBackend struct {
	mu       sync.Mutex
	requests []search.SearchRequest
	out      *search.SearchOutput
	err      error
	status   searcher.Status
}

func (f *fakeBackend) NewRequest(query string) search.SearchRequest {
	return search.NewSearchRequest(query)
}

func (f *fakeBackend) Search(_ context.Context, req search.SearchRequest) (*search.SearchOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	out := f.out.Clone()
	if out == nil {
		out = &search.SearchOutput{}
	}
	out.Query = req.Query
	return out, nil
}

func (f *fakeBackend) Status(context.Context) searcher.Status {
	return f.status
}

func (f *fakeBackend) lastRequest() search.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func sampleOutput() *search.SearchOutput {
	content := "# Context\n\nUse `context.WithTimeout`."
	return &search.SearchOutput{
		TotalResults: 2,
		SearchTimeMs: 42,
		EnginesUsed:  []string{"exa", "brave"},
		Results: []search.MergedResult{
			{
				ProviderResult: search.ProviderResult{
					Title: "Go context", URL: "https://go.dev/blog/context", Snippet: "Package context",
					Source: "exa", Rank: 1, PublishDate: "2024-01-15",
				},
				RelevanceScore: 91.5,
				FullContent:    &content,
				CodeSnippets:   []search.CodeSnippet{{Language: "go", Code: "ctx, cancel := context.WithTimeout(ctx, time.Second)"}},
			},
			{
				ProviderResult: search.ProviderResult{
					Title: "Context cancellation", URL: "https://github.com/x/y", Snippet: "Examples",
					Source: "brave", Rank: 2,
				},
				RelevanceScore: 70,
			},
		},
		Summary: search.Summary{
			TopDomains:   []search.DomainCount{{Domain: "go.dev", Count: 1, Percentage: 50}, {Domain: "github.com", Count: 1, Percentage: 50}},
			CommonThemes: []string{"context"},
		},
		Quality: search.Quality{AvgRelevance: 80.75, AvgAuthority: 90, Coverage: 40, Freshness: 50},
	}
}
