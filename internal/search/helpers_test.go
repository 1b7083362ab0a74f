package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// fakeProvider returns canned results after an optional delay.
type fakeProvider struct {
	id       string
	results  []ProviderResult
	err      error
	delay    time.Duration
	panicMsg string
	calls    atomic.Int32
	lastOpts atomic.Value
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) Search(ctx context.Context, _ string, _ int, opts ProviderOptions) ([]ProviderResult, error) {
	f.calls.Add(1)
	f.lastOpts.Store(opts)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]ProviderResult, len(f.results))
	copy(out, f.results)
	return out, nil
}

// makeResults builds n distinct https results for host.
func makeResults(host string, n int) []ProviderResult {
	out := make([]ProviderResult, n)
	for i := range out {
		out[i] = ProviderResult{
			Title:   fmt.Sprintf("%s result %d", host, i+1),
			URL:     fmt.Sprintf("https://%s/page-%d", host, i+1),
			Snippet: fmt.Sprintf("snippet %d from %s", i+1, host),
			Rank:    i + 1,
		}
	}
	return out
}

func registryOf(providers ...*fakeProvider) StaticRegistry {
	r := make(StaticRegistry, len(providers))
	for _, p := range providers {
		r[p.id] = p
	}
	return r
}

// funcEmbedder adapts a function to Embedder.
type funcEmbedder func(ctx context.Context, texts []string) ([][]float32, error)

func (f funcEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

// funcFetcher adapts a function to ContentFetcher.
type funcFetcher func(ctx context.Context, url string) (string, error)

func (f funcFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// mapCache is an unbounded ResultCache for tests.
type mapCache struct {
	mu   sync.Mutex
	data map[string]*SearchOutput
	sets int
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]*SearchOutput)}
}

func (c *mapCache) Get(key string) (*SearchOutput, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out, ok := c.data[key]
	return out, ok
}

func (c *mapCache) Set(key string, out *SearchOutput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = out
}

// recordingMetrics captures search events.
type recordingMetrics struct {
	mu     sync.Mutex
	events []SearchEvent
}

func (m *recordingMetrics) RecordSearch(e SearchEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func urlsOf(results []MergedResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.URL
	}
	return out
}

func merged(results ...ProviderResult) []MergedResult {
	out := make([]MergedResult, len(results))
	for i, r := range results {
		out[i] = MergedResult{ProviderResult: r}
	}
	return out
}
