package search

import (
	"context"
	"time"
)

// SearchProvider is a single web search backend.
// Search returns results in the provider's own order, already truncated
// to maxResults where the backend allows it.
type SearchProvider interface {
	ID() string
	Search(ctx context.Context, query string, maxResults int, opts ProviderOptions) ([]ProviderResult, error)
}

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ContentFetcher retrieves the readable content of a page.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ProviderRegistry resolves provider ids to adapters.
type ProviderRegistry interface {
	Get(id string) (SearchProvider, bool)
}

// ResultCache stores complete outputs keyed by request fingerprint.
type ResultCache interface {
	Get(key string) (*SearchOutput, bool)
	Set(key string, out *SearchOutput)
}

// MetricsRecorder receives one event per completed search.
type MetricsRecorder interface {
	RecordSearch(event SearchEvent)
}

// SearchEvent summarizes one orchestration for telemetry.
type SearchEvent struct {
	Query         string
	Mode          Mode
	ResultCount   int
	Latency       time.Duration
	EnginesUsed   []string
	FailedEngines []string
	CacheHit      bool
	Success       bool
}

// StaticRegistry is a map-backed ProviderRegistry resolved once at startup.
type StaticRegistry map[string]SearchProvider

// Get implements ProviderRegistry.
func (r StaticRegistry) Get(id string) (SearchProvider, bool) {
	p, ok := r[id]
	return p, ok
}
