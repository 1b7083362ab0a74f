// Package telemetry keeps in-process search metrics: volume, latency,
// provider failures and queries that found nothing. Nothing leaves the
// machine; the MCP server exposes a snapshot as a resource.
package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/amansearch/internal/search"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketUnder500ms LatencyBucket = "lt_500ms"
	BucketUnder1s    LatencyBucket = "lt_1s"
	BucketUnder2s    LatencyBucket = "lt_2s"
	BucketUnder5s    LatencyBucket = "lt_5s"
	BucketOver5s     LatencyBucket = "gte_5s"
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < 500*time.Millisecond:
		return BucketUnder500ms
	case d < time.Second:
		return BucketUnder1s
	case d < 2*time.Second:
		return BucketUnder2s
	case d < 5*time.Second:
		return BucketUnder5s
	default:
		return BucketOver5s
	}
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int
	size  int
}

// NewCircularBuffer creates a buffer holding at most capacity items.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{items: make([]T, capacity)}
}

// Add appends an item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, 0, b.size)
	start := (b.head - b.size + len(b.items)) % len(b.items)
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(start+i)%len(b.items)])
	}
	return out
}

// Size returns the number of buffered items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// ExtractTerms returns the lowercased words of query with at least three
// letters or digits.
func ExtractTerms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' && r != '.'
	})
	var terms []string
	for _, w := range words {
		w = strings.Trim(w, "-_.")
		if len([]rune(w)) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a term and its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// ProviderStats counts calls and failures for one provider.
type ProviderStats struct {
	Used   int64 `json:"used"`
	Failed int64 `json:"failed"`
}

// FailureRate returns Failed/Used, or 0 when unused.
func (p ProviderStats) FailureRate() float64 {
	if p.Used == 0 {
		return 0
	}
	return float64(p.Failed) / float64(p.Used)
}

// Snapshot is an immutable copy of the collected metrics.
type Snapshot struct {
	TotalSearches       int64                    `json:"total_searches"`
	SuccessfulSearches  int64                    `json:"successful_searches"`
	ZeroResultCount     int64                    `json:"zero_result_count"`
	CacheHits           int64                    `json:"cache_hits"`
	ExactRepeatCount    int64                    `json:"exact_repeat_count"`
	ModeCounts          map[string]int64         `json:"mode_counts"`
	Providers           map[string]ProviderStats `json:"providers"`
	LatencyDistribution map[LatencyBucket]int64  `json:"latency_distribution"`
	TopTerms            []TermCount              `json:"top_terms"`
	ZeroResultQueries   []string                 `json:"zero_result_queries"`
	Since               time.Time                `json:"since"`
}

// ZeroResultPercentage returns the share of searches that found nothing.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalSearches == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalSearches) * 100
}

// CacheHitRate returns the share of searches served from the cache.
func (s *Snapshot) CacheHitRate() float64 {
	if s.TotalSearches == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.TotalSearches)
}

// Config sizes the bounded collections.
type Config struct {
	TopTermsCapacity      int // default 200
	ZeroResultsCapacity   int // default 50
	RecentQueriesCapacity int // default 500
}

// DefaultConfig returns the default capacities.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:      200,
		ZeroResultsCapacity:   50,
		RecentQueriesCapacity: 500,
	}
}

// QueryMetrics collects search telemetry. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	total, successes, zeroResults, cacheHits, repeats int64

	modes     map[string]int64
	providers map[string]ProviderStats
	latencies map[LatencyBucket]int64
	terms     *lru.Cache[string, int64]
	recent    *lru.Cache[uint64, struct{}]
	zeroRing  *CircularBuffer[string]
	since     time.Time
}

var _ search.MetricsRecorder = (*QueryMetrics)(nil)

// NewQueryMetrics creates a collector; zero capacities take defaults.
func NewQueryMetrics(cfg Config) *QueryMetrics {
	def := DefaultConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}

	// lru.New only fails for non-positive sizes.
	terms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[uint64, struct{}](cfg.RecentQueriesCapacity)

	return &QueryMetrics{
		modes:     make(map[string]int64),
		providers: make(map[string]ProviderStats),
		latencies: make(map[LatencyBucket]int64),
		terms:     terms,
		recent:    recent,
		zeroRing:  NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		since:     time.Now(),
	}
}

// RecordSearch implements search.MetricsRecorder.
func (m *QueryMetrics) RecordSearch(ev search.SearchEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.modes[string(ev.Mode)]++
	m.latencies[LatencyToBucket(ev.Latency)]++
	if ev.Success {
		m.successes++
	}
	if ev.CacheHit {
		m.cacheHits++
	}
	if ev.ResultCount == 0 {
		m.zeroResults++
		m.zeroRing.Add(ev.Query)
	}

	// Cache hits did not call any provider.
	if !ev.CacheHit {
		for _, id := range ev.EnginesUsed {
			s := m.providers[id]
			s.Used++
			m.providers[id] = s
		}
		for _, id := range ev.FailedEngines {
			s := m.providers[id]
			s.Failed++
			m.providers[id] = s
		}
	}

	for _, term := range ExtractTerms(ev.Query) {
		n, _ := m.terms.Get(term)
		m.terms.Add(term, n+1)
	}

	key := xxhash.Sum64String(strings.ToLower(strings.Join(strings.Fields(ev.Query), " ")))
	if m.recent.Contains(key) {
		m.repeats++
	}
	m.recent.Add(key, struct{}{})
}

// Snapshot returns a copy of the current metrics.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Snapshot{
		TotalSearches:       m.total,
		SuccessfulSearches:  m.successes,
		ZeroResultCount:     m.zeroResults,
		CacheHits:           m.cacheHits,
		ExactRepeatCount:    m.repeats,
		ModeCounts:          make(map[string]int64, len(m.modes)),
		Providers:           make(map[string]ProviderStats, len(m.providers)),
		LatencyDistribution: make(map[LatencyBucket]int64, len(m.latencies)),
		ZeroResultQueries:   m.zeroRing.Items(),
		Since:               m.since,
	}
	for k, v := range m.modes {
		s.ModeCounts[k] = v
	}
	for k, v := range m.providers {
		s.Providers[k] = v
	}
	for k, v := range m.latencies {
		s.LatencyDistribution[k] = v
	}

	for _, term := range m.terms.Keys() {
		if n, ok := m.terms.Peek(term); ok {
			s.TopTerms = append(s.TopTerms, TermCount{Term: term, Count: n})
		}
	}
	sort.SliceStable(s.TopTerms, func(i, j int) bool {
		if s.TopTerms[i].Count != s.TopTerms[j].Count {
			return s.TopTerms[i].Count > s.TopTerms[j].Count
		}
		return s.TopTerms[i].Term < s.TopTerms[j].Term
	})
	if len(s.TopTerms) > 20 {
		s.TopTerms = s.TopTerms[:20]
	}
	return s
}

// Reset clears all counters.
func (m *QueryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total, m.successes, m.zeroResults, m.cacheHits, m.repeats = 0, 0, 0, 0, 0
	m.modes = make(map[string]int64)
	m.providers = make(map[string]ProviderStats)
	m.latencies = make(map[LatencyBucket]int64)
	m.terms.Purge()
	m.recent.Purge()
	m.zeroRing = NewCircularBuffer[string](len(m.zeroRing.items))
	m.since = time.Now()
}
