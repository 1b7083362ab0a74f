package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amansearch/internal/search"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want LatencyBucket
	}{
		{100 * time.Millisecond, BucketUnder500ms},
		{500 * time.Millisecond, BucketUnder1s},
		{1500 * time.Millisecond, BucketUnder2s},
		{4 * time.Second, BucketUnder5s},
		{5 * time.Second, BucketOver5s},
	}
	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, LatencyToBucket(tt.d))
		})
	}
}

func TestCircularBuffer_EvictsOldest(t *testing.T) {
	b := NewCircularBuffer[int](3)
	assert.Empty(t, b.Items())

	for i := 1; i <= 5; i++ {
		b.Add(i)
	}

	assert.Equal(t, []int{3, 4, 5}, b.Items())
	assert.Equal(t, 3, b.Size())
}

func TestExtractTerms(t *testing.T) {
	assert.Equal(t, []string{"golang", "context", "go1.22"}, ExtractTerms("Golang context, in go1.22!"))
	assert.Empty(t, ExtractTerms("  a an  "))
}

func TestQueryMetrics_RecordSearch(t *testing.T) {
	// Given: a collector and three searches
	m := NewQueryMetrics(Config{})

	// When: recording a success, a partial failure and a zero-result cache miss
	m.RecordSearch(search.SearchEvent{
		Query: "golang context", Mode: search.ModeAuto, ResultCount: 5,
		Latency: 300 * time.Millisecond, EnginesUsed: []string{"exa", "brave"}, Success: true,
	})
	m.RecordSearch(search.SearchEvent{
		Query: "golang  CONTEXT", Mode: search.ModeAuto, ResultCount: 3,
		Latency: 1200 * time.Millisecond, EnginesUsed: []string{"exa", "brave"},
		FailedEngines: []string{"brave"}, Success: true,
	})
	m.RecordSearch(search.SearchEvent{
		Query: "xyzzy plugh", Mode: search.ModeFast, ResultCount: 0,
		Latency: 6 * time.Second, EnginesUsed: []string{"duckduckgo"},
		FailedEngines: []string{"duckduckgo"},
	})

	// Then: the snapshot reflects every dimension
	s := m.Snapshot()
	assert.Equal(t, int64(3), s.TotalSearches)
	assert.Equal(t, int64(2), s.SuccessfulSearches)
	assert.Equal(t, int64(1), s.ZeroResultCount)
	assert.Equal(t, int64(1), s.ExactRepeatCount)
	assert.Equal(t, map[string]int64{"auto": 2, "fast": 1}, s.ModeCounts)
	assert.Equal(t, ProviderStats{Used: 2, Failed: 1}, s.Providers["brave"])
	assert.Equal(t, 0.5, s.Providers["brave"].FailureRate())
	assert.Equal(t, int64(1), s.LatencyDistribution[BucketOver5s])
	assert.Equal(t, []string{"xyzzy plugh"}, s.ZeroResultQueries)
	require.NotEmpty(t, s.TopTerms)
	assert.Equal(t, TermCount{Term: "context", Count: 2}, s.TopTerms[0])
	assert.InDelta(t, 33.33, s.ZeroResultPercentage(), 0.01)
}

func TestQueryMetrics_CacheHitSkipsProviderCounts(t *testing.T) {
	m := NewQueryMetrics(Config{})

	m.RecordSearch(search.SearchEvent{Query: "q", ResultCount: 2, EnginesUsed: []string{"exa"}, CacheHit: true, Success: true})

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Empty(t, s.Providers)
	assert.Equal(t, 1.0, s.CacheHitRate())
}

func TestQueryMetrics_SnapshotIsCopy(t *testing.T) {
	m := NewQueryMetrics(Config{})
	m.RecordSearch(search.SearchEvent{Query: "one", Mode: search.ModeDeep})

	s := m.Snapshot()
	s.ModeCounts["deep"] = 99

	assert.Equal(t, int64(1), m.Snapshot().ModeCounts["deep"])
}

func TestQueryMetrics_Reset(t *testing.T) {
	m := NewQueryMetrics(Config{ZeroResultsCapacity: 2})
	m.RecordSearch(search.SearchEvent{Query: "lost query"})

	m.Reset()

	s := m.Snapshot()
	assert.Zero(t, s.TotalSearches)
	assert.Empty(t, s.ZeroResultQueries)
	assert.Empty(t, s.TopTerms)
}

func TestQueryMetrics_Concurrent(t *testing.T) {
	m := NewQueryMetrics(Config{})
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				m.RecordSearch(search.SearchEvent{Query: fmt.Sprintf("query %d %d", i, j), ResultCount: 1})
				_ = m.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(200), m.Snapshot().TotalSearches)
}
