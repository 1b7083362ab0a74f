package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

func TestParallelExecutor_ConcatenatesInProviderOrder(t *testing.T) {
	// Given: the slower provider is listed first
	slow := &fakeProvider{id: "slow", results: makeResults("slow.dev", 2), delay: 30 * time.Millisecond}
	fast := &fakeProvider{id: "fast", results: makeResults("fast.dev", 2)}
	e := NewParallelExecutor(registryOf(slow, fast))

	// When: executing
	results, failures := e.Execute(context.Background(), "q", []string{"slow", "fast"}, SearchRequest{MaxResults: 10})

	// Then: output follows the provider list, not completion order
	require.Empty(t, failures)
	require.Len(t, results, 4)
	assert.Equal(t, "slow", results[0].Source)
	assert.Equal(t, "slow", results[1].Source)
	assert.Equal(t, "fast", results[2].Source)
}

func TestParallelExecutor_StampsResults(t *testing.T) {
	p := &fakeProvider{id: "p", results: []ProviderResult{
		{Title: "a", URL: "https://a.dev"},
		{Title: "b", URL: "http://b.dev", Rank: 7},
	}}
	e := NewParallelExecutor(registryOf(p))

	results, _ := e.Execute(context.Background(), "q", []string{"p"}, SearchRequest{MaxResults: 10})

	require.Len(t, results, 2)
	assert.Equal(t, "p", results[0].Source)
	assert.Equal(t, 1, results[0].Rank)
	assert.True(t, results[0].IsSecure)
	assert.Equal(t, 7, results[1].Rank)
	assert.False(t, results[1].IsSecure)
}

func TestParallelExecutor_SecureFlagFollowsURLScheme(t *testing.T) {
	// Given: adapter-supplied flags that disagree with the URL scheme
	p := &fakeProvider{id: "p", results: []ProviderResult{
		{Title: "plain", URL: "http://plain.dev", IsSecure: true},
		{Title: "tls", URL: "HTTPS://tls.dev", IsSecure: false},
	}}
	e := NewParallelExecutor(registryOf(p))

	// When: executing
	results, _ := e.Execute(context.Background(), "q", []string{"p"}, SearchRequest{MaxResults: 10})

	// Then: the scheme decides
	require.Len(t, results, 2)
	assert.False(t, results[0].IsSecure)
	assert.True(t, results[1].IsSecure)
}

func TestParallelExecutor_TruncatesToMaxResults(t *testing.T) {
	p := &fakeProvider{id: "p", results: makeResults("p.dev", 8)}
	e := NewParallelExecutor(registryOf(p))

	results, _ := e.Execute(context.Background(), "q", []string{"p"}, SearchRequest{MaxResults: 3})

	assert.Len(t, results, 3)
}

func TestParallelExecutor_FailuresDoNotCancelSiblings(t *testing.T) {
	tests := []struct {
		name     string
		failing  *fakeProvider
		contains string
	}{
		{
			name:     "error",
			failing:  &fakeProvider{id: "bad", err: amerrors.ProviderFailed("bad", "status 500", nil)},
			contains: "status 500",
		},
		{
			name:     "plain error",
			failing:  &fakeProvider{id: "bad", err: errors.New("dial tcp: refused")},
			contains: "refused",
		},
		{
			name:     "timeout",
			failing:  &fakeProvider{id: "bad", delay: time.Second},
			contains: "timed out after 50ms",
		},
		{
			name:     "panic",
			failing:  &fakeProvider{id: "bad", panicMsg: "nil map"},
			contains: "panicked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a healthy provider next to a failing one
			good := &fakeProvider{id: "good", results: makeResults("good.dev", 3), delay: 10 * time.Millisecond}
			e := NewParallelExecutor(registryOf(good, tt.failing), WithProviderTimeout(50*time.Millisecond))

			// When: executing both
			results, failures := e.Execute(context.Background(), "q", []string{"bad", "good"}, SearchRequest{MaxResults: 10})

			// Then: the good provider's results survive and the failure is recorded
			assert.Len(t, results, 3)
			require.Len(t, failures, 1)
			assert.Equal(t, "bad", failures[0].Provider)
			assert.Contains(t, failures[0].Error, tt.contains)
		})
	}
}

func TestParallelExecutor_TimeoutHoldsForProvidersIgnoringContext(t *testing.T) {
	// Given: a provider that blocks without watching its context
	block := make(chan struct{})
	defer close(block)
	stuck := &blockingProvider{id: "stuck", release: block}
	e := NewParallelExecutor(StaticRegistry{"stuck": stuck}, WithProviderTimeout(30*time.Millisecond))

	// When: executing
	start := time.Now()
	_, failures := e.Execute(context.Background(), "q", []string{"stuck"}, SearchRequest{MaxResults: 5})

	// Then: the task gives up at its deadline
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error, "timed out")
}

func TestParallelExecutor_PerProviderTimeoutOverride(t *testing.T) {
	p1 := &fakeProvider{id: "p1", results: makeResults("p1.dev", 1), delay: 40 * time.Millisecond}
	p2 := &fakeProvider{id: "p2", results: makeResults("p2.dev", 1), delay: 40 * time.Millisecond}
	e := NewParallelExecutor(registryOf(p1, p2),
		WithProviderTimeout(time.Second),
		WithProviderTimeouts(map[string]time.Duration{"p2": 10 * time.Millisecond}))

	results, failures := e.Execute(context.Background(), "q", []string{"p1", "p2"}, SearchRequest{MaxResults: 5})

	assert.Len(t, results, 1)
	require.Len(t, failures, 1)
	assert.Equal(t, "p2", failures[0].Provider)
}

func TestParallelExecutor_UnknownProviderIsPartialFailure(t *testing.T) {
	p := &fakeProvider{id: "p", results: makeResults("p.dev", 2)}
	e := NewParallelExecutor(registryOf(p))

	results, failures := e.Execute(context.Background(), "q", []string{"p", "ghost"}, SearchRequest{MaxResults: 5})

	assert.Len(t, results, 2)
	assert.Equal(t, []PartialFailure{{Provider: "ghost", Error: "provider not configured"}}, failures)
}

func TestParallelExecutor_PassesOptions(t *testing.T) {
	p := &fakeProvider{id: "p"}
	e := NewParallelExecutor(registryOf(p))
	req := SearchRequest{MaxResults: 5, Mode: ModeDeep, SearchType: SearchTypeNews, Filters: Filters{TimeRange: "week"}}

	_, _ = e.Execute(context.Background(), "q", []string{"p"}, req)

	opts := p.lastOpts.Load().(ProviderOptions)
	assert.Equal(t, ModeDeep, opts.Mode)
	assert.Equal(t, SearchTypeNews, opts.SearchType)
	assert.Equal(t, "week", opts.Filters.TimeRange)
}

type blockingProvider struct {
	id      string
	release chan struct{}
}

func (b *blockingProvider) ID() string { return b.id }

func (b *blockingProvider) Search(context.Context, string, int, ProviderOptions) ([]ProviderResult, error) {
	<-b.release
	return nil, nil
}
