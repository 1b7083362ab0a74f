package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amansearch/internal/search"
)

func TestBrave_Search(t *testing.T) {
	// Given: a Brave endpoint
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		assert.Equal(t, "token", r.Header.Get("X-Subscription-Token"))
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"Rust book","url":"https://doc.rust-lang.org/book/","description":"The <strong>Rust</strong> book","age":"2 days ago"}
		]}}`))
	}))
	defer srv.Close()

	p, err := NewBrave(BraveConfig{APIKey: "token", BaseURL: srv.URL})
	require.NoError(t, err)

	// When: searching with region, language and freshness
	results, err := p.Search(context.Background(), "rust ownership", 40, search.ProviderOptions{
		Filters: search.Filters{Region: "us", Language: "en", TimeRange: "month", ExcludeSites: []string{"reddit.com"}},
	})

	// Then: parameters are mapped and count is capped
	require.NoError(t, err)
	assert.Equal(t, "rust ownership -site:reddit.com", query.Get("q"))
	assert.Equal(t, "20", query.Get("count"))
	assert.Equal(t, "US", query.Get("country"))
	assert.Equal(t, "en", query.Get("search_lang"))
	assert.Equal(t, "pm", query.Get("freshness"))

	// And: markup is stripped from snippets
	require.Len(t, results, 1)
	assert.Equal(t, "The Rust book", results[0].Snippet)
	assert.Equal(t, "2 days ago", results[0].PublishDate)
	assert.Equal(t, 1, results[0].Rank)
}

func TestBrave_RequiresAPIKey(t *testing.T) {
	_, err := NewBrave(BraveConfig{APIKey: "  "})
	require.Error(t, err)
}

func TestBraveFreshness(t *testing.T) {
	assert.Equal(t, "pd", braveFreshness("day"))
	assert.Equal(t, "pw", braveFreshness("week"))
	assert.Equal(t, "py", braveFreshness("Year"))
	assert.Equal(t, "", braveFreshness("decade"))
}

func TestSiteQuery(t *testing.T) {
	assert.Equal(t, "q site:go.dev", siteQuery("q", search.Filters{IncludeSites: []string{"go.dev"}}))
	assert.Equal(t, "q", siteQuery("q", search.Filters{IncludeSites: []string{"a.dev", "b.dev"}}))
	assert.Equal(t, "q -site:a.com -site:b.com", siteQuery("q", search.Filters{ExcludeSites: []string{"a.com", "b.com"}}))
}
