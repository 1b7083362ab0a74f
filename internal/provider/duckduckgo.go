package provider

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/search"
)

// DefaultDuckDuckGoBaseURL is the keyless HTML endpoint.
const DefaultDuckDuckGoBaseURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoConfig configures the DuckDuckGo adapter. No key is needed.
type DuckDuckGoConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DuckDuckGo scrapes the DuckDuckGo HTML results page.
type DuckDuckGo struct {
	cfg    DuckDuckGoConfig
	client *http.Client
}

// Ensure DuckDuckGo implements search.SearchProvider.
var _ search.SearchProvider = (*DuckDuckGo)(nil)

// NewDuckDuckGo creates a DuckDuckGo adapter.
func NewDuckDuckGo(cfg DuckDuckGoConfig) *DuckDuckGo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDuckDuckGoBaseURL
	}
	return &DuckDuckGo{cfg: cfg, client: newHTTPClient(cfg.Timeout)}
}

// ID implements search.SearchProvider.
func (p *DuckDuckGo) ID() string { return search.ProviderDuckDuckGo }

// Search implements search.SearchProvider.
func (p *DuckDuckGo) Search(ctx context.Context, query string, maxResults int, opts search.ProviderOptions) ([]search.ProviderResult, error) {
	values := url.Values{}
	values.Set("q", siteQuery(query, opts.Filters))
	if region := ddgRegion(opts.Filters); region != "" {
		values.Set("kl", region)
	}
	if df := ddgDateFilter(opts.Filters.TimeRange); df != "" {
		values.Set("df", df)
	}

	sep := "?"
	if strings.Contains(p.cfg.BaseURL, "?") {
		sep = "&"
	}

	start := time.Now()
	data, err := getBody(ctx, p.client, search.ProviderDuckDuckGo, p.cfg.BaseURL+sep+values.Encode(), map[string]string{
		"Accept": "text/html",
	})
	if err != nil {
		return nil, err
	}

	results, err := parseDuckDuckGoHTML(data, maxResults)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	for i := range results {
		results[i].ResponseTime = elapsed
	}
	return results, nil
}

// parseDuckDuckGoHTML extracts organic results, skipping ads.
func parseDuckDuckGoHTML(data []byte, maxResults int) ([]search.ProviderResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, amerrors.ProviderFailed(search.ProviderDuckDuckGo, "parse html", err)
	}

	var results []search.ProviderResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(results) >= maxResults {
			return false
		}
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find(".result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveDuckDuckGoLink(href)
		if target == "" {
			return true
		}
		results = append(results, search.ProviderResult{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
			Rank:    len(results) + 1,
		})
		return true
	})
	return results, nil
}

// resolveDuckDuckGoLink unwraps //duckduckgo.com/l/?uddg=<target> redirects.
func resolveDuckDuckGoLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// ddgRegion builds the kl parameter, e.g. "us-en".
func ddgRegion(f search.Filters) string {
	if f.Region == "" {
		return ""
	}
	lang := f.Language
	if lang == "" {
		lang = "en"
	}
	return strings.ToLower(f.Region) + "-" + strings.ToLower(lang)
}

func ddgDateFilter(timeRange string) string {
	switch strings.ToLower(timeRange) {
	case "day", "d":
		return "d"
	case "week", "w":
		return "w"
	case "month", "m":
		return "m"
	case "year", "y":
		return "y"
	default:
		return ""
	}
}
