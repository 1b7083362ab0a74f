package search

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Enrichment defaults.
const (
	DefaultEnrichConcurrency = 3
	DefaultFetchTimeout      = 15 * time.Second
)

// fencedBlock matches fenced blocks whose fences start a line. The first
// word of the info string is the language; the rest of it is ignored.
var fencedBlock = regexp.MustCompile("(?ms)^[ \t]*```[ \t]*([A-Za-z0-9_+#.-]*)[^\n]*\n(.*?)^[ \t]*```[ \t]*\r?$")

// ContentEnricher fetches full page content for results with bounded
// concurrency.
type ContentEnricher struct {
	fetcher     ContentFetcher
	concurrency int
	timeout     time.Duration
}

// NewContentEnricher creates an enricher. Non-positive values use defaults.
func NewContentEnricher(fetcher ContentFetcher, concurrency int, timeout time.Duration) *ContentEnricher {
	if concurrency <= 0 {
		concurrency = DefaultEnrichConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &ContentEnricher{fetcher: fetcher, concurrency: concurrency, timeout: timeout}
}

// Enrich fetches content for every result. A failed fetch leaves that
// result's FullContent nil; enrichment never fails as a whole.
func (e *ContentEnricher) Enrich(ctx context.Context, results []MergedResult) []MergedResult {
	out := make([]MergedResult, len(results))
	copy(out, results)
	if e.fetcher == nil || len(out) == 0 {
		return out
	}

	pool, err := ants.NewPool(e.concurrency)
	if err != nil {
		slog.Warn("enrich_pool_failed", slog.String("error", err.Error()))
		return out
	}
	defer pool.Release()

	var (
		wg     sync.WaitGroup
		failed int
		mu     sync.Mutex
	)
	for i := range out {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if !e.enrichOne(ctx, &out[i]) {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			slog.Warn("enrich_submit_failed",
				slog.String("url", out[i].URL),
				slog.String("error", submitErr.Error()))
		}
	}
	wg.Wait()

	slog.Debug("enrich_completed",
		slog.Int("results", len(out)),
		slog.Int("failed", failed))
	return out
}

// enrichOne fills one result in place. Each goroutine owns its own slot.
func (e *ContentEnricher) enrichOne(ctx context.Context, r *MergedResult) bool {
	fetchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	content, err := e.fetcher.Fetch(fetchCtx, r.URL)
	if err != nil {
		slog.Debug("enrich_fetch_failed",
			slog.String("url", r.URL),
			slog.String("error", err.Error()))
		return false
	}

	r.FullContent = &content
	r.CodeSnippets = ExtractCodeBlocks(content)
	return true
}

// ExtractCodeBlocks returns every fenced code block in text in order of
// appearance. Blocks without a language tag are labelled "text".
func ExtractCodeBlocks(text string) []CodeSnippet {
	matches := fencedBlock.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	snippets := make([]CodeSnippet, 0, len(matches))
	for _, m := range matches {
		code := strings.TrimRight(m[2], "\r\n")
		if strings.TrimSpace(code) == "" {
			continue
		}
		lang := strings.ToLower(m[1])
		if lang == "" {
			lang = "text"
		}
		snippets = append(snippets, CodeSnippet{Language: lang, Code: code})
	}
	return snippets
}
