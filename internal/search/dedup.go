package search

import (
	"context"
	"log/slog"
	"math"
	"strings"
)

// DefaultSimilarityThreshold is the cosine similarity above which two
// results are considered the same content.
const DefaultSimilarityThreshold = 0.85

// Deduplicator removes repeated results, first by URL and then by
// embedding similarity when an embedder is available.
type Deduplicator struct {
	embedder  Embedder
	threshold float64
}

// NewDeduplicator creates a deduplicator. A nil embedder limits it to URL
// deduplication; a threshold outside (0, 1] uses the default.
func NewDeduplicator(embedder Embedder, threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	return &Deduplicator{embedder: embedder, threshold: threshold}
}

// Dedupe keeps the first occurrence of every normalized URL, then, when
// semantic is set, greedily drops later results whose title and snippet
// embed too close to an earlier survivor. Embedding failures fall back to
// the URL-level result.
func (d *Deduplicator) Dedupe(ctx context.Context, results []MergedResult, semantic bool) []MergedResult {
	unique := DedupeByURL(results)
	if !semantic || d.embedder == nil || len(unique) < 2 {
		return unique
	}

	texts := make([]string, len(unique))
	for i, r := range unique {
		texts[i] = r.Title + " " + r.Snippet
	}
	vectors, err := d.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		slog.Warn("semantic_dedup_skipped", slog.String("error", err.Error()))
		return unique
	}
	if len(vectors) != len(unique) {
		slog.Warn("semantic_dedup_skipped",
			slog.Int("expected", len(unique)),
			slog.Int("got", len(vectors)))
		return unique
	}

	removed := make([]bool, len(unique))
	for i := range unique {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(unique); j++ {
			if removed[j] {
				continue
			}
			if CosineSimilarity(vectors[i], vectors[j]) > d.threshold {
				removed[j] = true
			}
		}
	}

	out := make([]MergedResult, 0, len(unique))
	for i, r := range unique {
		if !removed[i] {
			out = append(out, r)
		}
	}
	if dropped := len(unique) - len(out); dropped > 0 {
		slog.Debug("semantic_dedup_applied", slog.Int("dropped", dropped))
	}
	return out
}

// DedupeByURL keeps the first result for each normalized URL and drops
// results without a URL.
func DedupeByURL(results []MergedResult) []MergedResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]MergedResult, 0, len(results))
	for _, r := range results {
		key := NormalizeURL(r.URL)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// NormalizeURL lowercases the URL and strips the scheme, a leading "www.",
// the query string, the fragment and any trailing slash.
func NormalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	u = strings.TrimPrefix(u, "www.")
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either is empty, zero or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
