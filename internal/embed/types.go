// Package embed produces text embeddings for semantic deduplication of
// search results.
package embed

import (
	"context"
	"math"
	"time"
)

// Batch and timeout limits shared by the network embedders.
const (
	// MaxBatchSize caps texts per request.
	MaxBatchSize = 256

	// DefaultBatchSize is the default number of texts sent per request.
	DefaultBatchSize = 32

	// DefaultTimeout bounds one embedding request. Deduplication runs on
	// the request path, so this is far shorter than an indexing timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 2
)

// StaticDimensions is the embedding dimension of the static embedder.
const StaticDimensions = 256

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	// Close releases resources
	Close() error
}

// normalizeVector scales v to unit length. Zero vectors are returned as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

// toFloat32 converts and normalizes a float64 vector from a JSON API.
func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return normalizeVector(out)
}

// splitBatches chunks texts into slices of at most size.
func splitBatches(texts []string, size int) [][]string {
	if size <= 0 || size > MaxBatchSize {
		size = DefaultBatchSize
	}
	batches := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[start:end])
	}
	return batches
}
