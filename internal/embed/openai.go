package embed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

// OpenAI defaults.
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "text-embedding-3-small"
)

// OpenAIConfig configures the OpenAI-compatible embedder.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions requests shortened vectors from models that support it (0 = model default).
	Dimensions int
	BatchSize  int
	MaxRetries int
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client openai.Client
	cfg    OpenAIConfig

	mu     sync.RWMutex
	dims   int
	closed bool
}

// Verify interface implementation at compile time
var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder. An empty API key is a configuration error.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, amerrors.New(amerrors.ErrCodeMissingAPIKey, "openai embeddings require an API key", nil).
			WithSuggestion("Set OPENAI_API_KEY or embeddings.api_key")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	cfg.Model = normalizeOpenAIModel(cfg.Model)
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(DefaultTimeout),
	)
	return &OpenAIEmbedder{client: client, cfg: cfg, dims: cfg.Dimensions}, nil
}

// normalizeOpenAIModel strips an "openai/" prefix and applies the default.
func normalizeOpenAIModel(model string) string {
	trimmed := strings.TrimSpace(model)
	if trimmed == "" {
		return DefaultOpenAIModel
	}
	if after, ok := strings.CutPrefix(trimmed, "openai/"); ok {
		return after
	}
	return trimmed
}

// Embed generates embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in chunks, keeping input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	results := make([][]float32, 0, len(texts))
	for _, batch := range splitBatches(texts, e.cfg.BatchSize) {
		params := openai.EmbeddingNewParams{
			Model: openai.EmbeddingModel(e.cfg.Model),
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: batch,
			},
			EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
		}
		if e.cfg.Dimensions > 0 {
			params.Dimensions = openai.Int(int64(e.cfg.Dimensions))
		}

		resp, err := e.client.Embeddings.New(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, amerrors.EmbeddingFailed("openai embeddings request failed", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, amerrors.EmbeddingFailed(
				fmt.Sprintf("openai returned %d embeddings for %d inputs", len(resp.Data), len(batch)), nil)
		}

		data := resp.Data
		sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
		for _, entry := range data {
			results = append(results, toFloat32(entry.Embedding))
		}
	}

	if len(results) > 0 {
		e.mu.Lock()
		if e.dims == 0 {
			e.dims = len(results[0])
		}
		e.mu.Unlock()
	}
	return results, nil
}

// Dimensions returns the configured or observed dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string { return e.cfg.Model }

// Available reports whether the embedder is open. No request is made;
// a bad key surfaces on the first call and deduplication fails open.
func (e *OpenAIEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close marks the embedder closed.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
