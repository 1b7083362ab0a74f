package embed

import (
	"context"
	"log/slog"
	"strings"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderStatic uses hash-based embeddings; always available
	ProviderStatic ProviderType = "static"

	// ProviderOllama uses a local Ollama server
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI uses an OpenAI-compatible embeddings API
	ProviderOpenAI ProviderType = "openai"

	// ProviderNone disables semantic deduplication
	ProviderNone ProviderType = "none"
)

// Config selects and configures an embedder.
type Config struct {
	Provider ProviderType
	Model    string
	Host     string // Ollama host or OpenAI base URL
	APIKey   string
	// Dimensions is passed to providers that accept it (0 = default).
	Dimensions int
	// CacheSize bounds the vector cache; negative disables caching.
	CacheSize int
	// Fallback to the static embedder when the configured one is unavailable.
	Fallback bool
}

// NewEmbedder builds the configured embedder wrapped in a cache. With
// Fallback set, an unavailable Ollama or OpenAI embedder degrades to the
// static embedder with a warning instead of failing. ProviderNone
// returns (nil, nil).
func NewEmbedder(ctx context.Context, cfg Config, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		embedder Embedder
		err      error
	)
	switch cfg.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderOllama:
		ollamaCfg := DefaultOllamaConfig()
		if cfg.Host != "" {
			ollamaCfg.Host = cfg.Host
		}
		if cfg.Model != "" {
			ollamaCfg.Model = cfg.Model
		}
		ollamaCfg.Dimensions = cfg.Dimensions
		embedder, err = NewOllamaEmbedder(ctx, ollamaCfg)
	case ProviderOpenAI:
		embedder, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.Host,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			MaxRetries: DefaultMaxRetries,
		})
	case ProviderStatic, "":
		embedder = NewStaticEmbedder()
	default:
		return nil, amerrors.ConfigError("unknown embeddings provider "+string(cfg.Provider), nil).
			WithSuggestion("Use one of: " + strings.Join(ValidProviders(), ", "))
	}

	if err != nil {
		if !cfg.Fallback {
			return nil, err
		}
		logger.Warn("embedder_fallback",
			slog.String("provider", string(cfg.Provider)),
			slog.String("fallback", string(ProviderStatic)),
			slog.String("reason", amerrors.Message(err)))
		embedder = NewStaticEmbedder()
	}

	if cfg.CacheSize >= 0 {
		embedder = NewCachedEmbedder(embedder, cfg.CacheSize)
	}
	logger.Debug("embedder_ready",
		slog.String("provider", string(cfg.Provider)),
		slog.String("model", embedder.ModelName()))
	return embedder, nil
}

// ParseProvider converts a string to ProviderType. Unknown values are
// returned as-is so NewEmbedder can reject them.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "static":
		return ProviderStatic
	case "ollama":
		return ProviderOllama
	case "openai":
		return ProviderOpenAI
	case "none", "off", "disabled":
		return ProviderNone
	default:
		return ProviderType(strings.ToLower(strings.TrimSpace(s)))
	}
}

// String returns the string representation of ProviderType
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names
func ValidProviders() []string {
	return []string{
		string(ProviderStatic),
		string(ProviderOllama),
		string(ProviderOpenAI),
		string(ProviderNone),
	}
}

// IsValidProvider checks if a provider name is valid
func IsValidProvider(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// Info describes an embedder for status output.
type Info struct {
	Provider   ProviderType `json:"provider"`
	Model      string       `json:"model"`
	Dimensions int          `json:"dimensions"`
	Available  bool         `json:"available"`
	CacheHits  int64        `json:"cache_hits"`
	CacheMiss  int64        `json:"cache_misses"`
}

// GetInfo returns information about an embedder.
func GetInfo(ctx context.Context, embedder Embedder) Info {
	if embedder == nil {
		return Info{Provider: ProviderNone}
	}
	info := Info{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.inner
		info.CacheHits, info.CacheMiss = cached.Stats()
	}

	switch inner.(type) {
	case *OllamaEmbedder:
		info.Provider = ProviderOllama
	case *OpenAIEmbedder:
		info.Provider = ProviderOpenAI
	default:
		info.Provider = ProviderStatic
	}
	return info
}
