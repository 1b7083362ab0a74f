package preflight

import (
	"context"
	"strings"

	"github.com/Aman-CERP/amansearch/internal/config"
	"github.com/Aman-CERP/amansearch/internal/embed"
)

// CheckEmbeddings checks that the configured embedding backend has what it
// needs. It is never critical: semantic deduplication degrades to URL-only.
func (c *Checker) CheckEmbeddings(ctx context.Context, cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "embeddings",
		Required: false,
	}

	switch strings.ToLower(cfg.Embeddings.Provider) {
	case "none":
		result.Status = StatusPass
		result.Message = "disabled (URL deduplication only)"
	case "static":
		result.Status = StatusPass
		result.Message = "static (offline)"
	case "openai":
		if cfg.Embeddings.APIKey == "" {
			result.Status = StatusWarn
			result.Message = "openai selected but no API key"
			result.Details = "Set OPENAI_API_KEY or embeddings.api_key"
			return result
		}
		result.Status = StatusPass
		result.Message = "openai (key configured)"
	case "ollama":
		if c.offline {
			result.Status = StatusPass
			result.Message = "ollama (not probed offline)"
			return result
		}
		host := cfg.Embeddings.Host
		if host == "" {
			host = embed.DefaultOllamaHost
		}
		probed := c.probe(ctx, result.Name, strings.TrimRight(host, "/")+"/api/tags")
		probed.Message = "ollama " + probed.Message
		if probed.Status != StatusPass && cfg.Embeddings.Fallback {
			probed.Details += " (falls back to static)"
		}
		return probed
	default:
		result.Status = StatusWarn
		result.Message = "unknown provider " + cfg.Embeddings.Provider
	}
	return result
}
