package searcher

import (
	"github.com/Aman-CERP/amansearch/internal/config"
	"github.com/Aman-CERP/amansearch/internal/embed"
	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/fetch"
	"github.com/Aman-CERP/amansearch/internal/provider"
	"github.com/Aman-CERP/amansearch/internal/search"
)

// ProviderConfig maps the providers and breaker sections onto the registry.
// Disabled providers stay nil so they are never constructed.
func ProviderConfig(cfg *config.Config) provider.Config {
	pc := provider.Config{
		Guards:       make(map[string]provider.GuardConfig),
		DisableGuard: !cfg.Breaker.Enabled,
	}

	retry := amerrors.DefaultRetryConfig()
	retry.MaxRetries = cfg.Breaker.MaxRetries
	pc.DefaultGuard = provider.GuardConfig{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
		Interval:    cfg.Breaker.Interval,
		Retry:       &retry,
	}

	p := cfg.Providers
	if p.Exa.Enabled {
		pc.Exa = &provider.ExaConfig{APIKey: p.Exa.APIKey, BaseURL: p.Exa.BaseURL, Timeout: p.Exa.Timeout}
	}
	if p.ExaDeep.Enabled {
		pc.ExaDeep = &provider.ExaConfig{APIKey: p.ExaDeep.APIKey, BaseURL: p.ExaDeep.BaseURL, Timeout: p.ExaDeep.Timeout}
	}
	if p.Brave.Enabled {
		pc.Brave = &provider.BraveConfig{APIKey: p.Brave.APIKey, BaseURL: p.Brave.BaseURL, Timeout: p.Brave.Timeout}
	}
	if p.SearXNG.Enabled {
		pc.SearXNG = &provider.SearXNGConfig{BaseURL: p.SearXNG.BaseURL, Timeout: p.SearXNG.Timeout}
	}
	if p.DuckDuckGo.Enabled {
		pc.DuckDuckGo = &provider.DuckDuckGoConfig{BaseURL: p.DuckDuckGo.BaseURL, Timeout: p.DuckDuckGo.Timeout}
	}

	for _, id := range config.KnownProviders() {
		s, _ := cfg.Providers.ByID(id)
		guard := pc.DefaultGuard
		guard.RequestsPerSecond = s.RequestsPerSecond
		guard.Burst = s.Burst
		pc.Guards[id] = guard
	}
	return pc
}

// EmbedConfig maps the embeddings section onto the embedder factory.
func EmbedConfig(cfg *config.Config) embed.Config {
	e := cfg.Embeddings
	cacheSize := e.CacheSize
	if cacheSize == 0 {
		cacheSize = -1
	}
	return embed.Config{
		Provider:   embed.ParseProvider(e.Provider),
		Model:      e.Model,
		Host:       e.Host,
		APIKey:     e.APIKey,
		Dimensions: e.Dimensions,
		CacheSize:  cacheSize,
		Fallback:   e.Fallback,
	}
}

// FetchConfig maps the fetch section onto the page fetcher.
func FetchConfig(cfg *config.Config) fetch.Config {
	fc := fetch.DefaultConfig()
	if cfg.Fetch.Timeout > 0 {
		fc.Timeout = cfg.Fetch.Timeout
	}
	if cfg.Fetch.MaxBodyBytes > 0 {
		fc.MaxBodyBytes = cfg.Fetch.MaxBodyBytes
	}
	if cfg.Fetch.MaxContentChars > 0 {
		fc.MaxContentChars = cfg.Fetch.MaxContentChars
	}
	fc.RequestsPerHost = cfg.Fetch.RequestsPerHost
	return fc
}

// SearchConfig maps the search, routing and fetch sections onto the
// orchestrator.
func SearchConfig(cfg *config.Config) search.Config {
	return search.Config{
		Routing:             cfg.RoutingTable(),
		ProviderTimeout:     cfg.Search.ProviderTimeout,
		ProviderTimeouts:    cfg.Search.ProviderTimeouts,
		SimilarityThreshold: cfg.Search.SimilarityThreshold,
		ProviderWeights:     cfg.Search.ProviderWeights,
		EnrichConcurrency:   cfg.Fetch.Concurrency,
		FetchTimeout:        cfg.Fetch.Timeout,
	}
}
