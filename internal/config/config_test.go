package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amansearch/configs"
	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/search"
)

// isolate points the user config at an empty temp dir and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, name := range []string{
		"EXA_API_KEY", "BRAVE_API_KEY", "SEARXNG_URL", "OPENAI_API_KEY",
		"AMANSEARCH_MODE", "AMANSEARCH_MAX_RESULTS", "AMANSEARCH_PROVIDER_TIMEOUT",
		"AMANSEARCH_SIMILARITY_THRESHOLD", "AMANSEARCH_EMBEDDINGS_PROVIDER",
		"AMANSEARCH_EMBEDDINGS_MODEL", "AMANSEARCH_OLLAMA_HOST", "AMANSEARCH_CACHE_ENABLED",
		"AMANSEARCH_CACHE_TTL", "AMANSEARCH_TRACING_EXPORTER", "AMANSEARCH_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
	return xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "auto", cfg.Search.DefaultMode)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, 10*time.Second, cfg.Search.ProviderTimeout)
	assert.Equal(t, 0.85, cfg.Search.SimilarityThreshold)
	assert.Equal(t, 1.0, cfg.Search.ProviderWeights[search.ProviderExa])
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.True(t, cfg.Embeddings.Fallback)
	assert.Equal(t, 3, cfg.Fetch.Concurrency)
	assert.True(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, "noop", cfg.Tracing.Exporter)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig_RoutingMatchesDefaultTable(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, search.DefaultRoutingTable(), cfg.RoutingTable())
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	// Given: a user config and a project config that both set max_results
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "amansearch", "config.yaml"), `
search:
  max_results: 20
  default_mode: deep
embeddings:
  provider: none
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amansearch.yaml"), `
search:
  max_results: 5
providers:
  brave:
    enabled: false
`)

	// When: loading
	cfg, err := Load(dir)

	// Then: the project wins where both set a key, the user config elsewhere
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, "deep", cfg.Search.DefaultMode)
	assert.Equal(t, "none", cfg.Embeddings.Provider)
	assert.False(t, cfg.Providers.Brave.Enabled)
	assert.True(t, cfg.Providers.Exa.Enabled)
	// Unset keys keep their defaults
	assert.Equal(t, 0.85, cfg.Search.SimilarityThreshold)
}

func TestLoad_ExplicitFalseIsPreserved(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amansearch.yml"), "cache:\n  enabled: false\nembeddings:\n  fallback: false\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Embeddings.Fallback)
}

func TestLoad_ParsesDurations(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amansearch.yaml"), `
search:
  provider_timeout: 4s
  provider_timeouts:
    exa_deep: 1m
cache:
  ttl: 90s
`)

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, cfg.Search.ProviderTimeout)
	assert.Equal(t, time.Minute, cfg.Search.ProviderTimeouts["exa_deep"])
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
}

func TestLoad_UnknownKeyIsConfigError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amansearch.yaml"), "search:\n  max_resluts: 5\n")

	_, err := Load(dir)

	require.Error(t, err)
	assert.True(t, amerrors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "max_resluts")
}

func TestLoad_EmptyFileIsAllowed(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amansearch.yaml"), "\n# nothing yet\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Search.MaxResults)
}

func TestLoad_EnvOverrides(t *testing.T) {
	// Given: a project file and env vars for the same keys
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amansearch.yaml"), "search:\n  max_results: 5\n")
	t.Setenv("AMANSEARCH_MAX_RESULTS", "30")
	t.Setenv("AMANSEARCH_MODE", "CODE")
	t.Setenv("AMANSEARCH_PROVIDER_TIMEOUT", "3s")
	t.Setenv("AMANSEARCH_CACHE_ENABLED", "false")
	t.Setenv("AMANSEARCH_TRACING_EXPORTER", "stderr")
	t.Setenv("EXA_API_KEY", "exa-secret")
	t.Setenv("BRAVE_API_KEY", "brave-secret")
	t.Setenv("SEARXNG_URL", "http://localhost:8888")

	// When: loading
	cfg, err := Load(dir)

	// Then: env wins over files
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Search.MaxResults)
	assert.Equal(t, "code", cfg.Search.DefaultMode)
	assert.Equal(t, 3*time.Second, cfg.Search.ProviderTimeout)
	assert.False(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "exa-secret", cfg.Providers.Exa.APIKey)
	assert.Equal(t, "exa-secret", cfg.Providers.ExaDeep.APIKey)
	assert.Equal(t, "brave-secret", cfg.Providers.Brave.APIKey)
	assert.Equal(t, "http://localhost:8888", cfg.Providers.SearXNG.BaseURL)
}

func TestLoad_BadEnvValue(t *testing.T) {
	tests := []struct {
		name, env, value string
	}{
		{"max results", "AMANSEARCH_MAX_RESULTS", "many"},
		{"timeout", "AMANSEARCH_PROVIDER_TIMEOUT", "soon"},
		{"threshold", "AMANSEARCH_SIMILARITY_THRESHOLD", "high"},
		{"cache flag", "AMANSEARCH_CACHE_ENABLED", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.env, tt.value)

			_, err := Load(t.TempDir())

			require.Error(t, err)
			assert.True(t, amerrors.IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"mode", func(c *Config) { c.Search.DefaultMode = "turbo" }, "default_mode"},
		{"max results low", func(c *Config) { c.Search.MaxResults = 0 }, "max_results"},
		{"max results high", func(c *Config) { c.Search.MaxResults = 51 }, "max_results"},
		{"threshold", func(c *Config) { c.Search.SimilarityThreshold = 1.5 }, "similarity_threshold"},
		{"negative weight", func(c *Config) { c.Search.ProviderWeights["brave"] = -1 }, "provider_weights.brave"},
		{"empty default route", func(c *Config) { c.Routing.Default = nil }, "routing.default"},
		{"embeddings", func(c *Config) { c.Embeddings.Provider = "mlx" }, "embeddings.provider"},
		{"fetch concurrency", func(c *Config) { c.Fetch.Concurrency = 0 }, "fetch.concurrency"},
		{"cache ttl", func(c *Config) { c.Cache.TTL = 0 }, "cache.size"},
		{"exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }, "tracing.exporter"},
		{"file exporter path", func(c *Config) { c.Tracing.Exporter = "file" }, "tracing.path"},
		{"transport", func(c *Config) { c.Server.Transport = "sse" }, "server.transport"},
		{"log level", func(c *Config) { c.Server.LogLevel = "loud" }, "server.log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Equal(t, amerrors.ErrCodeConfigInvalid, amerrors.GetCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.MaxResults = 0
	cfg.Server.LogLevel = "loud"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_results")
	assert.Contains(t, err.Error(), "log_level")
}

func TestValidate_DisabledCacheIgnoresSize(t *testing.T) {
	cfg := NewConfig()
	cfg.Cache.Enabled = false
	cfg.Cache.Size = 0

	assert.NoError(t, cfg.Validate())
}

func TestRoutingTable_ParsesKeys(t *testing.T) {
	cfg := NewConfig()
	cfg.Routing.Modes = map[string][]string{"fast": {"brave"}}
	cfg.Routing.SearchTypes = map[string][]string{"docs": {"exa"}}

	table := cfg.RoutingTable()

	assert.Equal(t, []string{"brave"}, table.Modes[search.ModeFast])
	assert.Equal(t, []string{"exa"}, table.SearchTypes[search.SearchTypeDocumentation])
}

func TestProvidersByID(t *testing.T) {
	cfg := NewConfig()

	for _, id := range KnownProviders() {
		s, ok := cfg.Providers.ByID(id)
		require.True(t, ok, id)
		assert.True(t, s.Enabled, id)
	}
	_, ok := cfg.Providers.ByID("bing")
	assert.False(t, ok)

	cfg.Providers.ExaDeep.Enabled = false
	assert.NotContains(t, cfg.EnabledProviders(), "exa_deep")
	assert.Contains(t, cfg.EnabledProviders(), "exa")
}

func TestRedacted_MasksSecrets(t *testing.T) {
	cfg := NewConfig()
	cfg.Providers.Exa.APIKey = "abcd1234efgh"
	cfg.Providers.Brave.APIKey = "short"

	r := cfg.Redacted()

	assert.Equal(t, "abcd****", r.Providers.Exa.APIKey)
	assert.Equal(t, "****", r.Providers.Brave.APIKey)
	assert.Equal(t, "", r.Embeddings.APIKey)
	// Original untouched
	assert.Equal(t, "abcd1234efgh", cfg.Providers.Exa.APIKey)
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	// Given: a customised config written as the project file
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Search.MaxResults = 7
	cfg.Cache.TTL = 3 * time.Minute
	cfg.Providers.DuckDuckGo.Enabled = false

	// When: writing and loading it back
	path := filepath.Join(dir, ".amansearch.yaml")
	require.NoError(t, cfg.WriteYAML(path))
	loaded, err := Load(dir)

	// Then: the values survive
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Search.MaxResults)
	assert.Equal(t, 3*time.Minute, loaded.Cache.TTL)
	assert.False(t, loaded.Providers.DuckDuckGo.Enabled)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestMergeNewDefaults(t *testing.T) {
	// Given: a config written before routing and tracing existed
	cfg := &Config{
		Search:  SearchConfig{MaxResults: 5},
		Breaker: BreakerConfig{MaxFailures: 9},
	}

	// When: merging
	added := cfg.MergeNewDefaults()

	// Then: missing sections are filled and existing values kept
	assert.Contains(t, added, "routing.modes")
	assert.Contains(t, added, "tracing.exporter")
	assert.NotContains(t, added, "breaker.max_failures")
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, uint32(9), cfg.Breaker.MaxFailures)
	assert.Equal(t, CurrentVersion, cfg.Version)

	// And: a second merge is a no-op
	assert.Empty(t, cfg.MergeNewDefaults())
}

func TestGetUserConfigPath_UsesXDG(t *testing.T) {
	xdg := isolate(t)

	assert.Equal(t, filepath.Join(xdg, "amansearch", "config.yaml"), GetUserConfigPath())
	assert.False(t, UserConfigExists())
	assert.Empty(t, Sources(t.TempDir()))
}

func TestTemplates_DecodeStrictly(t *testing.T) {
	for name, tmpl := range map[string]string{
		"user":    configs.UserConfigTemplate,
		"project": configs.ProjectConfigTemplate,
	} {
		t.Run(name, func(t *testing.T) {
			cfg := NewConfig()
			require.NoError(t, cfg.decode([]byte(tmpl)))
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestLoadFile_IgnoresEnvAndOtherSources(t *testing.T) {
	// Given: a project file and an env override for the same key
	isolate(t)
	t.Setenv("AMANSEARCH_MAX_RESULTS", "40")
	path := filepath.Join(t.TempDir(), ".amansearch.yaml")
	writeFile(t, path, "search:\n  max_results: 7\n")

	// When: loading just that file
	cfg, err := LoadFile(path)

	// Then: the file value wins and unspecified keys keep defaults
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.MaxResults)
	assert.Equal(t, "auto", cfg.Search.DefaultMode)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Equal(t, amerrors.ErrCodeConfigNotFound, amerrors.GetCode(err))
}
