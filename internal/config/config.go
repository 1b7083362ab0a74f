// Package config loads layered AmanSearch configuration: built-in
// defaults, the user config, the project config and environment
// variables, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/search"
)

// CurrentVersion is the config schema version written by WriteYAML.
const CurrentVersion = 1

// Project config file names, in lookup order.
var projectConfigNames = []string{".amansearch.yaml", ".amansearch.yml"}

// Config represents the complete AmanSearch configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Routing    RoutingConfig    `yaml:"routing" json:"routing"`
	Providers  ProvidersConfig  `yaml:"providers" json:"providers"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Fetch      FetchConfig      `yaml:"fetch" json:"fetch"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Breaker    BreakerConfig    `yaml:"breaker" json:"breaker"`
	Tracing    TracingConfig    `yaml:"tracing" json:"tracing"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// SearchConfig configures request defaults and ranking.
type SearchConfig struct {
	// DefaultMode applies when a request names no mode.
	DefaultMode string `yaml:"default_mode" json:"default_mode"`

	// MaxResults applies when a request names no limit (1-50).
	MaxResults int `yaml:"max_results" json:"max_results"`

	// ProviderTimeout bounds each provider call.
	ProviderTimeout time.Duration `yaml:"provider_timeout" json:"provider_timeout"`

	// ProviderTimeouts overrides ProviderTimeout per provider id.
	ProviderTimeouts map[string]time.Duration `yaml:"provider_timeouts,omitempty" json:"provider_timeouts,omitempty"`

	// SimilarityThreshold is the cosine similarity above which two
	// results are semantic duplicates (0-1].
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`

	// ProviderWeights multiplies each provider's base relevance.
	ProviderWeights map[string]float64 `yaml:"provider_weights" json:"provider_weights"`
}

// RoutingConfig maps modes and search types to ordered provider ids.
type RoutingConfig struct {
	Modes       map[string][]string `yaml:"modes" json:"modes"`
	SearchTypes map[string][]string `yaml:"search_types" json:"search_types"`
	Default     []string            `yaml:"default" json:"default"`
}

// ProviderSettings configures one search backend.
type ProviderSettings struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	APIKey  string        `yaml:"api_key,omitempty" json:"-"`
	BaseURL string        `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// RequestsPerSecond throttles outgoing calls (0 = unlimited).
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" json:"requests_per_second,omitempty"`
	Burst             int     `yaml:"burst,omitempty" json:"burst,omitempty"`
}

// ProvidersConfig holds settings per provider id.
type ProvidersConfig struct {
	Exa        ProviderSettings `yaml:"exa" json:"exa"`
	ExaDeep    ProviderSettings `yaml:"exa_deep" json:"exa_deep"`
	Brave      ProviderSettings `yaml:"brave" json:"brave"`
	SearXNG    ProviderSettings `yaml:"searxng" json:"searxng"`
	DuckDuckGo ProviderSettings `yaml:"duckduckgo" json:"duckduckgo"`
}

// ByID returns the settings for a provider id.
func (p *ProvidersConfig) ByID(id string) (*ProviderSettings, bool) {
	switch id {
	case search.ProviderExa:
		return &p.Exa, true
	case search.ProviderExaDeep:
		return &p.ExaDeep, true
	case search.ProviderBrave:
		return &p.Brave, true
	case search.ProviderSearXNG:
		return &p.SearXNG, true
	case search.ProviderDuckDuckGo:
		return &p.DuckDuckGo, true
	default:
		return nil, false
	}
}

// KnownProviders lists every provider id with an adapter.
func KnownProviders() []string {
	return []string{
		search.ProviderBrave,
		search.ProviderDuckDuckGo,
		search.ProviderExa,
		search.ProviderExaDeep,
		search.ProviderSearXNG,
	}
}

// EmbeddingsConfig configures semantic deduplication.
type EmbeddingsConfig struct {
	// Provider is static, ollama, openai or none.
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model,omitempty" json:"model,omitempty"`
	Host       string `yaml:"host,omitempty" json:"host,omitempty"`
	APIKey     string `yaml:"api_key,omitempty" json:"-"`
	Dimensions int    `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`

	// Fallback degrades to the static embedder when the provider is unavailable.
	Fallback bool `yaml:"fallback" json:"fallback"`
}

// FetchConfig configures full-content enrichment.
type FetchConfig struct {
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	Concurrency     int           `yaml:"concurrency" json:"concurrency"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	MaxContentChars int           `yaml:"max_content_chars" json:"max_content_chars"`
	RequestsPerHost float64       `yaml:"requests_per_host" json:"requests_per_host"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Size    int           `yaml:"size" json:"size"`
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
}

// BreakerConfig configures per-provider circuit breakers and retries.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxFailures uint32        `yaml:"max_failures" json:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout" json:"open_timeout"`
	Interval    time.Duration `yaml:"interval" json:"interval"`
	MaxRetries  int           `yaml:"max_retries" json:"max_retries"`
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Exporter string `yaml:"exporter" json:"exporter"` // noop, stderr, file
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
}

// ServerConfig configures the MCP server and logging.
type ServerConfig struct {
	Transport   string `yaml:"transport" json:"transport"`
	LogLevel    string `yaml:"log_level" json:"log_level"`
	LogDir      string `yaml:"log_dir,omitempty" json:"log_dir,omitempty"`
	WatchConfig bool   `yaml:"watch_config" json:"watch_config"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	routing := search.DefaultRoutingTable()
	return &Config{
		Version: CurrentVersion,
		Search: SearchConfig{
			DefaultMode:         string(search.ModeAuto),
			MaxResults:          search.DefaultMaxResults,
			ProviderTimeout:     search.DefaultProviderTimeout,
			SimilarityThreshold: search.DefaultSimilarityThreshold,
			ProviderWeights:     search.DefaultProviderWeights(),
		},
		Routing: RoutingConfig{
			Modes:       modesToStrings(routing.Modes),
			SearchTypes: typesToStrings(routing.SearchTypes),
			Default:     routing.Default,
		},
		Providers: ProvidersConfig{
			Exa:        ProviderSettings{Enabled: true},
			ExaDeep:    ProviderSettings{Enabled: true, Timeout: 45 * time.Second},
			Brave:      ProviderSettings{Enabled: true, RequestsPerSecond: 1, Burst: 1},
			SearXNG:    ProviderSettings{Enabled: true},
			DuckDuckGo: ProviderSettings{Enabled: true, RequestsPerSecond: 1, Burst: 2},
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "static",
			CacheSize: 4096,
			Fallback:  true,
		},
		Fetch: FetchConfig{
			Timeout:         search.DefaultFetchTimeout,
			Concurrency:     search.DefaultEnrichConcurrency,
			MaxBodyBytes:    2 << 20,
			MaxContentChars: 20000,
			RequestsPerHost: 2,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    256,
			TTL:     10 * time.Minute,
		},
		Breaker: BreakerConfig{
			Enabled:     true,
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
			Interval:    60 * time.Second,
			MaxRetries:  2,
		},
		Tracing: TracingConfig{
			Exporter: "noop",
		},
		Server: ServerConfig{
			Transport:   "stdio",
			LogLevel:    "info",
			WatchConfig: true,
		},
	}
}

func modesToStrings(in map[search.Mode][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[string(k)] = append([]string(nil), v...)
	}
	return out
}

func typesToStrings(in map[search.SearchType][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[string(k)] = append([]string(nil), v...)
	}
	return out
}

// RoutingTable converts the routing section for the engine router.
func (c *Config) RoutingTable() search.RoutingTable {
	table := search.RoutingTable{
		Modes:       make(map[search.Mode][]string, len(c.Routing.Modes)),
		SearchTypes: make(map[search.SearchType][]string, len(c.Routing.SearchTypes)),
		Default:     append([]string(nil), c.Routing.Default...),
	}
	for k, v := range c.Routing.Modes {
		table.Modes[search.ParseMode(k)] = append([]string(nil), v...)
	}
	for k, v := range c.Routing.SearchTypes {
		table.SearchTypes[search.ParseSearchType(k)] = append([]string(nil), v...)
	}
	return table
}

// GetUserConfigPath returns the path to the user configuration file:
// $XDG_CONFIG_HOME/amansearch/config.yaml, else ~/.config/amansearch/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amansearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "amansearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "amansearch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// ProjectConfigPath returns the project config file in dir, or "" if none.
func ProjectConfigPath(dir string) string {
	for _, name := range projectConfigNames {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// Sources returns the config files that Load would read from dir, in order.
func Sources(dir string) []string {
	var out []string
	if UserConfigExists() {
		out = append(out, GetUserConfigPath())
	}
	if p := ProjectConfigPath(dir); p != "" {
		out = append(out, p)
	}
	return out
}

// Load loads configuration for the project in dir. It applies, in order
// of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/amansearch/config.yaml)
//  3. Project config (.amansearch.yaml in dir)
//  4. Environment variables
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	for _, path := range Sources(dir) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads one config file over the defaults, without environment
// overrides or validation. It backs `config show --source` and upgrades.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML overlays the keys present in path onto c. Unknown keys are an
// error so typos do not silently fall back to defaults.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return amerrors.New(amerrors.ErrCodeConfigPermission, "cannot read config file", err).
				WithDetail("path", path)
		}
		return amerrors.New(amerrors.ErrCodeConfigNotFound, "cannot read config file", err).
			WithDetail("path", path)
	}
	if err := c.decode(data); err != nil {
		return amerrors.ConfigError(fmt.Sprintf("failed to parse %s: %v", path, err), err).
			WithDetail("path", path).
			WithSuggestion("Run 'amansearch config init --force' to regenerate a valid file")
	}
	return nil
}

func (c *Config) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. Provider keys
// use the names their vendors document; everything else is AMANSEARCH_*.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("EXA_API_KEY"); v != "" {
		c.Providers.Exa.APIKey = v
		if c.Providers.ExaDeep.APIKey == "" {
			c.Providers.ExaDeep.APIKey = v
		}
	}
	if v := os.Getenv("BRAVE_API_KEY"); v != "" {
		c.Providers.Brave.APIKey = v
	}
	if v := os.Getenv("SEARXNG_URL"); v != "" {
		c.Providers.SearXNG.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Embeddings.APIKey == "" {
		c.Embeddings.APIKey = v
	}

	if v := os.Getenv("AMANSEARCH_MODE"); v != "" {
		c.Search.DefaultMode = strings.ToLower(v)
	}
	if v := os.Getenv("AMANSEARCH_MAX_RESULTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("AMANSEARCH_MAX_RESULTS", v, err)
		}
		c.Search.MaxResults = n
	}
	if v := os.Getenv("AMANSEARCH_PROVIDER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError("AMANSEARCH_PROVIDER_TIMEOUT", v, err)
		}
		c.Search.ProviderTimeout = d
	}
	if v := os.Getenv("AMANSEARCH_SIMILARITY_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return envError("AMANSEARCH_SIMILARITY_THRESHOLD", v, err)
		}
		c.Search.SimilarityThreshold = f
	}
	if v := os.Getenv("AMANSEARCH_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("AMANSEARCH_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("AMANSEARCH_OLLAMA_HOST"); v != "" {
		c.Embeddings.Host = v
	}
	if v := os.Getenv("AMANSEARCH_CACHE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("AMANSEARCH_CACHE_ENABLED", v, err)
		}
		c.Cache.Enabled = b
	}
	if v := os.Getenv("AMANSEARCH_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError("AMANSEARCH_CACHE_TTL", v, err)
		}
		c.Cache.TTL = d
	}
	if v := os.Getenv("AMANSEARCH_TRACING_EXPORTER"); v != "" {
		c.Tracing.Exporter = strings.ToLower(v)
		c.Tracing.Enabled = c.Tracing.Exporter != "noop"
	}
	if v := os.Getenv("AMANSEARCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = strings.ToLower(v)
	}
	return nil
}

func envError(name, value string, err error) error {
	return amerrors.ConfigError(fmt.Sprintf("invalid %s=%q", name, value), err).
		WithDetail("env", name)
}

// Validate validates the configuration and returns a ConfigError if invalid.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch search.Mode(strings.ToLower(c.Search.DefaultMode)) {
	case search.ModeFast, search.ModeAuto, search.ModeDeep, search.ModeCode:
	default:
		add("search.default_mode must be fast, auto, deep or code, got %q", c.Search.DefaultMode)
	}
	if c.Search.MaxResults < 1 || c.Search.MaxResults > search.MaxMaxResults {
		add("search.max_results must be between 1 and %d, got %d", search.MaxMaxResults, c.Search.MaxResults)
	}
	if c.Search.ProviderTimeout <= 0 {
		add("search.provider_timeout must be positive, got %s", c.Search.ProviderTimeout)
	}
	for id, d := range c.Search.ProviderTimeouts {
		if d <= 0 {
			add("search.provider_timeouts.%s must be positive, got %s", id, d)
		}
	}
	if c.Search.SimilarityThreshold <= 0 || c.Search.SimilarityThreshold > 1 {
		add("search.similarity_threshold must be in (0, 1], got %g", c.Search.SimilarityThreshold)
	}
	for _, id := range sortedKeys(c.Search.ProviderWeights) {
		if w := c.Search.ProviderWeights[id]; w < 0 {
			add("search.provider_weights.%s must be non-negative, got %g", id, w)
		}
	}

	if len(c.Routing.Default) == 0 {
		add("routing.default must list at least one provider")
	}
	for _, mode := range sortedKeys(c.Routing.Modes) {
		if len(c.Routing.Modes[mode]) == 0 {
			add("routing.modes.%s must list at least one provider", mode)
		}
	}

	if !validEmbeddingsProvider(c.Embeddings.Provider) {
		add("embeddings.provider must be static, ollama, openai or none, got %q", c.Embeddings.Provider)
	}

	if c.Fetch.Timeout <= 0 {
		add("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.Concurrency < 1 {
		add("fetch.concurrency must be at least 1, got %d", c.Fetch.Concurrency)
	}

	if c.Cache.Enabled && (c.Cache.Size < 1 || c.Cache.TTL <= 0) {
		add("cache.size and cache.ttl must be positive when the cache is enabled")
	}
	if c.Breaker.MaxRetries < 0 {
		add("breaker.max_retries must be non-negative, got %d", c.Breaker.MaxRetries)
	}

	switch strings.ToLower(c.Tracing.Exporter) {
	case "", "noop", "stderr":
	case "file":
		if c.Tracing.Path == "" {
			add("tracing.path is required for the file exporter")
		}
	default:
		add("tracing.exporter must be noop, stderr or file, got %q", c.Tracing.Exporter)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		add("server.transport must be 'stdio', got %q", c.Server.Transport)
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		add("server.log_level must be debug, info, warn or error, got %q", c.Server.LogLevel)
	}

	if len(problems) == 0 {
		return nil
	}
	return amerrors.ConfigError("invalid configuration: "+strings.Join(problems, "; "), nil)
}

func validEmbeddingsProvider(p string) bool {
	switch strings.ToLower(p) {
	case "static", "ollama", "openai", "none":
		return true
	default:
		return false
	}
}

// EnabledProviders lists enabled provider ids, sorted.
func (c *Config) EnabledProviders() []string {
	var out []string
	for _, id := range KnownProviders() {
		if s, ok := c.Providers.ByID(id); ok && s.Enabled {
			out = append(out, id)
		}
	}
	return out
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	cp := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		if len(s) <= 8 {
			return "****"
		}
		return s[:4] + "****"
	}
	cp.Providers.Exa.APIKey = mask(c.Providers.Exa.APIKey)
	cp.Providers.ExaDeep.APIKey = mask(c.Providers.ExaDeep.APIKey)
	cp.Providers.Brave.APIKey = mask(c.Providers.Brave.APIKey)
	cp.Providers.SearXNG.APIKey = mask(c.Providers.SearXNG.APIKey)
	cp.Providers.DuckDuckGo.APIKey = mask(c.Providers.DuckDuckGo.APIKey)
	cp.Embeddings.APIKey = mask(c.Embeddings.APIKey)
	return &cp
}

// WriteYAML writes the configuration to a YAML file with owner-only
// permissions, since it may hold API keys.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return amerrors.InternalError("failed to marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return amerrors.New(amerrors.ErrCodeFilePermission, "failed to create config directory", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return amerrors.New(amerrors.ErrCodeFilePermission, "failed to write config file", err).
			WithDetail("path", path)
	}
	return nil
}

// MergeNewDefaults fills sections added after the file was written,
// returning the dotted names of fields it set.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Version < CurrentVersion {
		c.Version = CurrentVersion
		added = append(added, "version")
	}
	if c.Search.ProviderWeights == nil {
		c.Search.ProviderWeights = defaults.Search.ProviderWeights
		added = append(added, "search.provider_weights")
	}
	if c.Routing.Modes == nil {
		c.Routing.Modes = defaults.Routing.Modes
		added = append(added, "routing.modes")
	}
	if c.Routing.SearchTypes == nil {
		c.Routing.SearchTypes = defaults.Routing.SearchTypes
		added = append(added, "routing.search_types")
	}
	if len(c.Routing.Default) == 0 {
		c.Routing.Default = defaults.Routing.Default
		added = append(added, "routing.default")
	}
	if c.Fetch.Concurrency == 0 {
		c.Fetch.Concurrency = defaults.Fetch.Concurrency
		added = append(added, "fetch.concurrency")
	}
	if c.Breaker.MaxFailures == 0 {
		c.Breaker.MaxFailures = defaults.Breaker.MaxFailures
		added = append(added, "breaker.max_failures")
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = defaults.Tracing.Exporter
		added = append(added, "tracing.exporter")
	}
	return added
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
