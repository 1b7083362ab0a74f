package searcher

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Aman-CERP/amansearch/internal/cache"
	"github.com/Aman-CERP/amansearch/internal/config"
	"github.com/Aman-CERP/amansearch/internal/embed"
	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/fetch"
	"github.com/Aman-CERP/amansearch/internal/provider"
	"github.com/Aman-CERP/amansearch/internal/search"
	"github.com/Aman-CERP/amansearch/internal/telemetry"
)

// Request and Output are the pipeline's request and response types.
type (
	Request = search.SearchRequest
	Output  = search.SearchOutput
)

// Search modes accepted in Request.Mode.
const (
	ModeFast   = search.ModeFast
	ModeAuto   = search.ModeAuto
	ModeDeep   = search.ModeDeep
	ModeCode   = search.ModeCode
	ModeCustom = search.ModeCustom
)

// Option configures a Searcher.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	metrics    *telemetry.QueryMetrics
	providers  []search.SearchProvider
	httpClient *http.Client
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics shares a telemetry collector, so counts survive a rebuild
// after a config reload.
func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithProviders registers extra providers, replacing configured ones with
// the same id. They are not rate limited.
func WithProviders(ps ...search.SearchProvider) Option {
	return func(o *options) {
		o.providers = append(o.providers, ps...)
	}
}

// WithHTTPClient sets the client used for content enrichment.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// Searcher owns a fully wired search pipeline built from one config.
type Searcher struct {
	cfg          *config.Config
	logger       *slog.Logger
	registry     *provider.Registry
	embedder     embed.Embedder
	cache        *cache.ResultCache
	metrics      *telemetry.QueryMetrics
	orchestrator *search.Orchestrator

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// ErrClosed is returned by Search once Close has been called.
var ErrClosed = errors.New("searcher is closed")

// Status is a snapshot of the pipeline's collaborators.
type Status struct {
	Providers []provider.Status   `json:"providers"`
	Embedder  embed.Info          `json:"embedder"`
	Cache     CacheStatus         `json:"cache"`
	Routing   search.RoutingTable `json:"routing"`
}

// CacheStatus reports result cache occupancy and hit counts.
type CacheStatus struct {
	Enabled bool  `json:"enabled"`
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// New builds a Searcher. It fails only on configuration problems; a
// provider missing its API key is skipped and shown in Status.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Searcher, error) {
	if cfg == nil {
		return nil, amerrors.ConfigError("configuration is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = telemetry.NewQueryMetrics(telemetry.DefaultConfig())
	}

	s := &Searcher{
		cfg:     cfg,
		logger:  o.logger,
		metrics: o.metrics,
	}

	s.registry = provider.NewRegistry(ProviderConfig(cfg), o.logger)
	for _, p := range o.providers {
		s.registry.Register(p)
	}
	if s.registry.Len() == 0 {
		return nil, amerrors.NoProviders("no search providers could be built")
	}

	embedder, err := embed.NewEmbedder(ctx, EmbedConfig(cfg), o.logger)
	if err != nil {
		return nil, err
	}
	s.embedder = embedder

	fetchOpts := []fetch.Option{fetch.WithLogger(o.logger)}
	if o.httpClient != nil {
		fetchOpts = append(fetchOpts, fetch.WithHTTPClient(o.httpClient))
	}
	fetcher := fetch.New(FetchConfig(cfg), fetchOpts...)

	searchOpts := []search.Option{
		search.WithFetcher(fetcher),
		search.WithMetrics(o.metrics),
		search.WithLogger(o.logger),
	}
	if embedder != nil {
		searchOpts = append(searchOpts, search.WithEmbedder(embedder))
	}
	if cfg.Cache.Enabled {
		s.cache = cache.New(cfg.Cache.Size, cfg.Cache.TTL)
		searchOpts = append(searchOpts, search.WithCache(s.cache))
	}

	s.orchestrator, err = search.NewOrchestrator(s.registry, SearchConfig(cfg), searchOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.logger.Info("searcher_ready",
		slog.Any("providers", s.registry.IDs()),
		slog.Bool("semantic_dedup", embedder != nil),
		slog.Bool("cache", s.cache != nil))
	return s, nil
}

// NewRequest returns a request carrying the configured default mode and
// result count.
func (s *Searcher) NewRequest(query string) Request {
	req := search.NewSearchRequest(query)
	if m := search.ParseMode(s.cfg.Search.DefaultMode); m != "" {
		req.Mode = m
	}
	if s.cfg.Search.MaxResults > 0 {
		req.MaxResults = s.cfg.Search.MaxResults
	}
	return req
}

// Search runs one request through the pipeline.
func (s *Searcher) Search(ctx context.Context, req Request) (*Output, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	s.inflight.Add(1)
	s.mu.RUnlock()
	defer s.inflight.Done()

	return s.orchestrator.Search(ctx, req)
}

// Status reports provider availability, embedder state and cache counters.
func (s *Searcher) Status(ctx context.Context) Status {
	st := Status{
		Providers: s.registry.Statuses(),
		Embedder:  embed.GetInfo(ctx, s.embedder),
		Routing:   s.orchestrator.Router().Table(),
	}
	if s.cache != nil {
		st.Cache.Enabled = true
		st.Cache.Entries = s.cache.Len()
		st.Cache.Hits, st.Cache.Misses = s.cache.Stats()
	}
	return st
}

// Metrics returns the telemetry collector.
func (s *Searcher) Metrics() *telemetry.QueryMetrics {
	return s.metrics
}

// Config returns the configuration the Searcher was built from.
func (s *Searcher) Config() *config.Config {
	return s.cfg
}

// Close rejects new searches, waits for in-flight ones to finish, then
// releases the embedder. It is safe to call more than once.
func (s *Searcher) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.inflight.Wait()

		if s.embedder != nil {
			s.closeErr = s.embedder.Close()
		}
		if s.cache != nil {
			s.cache.Purge()
		}
	})
	return s.closeErr
}
