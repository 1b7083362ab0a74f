package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/tracing"
)

// Stage is a step of the orchestration state machine.
type Stage int

const (
	StageOptimizing Stage = iota
	StageRouting
	StageSearching
	StageDeduping
	StageRanking
	StageEnriching
	StageAggregating
	StageDone
)

var stageNames = [...]string{
	"optimizing", "routing", "searching", "deduping",
	"ranking", "enriching", "aggregating", "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Config tunes the pipeline. The zero value of any field means its default.
type Config struct {
	Routing             RoutingTable
	ProviderTimeout     time.Duration
	ProviderTimeouts    map[string]time.Duration
	SimilarityThreshold float64
	ProviderWeights     map[string]float64
	EnrichConcurrency   int
	FetchTimeout        time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Routing:             DefaultRoutingTable(),
		ProviderTimeout:     DefaultProviderTimeout,
		SimilarityThreshold: DefaultSimilarityThreshold,
		ProviderWeights:     DefaultProviderWeights(),
		EnrichConcurrency:   DefaultEnrichConcurrency,
		FetchTimeout:        DefaultFetchTimeout,
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEmbedder enables semantic deduplication.
func WithEmbedder(e Embedder) Option {
	return func(o *Orchestrator) {
		o.embedder = e
	}
}

// WithFetcher enables content enrichment.
func WithFetcher(f ContentFetcher) Option {
	return func(o *Orchestrator) {
		o.fetcher = f
	}
}

// WithCache sets the result cache. Without one every call reaches providers.
func WithCache(c ResultCache) Option {
	return func(o *Orchestrator) {
		o.cache = c
	}
}

// WithMetrics sets a telemetry recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// Orchestrator runs the full search pipeline for one request at a time;
// concurrent calls share only the cache and the injected collaborators.
type Orchestrator struct {
	registry   ProviderRegistry
	embedder   Embedder
	fetcher    ContentFetcher
	cache      ResultCache
	metrics    MetricsRecorder
	logger     *slog.Logger
	optimizer  *QueryOptimizer
	router     *EngineRouter
	executor   *ParallelExecutor
	dedup      *Deduplicator
	ranker     *RelevanceRanker
	enricher   *ContentEnricher
	aggregator *ResultAggregator
}

// NewOrchestrator wires the pipeline stages over a provider registry.
func NewOrchestrator(registry ProviderRegistry, cfg Config, opts ...Option) (*Orchestrator, error) {
	if registry == nil {
		return nil, amerrors.ConfigError("provider registry is required", nil)
	}

	o := &Orchestrator{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	routing := cfg.Routing
	if len(routing.Modes) == 0 && len(routing.SearchTypes) == 0 && len(routing.Default) == 0 {
		routing = DefaultRoutingTable()
	}

	o.optimizer = NewQueryOptimizer()
	o.router = NewEngineRouter(routing)
	o.executor = NewParallelExecutor(registry,
		WithProviderTimeout(cfg.ProviderTimeout),
		WithProviderTimeouts(cfg.ProviderTimeouts))
	o.dedup = NewDeduplicator(o.embedder, cfg.SimilarityThreshold)
	o.ranker = NewRelevanceRanker(cfg.ProviderWeights)
	o.aggregator = NewResultAggregator()
	if o.fetcher != nil {
		o.enricher = NewContentEnricher(o.fetcher, cfg.EnrichConcurrency, cfg.FetchTimeout)
	}
	return o, nil
}

// Router exposes the engine router for status reporting.
func (o *Orchestrator) Router() *EngineRouter {
	return o.router
}

// Search executes one request. The only errors returned are a validation
// error for an empty query and a configuration error when no provider can
// be resolved; every provider, fetch or embedding failure is reported in
// the output instead.
func (o *Orchestrator) Search(ctx context.Context, req SearchRequest) (*SearchOutput, error) {
	start := time.Now()
	req = req.Normalize()
	if req.Query == "" {
		return nil, amerrors.New(amerrors.ErrCodeQueryEmpty, "query is empty", nil).
			WithSuggestion("Provide a non-empty search query")
	}

	ctx, span := tracing.StartSpan(ctx, "search.orchestrate",
		attribute.String("mode", string(req.Mode)),
		attribute.String("search_type", string(req.SearchType)),
		attribute.Int("max_results", req.MaxResults))
	defer span.End()

	o.stage(StageOptimizing, req.Query)
	query, record := o.optimizer.Optimize(req)

	o.stage(StageRouting, query)
	engines := o.router.Route(req)
	if err := o.checkResolvable(engines); err != nil {
		tracing.RecordError(span, err)
		o.logger.Error("search_failed",
			slog.String("query", req.Query),
			slog.String("error", err.Error()))
		return nil, err
	}

	key := CacheKey(req)
	if o.cache != nil {
		if cached, ok := o.cache.Get(key); ok {
			out := cached.Clone()
			out.Cached = true
			out.SearchTimeMs = time.Since(start).Milliseconds()
			span.SetAttributes(attribute.Bool("cache_hit", true))
			tracing.SetOK(span)
			o.record(req, out, true, time.Since(start))
			return out, nil
		}
	}

	o.stage(StageSearching, query)
	raw, failures := o.runStage(ctx, "search.execute", func(ctx context.Context) ([]ProviderResult, []PartialFailure) {
		return o.executor.Execute(ctx, query, engines, req)
	})
	raw = FilterSites(raw, req.Filters)

	merged := make([]MergedResult, len(raw))
	for i, r := range raw {
		merged[i] = MergedResult{ProviderResult: r}
	}

	o.stage(StageDeduping, query)
	semantic := req.Deduplicate && req.SemanticSearch
	{
		dctx, dspan := tracing.StartSpan(ctx, "search.dedupe", attribute.Int("input", len(merged)))
		merged = o.dedup.Dedupe(dctx, merged, semantic)
		dspan.SetAttributes(attribute.Int("output", len(merged)))
		dspan.End()
	}

	o.stage(StageRanking, query)
	merged = o.ranker.Rank(merged, query)
	if len(merged) > req.MaxResults {
		merged = merged[:req.MaxResults]
	}

	if req.FetchFullContent && o.enricher != nil && len(merged) > 0 {
		o.stage(StageEnriching, query)
		ectx, espan := tracing.StartSpan(ctx, "search.enrich", attribute.Int("results", len(merged)))
		merged = o.enricher.Enrich(ectx, merged)
		espan.End()
	}

	o.stage(StageAggregating, query)
	summary, quality := o.aggregator.Aggregate(merged)

	out := &SearchOutput{
		Query:             query,
		TotalResults:      len(merged),
		SearchTimeMs:      time.Since(start).Milliseconds(),
		EnginesUsed:       engines,
		Results:           merged,
		Summary:           summary,
		Quality:           quality,
		PartialFailures:   failures,
		QueryOptimization: record,
	}
	o.stage(StageDone, query)

	if o.cache != nil && out.Success() {
		o.cache.Set(key, out.Clone())
	}

	span.SetAttributes(
		attribute.Int("results", out.TotalResults),
		attribute.Int("failures", len(failures)))
	if out.Success() {
		tracing.SetOK(span)
	} else {
		tracing.RecordError(span, fmt.Errorf("search produced no usable results"))
	}

	o.logger.Info("search_completed",
		slog.String("query", query),
		slog.Int("results", out.TotalResults),
		slog.Int("failures", len(failures)),
		slog.Bool("success", out.Success()),
		slog.Int64("elapsed_ms", out.SearchTimeMs))
	o.record(req, out, false, time.Since(start))
	return out, nil
}

func (o *Orchestrator) runStage(ctx context.Context, name string, fn func(context.Context) ([]ProviderResult, []PartialFailure)) ([]ProviderResult, []PartialFailure) {
	sctx, span := tracing.StartSpan(ctx, name)
	defer span.End()
	results, failures := fn(sctx)
	span.SetAttributes(
		attribute.Int("results", len(results)),
		attribute.Int("failures", len(failures)))
	return results, failures
}

// checkResolvable fails when routing produced nothing any registered
// adapter can serve.
func (o *Orchestrator) checkResolvable(engines []string) error {
	if len(engines) == 0 {
		return amerrors.NoProviders("routing resolved no providers")
	}
	for _, id := range engines {
		if _, ok := o.registry.Get(id); ok {
			return nil
		}
	}
	return amerrors.NoProviders("no configured provider among: "+strings.Join(engines, ", ")).
		WithDetail("engines", strings.Join(engines, ","))
}

func (o *Orchestrator) stage(s Stage, query string) {
	o.logger.Debug("search_stage",
		slog.String("stage", s.String()),
		slog.String("query", query))
}

func (o *Orchestrator) record(req SearchRequest, out *SearchOutput, cacheHit bool, latency time.Duration) {
	if o.metrics == nil {
		return
	}
	failed := make([]string, 0, len(out.PartialFailures))
	for _, f := range out.PartialFailures {
		failed = append(failed, f.Provider)
	}
	o.metrics.RecordSearch(SearchEvent{
		Query:         req.Query,
		Mode:          req.Mode,
		ResultCount:   out.TotalResults,
		Latency:       latency,
		EnginesUsed:   out.EnginesUsed,
		FailedEngines: failed,
		CacheHit:      cacheHit,
		Success:       out.Success(),
	})
}

// CacheKey fingerprints everything in a request that can change its output.
// The query is compared case-insensitively with whitespace collapsed.
func CacheKey(req SearchRequest) string {
	req = req.Normalize()
	parts := []string{
		strings.ToLower(strings.Join(strings.Fields(req.Query), " ")),
		string(req.Mode),
		string(req.SearchType),
		strings.Join(req.Engines, ","),
		strconv.Itoa(req.MaxResults),
		strconv.FormatBool(req.FetchFullContent),
		strconv.FormatBool(req.Deduplicate),
		strconv.FormatBool(req.SemanticSearch),
		req.Filters.Language,
		req.Filters.Region,
		req.Filters.TimeRange,
		strings.Join(req.Filters.IncludeSites, ","),
		strings.Join(req.Filters.ExcludeSites, ","),
	}
	return strconv.FormatUint(xxhash.Sum64String(strings.Join(parts, "\x00")), 16)
}

// FilterSites applies the include and exclude site lists. A site matches
// its own domain and any subdomain.
func FilterSites(results []ProviderResult, f Filters) []ProviderResult {
	if len(f.IncludeSites) == 0 && len(f.ExcludeSites) == 0 {
		return results
	}
	out := results[:0:0]
	for _, r := range results {
		d := Domain(r.URL)
		if len(f.IncludeSites) > 0 && !matchesAnySite(d, f.IncludeSites) {
			continue
		}
		if matchesAnySite(d, f.ExcludeSites) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesAnySite(domain string, sites []string) bool {
	for _, s := range sites {
		s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "www.")
		if s == "" {
			continue
		}
		if domain == s || strings.HasSuffix(domain, "."+s) {
			return true
		}
	}
	return false
}
