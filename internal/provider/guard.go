package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/search"
)

// Default breaker settings.
const (
	DefaultBreakerMaxFailures uint32 = 5
	DefaultBreakerOpenTimeout        = 30 * time.Second
	DefaultBreakerInterval           = 60 * time.Second
)

// GuardConfig configures rate limiting, circuit breaking and retries
// around one provider. Zero values select defaults; RequestsPerSecond
// of zero disables rate limiting.
type GuardConfig struct {
	RequestsPerSecond float64
	Burst             int
	MaxFailures       uint32
	OpenTimeout       time.Duration
	Interval          time.Duration
	Retry             *amerrors.RetryConfig
}

// Guarded wraps a provider with a token bucket, a circuit breaker and
// retry with backoff, in that order.
type Guarded struct {
	inner   search.SearchProvider
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]search.ProviderResult]
	retry   amerrors.RetryConfig
	logger  *slog.Logger
}

// Ensure Guarded implements search.SearchProvider.
var _ search.SearchProvider = (*Guarded)(nil)

// NewGuarded wraps inner. A nil logger uses slog.Default.
func NewGuarded(inner search.SearchProvider, cfg GuardConfig, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultBreakerMaxFailures
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = DefaultBreakerOpenTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultBreakerInterval
	}
	retry := amerrors.DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	breaker := gobreaker.NewCircuitBreaker[[]search.ProviderResult](gobreaker.Settings{
		Name:        "provider:" + inner.ID(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider_breaker_state_change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
		// Caller cancellation says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || isContextErr(err)
		},
	})

	return &Guarded{
		inner:   inner,
		limiter: limiter,
		breaker: breaker,
		retry:   retry,
		logger:  logger,
	}
}

// ID implements search.SearchProvider.
func (g *Guarded) ID() string { return g.inner.ID() }

// State reports the breaker state, for status output.
func (g *Guarded) State() string { return g.breaker.State().String() }

// Search implements search.SearchProvider.
func (g *Guarded) Search(ctx context.Context, query string, maxResults int, opts search.ProviderOptions) ([]search.ProviderResult, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, amerrors.New(amerrors.ErrCodeRateLimited, g.inner.ID()+" local rate limit exceeded", err).
				WithDetail(amerrors.DetailProviderID, g.inner.ID()).
				WithRetryable(false)
		}
	}

	return amerrors.RetryWithResult(ctx, g.retry, func() ([]search.ProviderResult, error) {
		results, err := g.breaker.Execute(func() ([]search.ProviderResult, error) {
			return g.inner.Search(ctx, query, maxResults, opts)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, amerrors.New(amerrors.ErrCodeCircuitOpen, "circuit open for "+g.inner.ID(), err).
				WithDetail(amerrors.DetailProviderID, g.inner.ID()).
				WithRetryable(false)
		}
		return results, err
	})
}
