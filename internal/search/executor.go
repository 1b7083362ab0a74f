package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

// DefaultProviderTimeout bounds a single provider call.
const DefaultProviderTimeout = 10 * time.Second

// errProviderNotConfigured marks a routed id with no registered adapter.
var errProviderNotConfigured = errors.New("provider not configured")

// ExecutorOption configures the parallel executor.
type ExecutorOption func(*ParallelExecutor)

// WithProviderTimeout sets the default per-provider timeout.
func WithProviderTimeout(d time.Duration) ExecutorOption {
	return func(e *ParallelExecutor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithProviderTimeouts sets per-provider timeout overrides.
func WithProviderTimeouts(timeouts map[string]time.Duration) ExecutorOption {
	return func(e *ParallelExecutor) {
		for id, d := range timeouts {
			if d > 0 {
				e.overrides[id] = d
			}
		}
	}
}

// ParallelExecutor fans a query out to providers concurrently.
type ParallelExecutor struct {
	registry  ProviderRegistry
	timeout   time.Duration
	overrides map[string]time.Duration
}

// NewParallelExecutor creates an executor over the given registry.
func NewParallelExecutor(registry ProviderRegistry, opts ...ExecutorOption) *ParallelExecutor {
	e := &ParallelExecutor{
		registry:  registry,
		timeout:   DefaultProviderTimeout,
		overrides: make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// taskOutcome is the result of one provider task: either results or an error.
type taskOutcome struct {
	results []ProviderResult
	err     error
}

// Execute runs every provider concurrently. A failing provider never
// cancels its siblings; its error becomes a PartialFailure. Output order
// follows providerIDs, not completion order.
func (e *ParallelExecutor) Execute(ctx context.Context, query string, providerIDs []string, req SearchRequest) ([]ProviderResult, []PartialFailure) {
	outcomes := make([]taskOutcome, len(providerIDs))
	opts := ProviderOptions{
		Filters:    req.Filters,
		SearchType: req.SearchType,
		Mode:       req.Mode,
	}

	// Tasks always return nil so errgroup never cancels siblings.
	var g errgroup.Group
	for i, id := range providerIDs {
		g.Go(func() error {
			outcomes[i] = e.runOne(ctx, id, query, req.MaxResults, opts)
			return nil
		})
	}
	_ = g.Wait()

	var (
		results  []ProviderResult
		failures []PartialFailure
	)
	for i, id := range providerIDs {
		out := outcomes[i]
		if out.err != nil {
			failures = append(failures, PartialFailure{Provider: id, Error: describeFailure(out.err)})
			continue
		}
		results = append(results, out.results...)
	}
	return results, failures
}

func (e *ParallelExecutor) runOne(ctx context.Context, id, query string, maxResults int, opts ProviderOptions) taskOutcome {
	provider, ok := e.registry.Get(id)
	if !ok {
		return taskOutcome{err: errProviderNotConfigured}
	}

	timeout := e.timeout
	if d, ok := e.overrides[id]; ok {
		timeout = d
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The call runs in its own goroutine so a provider that ignores its
	// context still cannot hold the task past the deadline.
	done := make(chan taskOutcome, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("provider_panic",
					slog.String("provider", id),
					slog.String("panic", fmt.Sprint(r)))
				done <- taskOutcome{err: fmt.Errorf("provider panicked: %v", r)}
			}
		}()
		results, err := provider.Search(callCtx, query, maxResults, opts)
		done <- taskOutcome{results: results, err: err}
	}()

	var out taskOutcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		out = taskOutcome{err: callCtx.Err()}
	}
	elapsed := time.Since(start)
	results, err := out.results, out.err

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = amerrors.ProviderTimeout(id, err).WithDetail("timeout", timeout.String())
		}
		slog.Warn("provider_failed",
			slog.String("provider", id),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
		return taskOutcome{err: err}
	}

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	for i := range results {
		r := &results[i]
		r.Source = id
		if r.Rank <= 0 {
			r.Rank = i + 1
		}
		// The URL scheme is the only security signal; adapter values are overwritten.
		r.IsSecure = strings.HasPrefix(strings.ToLower(r.URL), "https://")
		if r.ResponseTime == 0 {
			r.ResponseTime = elapsed
		}
	}

	slog.Debug("provider_completed",
		slog.String("provider", id),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", elapsed))
	return taskOutcome{results: results}
}

// describeFailure renders an error for a PartialFailure entry.
func describeFailure(err error) string {
	var ae *amerrors.AmanError
	if !errors.As(err, &ae) {
		return err.Error()
	}
	if ae.Code == amerrors.ErrCodeProviderTimeout {
		return "timed out after " + ae.Details["timeout"]
	}
	return ae.Message
}
