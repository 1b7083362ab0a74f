package preflight

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Aman-CERP/amansearch/internal/config"
	"github.com/Aman-CERP/amansearch/internal/provider"
	"github.com/Aman-CERP/amansearch/pkg/searcher"
)

// CheckProviders builds the provider registry the way a search would and
// fails when nothing can serve a query.
func (c *Checker) CheckProviders(cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "providers",
		Required: true,
	}

	registry := provider.NewRegistry(searcher.ProviderConfig(cfg), discardLogger())

	var skipped []string
	for _, st := range registry.Statuses() {
		if !st.Available {
			skipped = append(skipped, fmt.Sprintf("%s (%s)", st.ID, st.Reason))
		}
	}
	result.Details = strings.Join(skipped, "; ")

	ids := registry.IDs()
	switch {
	case len(ids) == 0:
		result.Status = StatusFail
		result.Message = "no provider can be built"
		if result.Details == "" {
			result.Details = "Enable a provider or set EXA_API_KEY, BRAVE_API_KEY or SEARXNG_URL"
		}
	case len(skipped) > 0:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s ready, %d skipped", strings.Join(ids, ", "), len(skipped))
	default:
		result.Status = StatusPass
		result.Message = strings.Join(ids, ", ") + " ready"
	}
	return result
}

// CheckEndpoints probes the self-hosted endpoints the config points at.
// Hosted APIs are not probed because a probe would spend quota.
func (c *Checker) CheckEndpoints(ctx context.Context, cfg *config.Config) []CheckResult {
	if c.offline {
		return nil
	}

	var results []CheckResult
	if s := cfg.Providers.SearXNG; s.Enabled && s.BaseURL != "" {
		results = append(results, c.probe(ctx, "searxng_endpoint", strings.TrimRight(s.BaseURL, "/")+"/healthz"))
	}
	return results
}

// probe reports whether url answers with a non-error status.
func (c *Checker) probe(ctx context.Context, name, url string) CheckResult {
	result := CheckResult{
		Name:     name,
		Required: false,
		Details:  url,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("invalid URL: %v", err)
		return result
	}
	resp, err := c.client.Do(req)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("unreachable: %v", err)
		return result
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return result
	}
	result.Status = StatusPass
	result.Message = "reachable"
	return result
}
