// Package provider contains the web search backends behind the
// search.SearchProvider interface and the registry that resolves them.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/pkg/version"
)

const (
	// maxResponseBytes caps how much of a provider response is read.
	maxResponseBytes = 2 << 20

	// DefaultHTTPTimeout is the client-level timeout; the executor's
	// per-provider context deadline is usually shorter.
	DefaultHTTPTimeout = 20 * time.Second
)

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postJSON sends payload as JSON and returns the response body.
func postJSON(ctx context.Context, client *http.Client, providerID, endpoint string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, amerrors.InternalError("encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, amerrors.ProviderFailed(providerID, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(client, providerID, req, headers)
}

// getBody issues a GET and returns the response body.
func getBody(ctx context.Context, client *http.Client, providerID, endpoint string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, amerrors.ProviderFailed(providerID, "build request", err)
	}
	return do(client, providerID, req, headers)
}

// do executes req and classifies failures: 429 and 5xx are retryable,
// other non-2xx statuses are not, transport errors are retryable unless
// the context ended.
func do(client *http.Client, providerID string, req *http.Request, headers map[string]string) ([]byte, error) {
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, amerrors.New(amerrors.ErrCodeNetworkUnavailable, fmt.Sprintf("%s request failed", providerID), err).
			WithDetail(amerrors.DetailProviderID, providerID)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, amerrors.ProviderFailed(providerID, "read response", err).WithRetryable(true)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, amerrors.New(amerrors.ErrCodeRateLimited, fmt.Sprintf("%s rate limited", providerID), nil).
			WithDetail(amerrors.DetailProviderID, providerID).
			WithDetail(amerrors.DetailStatus, "429")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, amerrors.ProviderFailed(providerID, fmt.Sprintf("http %d: unauthorized", resp.StatusCode), nil).
			WithDetail(amerrors.DetailStatus, fmt.Sprint(resp.StatusCode)).
			WithSuggestion("Check the API key configured for " + providerID)
	default:
		return nil, amerrors.ProviderFailed(providerID, fmt.Sprintf("http %d: %s", resp.StatusCode, truncate(string(data), 200)), nil).
			WithDetail(amerrors.DetailStatus, fmt.Sprint(resp.StatusCode)).
			WithRetryable(resp.StatusCode >= 500)
	}
}

func decodeJSON(providerID string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return amerrors.ProviderFailed(providerID, "parse response", err)
	}
	return nil
}

// resolveEndpoint joins baseURL and path unless baseURL already has a path.
func resolveEndpoint(baseURL, path string) string {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return strings.TrimRight(trimmed, "/") + path
	}
	return trimmed
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "..."
}

// isContextErr reports whether err is a cancellation or deadline.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
