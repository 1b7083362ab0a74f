package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_Sentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"wrapped deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), ErrCodeTimeout},
		{"tool not found", ErrToolNotFound, ErrCodeMethodNotFound},
		{"invalid params", ErrInvalidParams, ErrCodeInvalidParams},
		{"resource not found", ErrResourceNotFound, ErrCodeMethodNotFound},
		{"not ready", ErrNotReady, ErrCodeNoProviders},
		{"unknown", errors.New("boom"), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestMapError_AmanErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"no providers", amerrors.NoProviders("nothing configured"), ErrCodeNoProviders},
		{"unknown provider", amerrors.New(amerrors.ErrCodeUnknownProvider, "unknown engine bing", nil), ErrCodeNoProviders},
		{"config invalid", amerrors.ConfigError("bad config", nil), ErrCodeInternalError},
		{"network", amerrors.NetworkError("timeout", nil), ErrCodeTimeout},
		{"validation", amerrors.New(amerrors.ErrCodeQueryEmpty, "query is empty", nil), ErrCodeInvalidParams},
		{"search failed", amerrors.New(amerrors.ErrCodeSearchFailed, "pipeline broke", nil), ErrCodeSearchFailed},
		{"internal", amerrors.InternalError("oops", nil), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, MapError(tt.err).Code)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	// Given: an AmanError with a suggestion
	err := amerrors.NoProviders("no providers")

	// When: mapping
	got := MapError(err)

	// Then: the suggestion follows the message
	assert.Contains(t, got.Message, "no providers")
	assert.Contains(t, got.Message, "Configure at least one provider")
}

func TestMapError_PassesThroughMCPError(t *testing.T) {
	orig := NewInvalidParamsError("bad mode")

	got := MapError(fmt.Errorf("wrapped: %w", orig))

	assert.Same(t, orig, got)
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("nope")

	assert.Equal(t, "MCP error -32601: Tool 'nope' not found.", err.Error())
	assert.Equal(t, "MCP error -32601: Resource 'x://y' not found.", NewResourceNotFoundError("x://y").Error())
}
