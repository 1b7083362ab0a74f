package embed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

func TestNewEmbedder_StaticIsCachedByDefault(t *testing.T) {
	// Given: the static provider with default cache settings
	embedder, err := NewEmbedder(context.Background(), Config{Provider: ProviderStatic}, nil)

	// Then: a cached static embedder is returned
	require.NoError(t, err)
	cached, ok := embedder.(*CachedEmbedder)
	require.True(t, ok)
	assert.IsType(t, &StaticEmbedder{}, cached.Inner())
}

func TestNewEmbedder_NegativeCacheSizeDisablesCache(t *testing.T) {
	embedder, err := NewEmbedder(context.Background(), Config{Provider: ProviderStatic, CacheSize: -1}, nil)

	require.NoError(t, err)
	assert.IsType(t, &StaticEmbedder{}, embedder)
}

func TestNewEmbedder_NoneReturnsNil(t *testing.T) {
	embedder, err := NewEmbedder(context.Background(), Config{Provider: ProviderNone}, nil)

	require.NoError(t, err)
	assert.Nil(t, embedder)
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(context.Background(), Config{Provider: "mlx"}, nil)

	require.Error(t, err)
	assert.True(t, amerrors.IsConfigurationError(err))
}

func TestNewEmbedder_OllamaUnavailable(t *testing.T) {
	// Given: an Ollama host that refuses every request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	t.Run("without fallback fails", func(t *testing.T) {
		_, err := NewEmbedder(context.Background(), Config{Provider: ProviderOllama, Host: srv.URL}, nil)

		require.Error(t, err)
		assert.Equal(t, amerrors.ErrCodeEmbeddingFailed, amerrors.GetCode(err))
	})

	t.Run("with fallback degrades to static", func(t *testing.T) {
		embedder, err := NewEmbedder(context.Background(), Config{Provider: ProviderOllama, Host: srv.URL, Fallback: true}, nil)

		require.NoError(t, err)
		assert.Equal(t, "static", embedder.ModelName())
	})
}

func TestNewEmbedder_OpenAIMissingKeyFallsBack(t *testing.T) {
	_, err := NewEmbedder(context.Background(), Config{Provider: ProviderOpenAI}, nil)
	require.Error(t, err)
	assert.Equal(t, amerrors.ErrCodeMissingAPIKey, amerrors.GetCode(err))

	embedder, err := NewEmbedder(context.Background(), Config{Provider: ProviderOpenAI, Fallback: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderStatic, GetInfo(context.Background(), embedder).Provider)
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in   string
		want ProviderType
	}{
		{"", ProviderStatic},
		{"Static", ProviderStatic},
		{"ollama", ProviderOllama},
		{" OpenAI ", ProviderOpenAI},
		{"off", ProviderNone},
		{"mlx", ProviderType("mlx")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseProvider(tt.in))
		})
	}
}

func TestIsValidProvider(t *testing.T) {
	assert.True(t, IsValidProvider("openai"))
	assert.True(t, IsValidProvider("NONE"))
	assert.False(t, IsValidProvider("mlx"))
}

func TestGetInfo(t *testing.T) {
	embedder, err := NewEmbedder(context.Background(), Config{Provider: ProviderStatic}, nil)
	require.NoError(t, err)
	_, _ = embedder.Embed(context.Background(), "a")
	_, _ = embedder.Embed(context.Background(), "a")

	info := GetInfo(context.Background(), embedder)

	assert.Equal(t, ProviderStatic, info.Provider)
	assert.Equal(t, StaticDimensions, info.Dimensions)
	assert.True(t, info.Available)
	assert.Equal(t, int64(1), info.CacheHits)
	assert.Equal(t, int64(1), info.CacheMiss)

	assert.Equal(t, ProviderNone, GetInfo(context.Background(), nil).Provider)
}
