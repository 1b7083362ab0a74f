package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amansearch/internal/search"
)

func TestNewRegistry_SkipsMisconfiguredProviders(t *testing.T) {
	// Given: exa with a key, brave without, searxng disabled
	reg := NewRegistry(Config{
		Exa:        &ExaConfig{APIKey: "k"},
		ExaDeep:    &ExaConfig{APIKey: "k"},
		Brave:      &BraveConfig{},
		DuckDuckGo: &DuckDuckGoConfig{},
	}, nil)

	// Then: usable providers are registered and guarded
	assert.Equal(t, []string{"duckduckgo", "exa", "exa_deep"}, reg.IDs())
	p, ok := reg.Get(search.ProviderExa)
	require.True(t, ok)
	assert.IsType(t, &Guarded{}, p)
	assert.Equal(t, search.ProviderExa, p.ID())

	_, ok = reg.Get(search.ProviderBrave)
	assert.False(t, ok)

	// And: the skipped provider is reported with a reason
	statuses := reg.Statuses()
	require.Len(t, statuses, 4)
	assert.Equal(t, "brave", statuses[0].ID)
	assert.False(t, statuses[0].Available)
	assert.Contains(t, statuses[0].Reason, "API key")
	assert.Equal(t, "closed", statuses[1].Breaker)
}

func TestNewRegistry_DisableGuard(t *testing.T) {
	reg := NewRegistry(Config{DuckDuckGo: &DuckDuckGoConfig{}, DisableGuard: true}, nil)

	p, ok := reg.Get(search.ProviderDuckDuckGo)
	require.True(t, ok)
	assert.IsType(t, &DuckDuckGo{}, p)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry(Config{Brave: &BraveConfig{}}, nil)

	reg.Register(&stubProvider{id: search.ProviderBrave})

	_, ok := reg.Get(search.ProviderBrave)
	assert.True(t, ok)
	assert.Len(t, reg.Statuses(), 1)
}
