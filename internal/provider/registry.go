package provider

import (
	"log/slog"
	"sort"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/search"
)

// Config selects which providers to build. A nil entry leaves that
// provider disabled.
type Config struct {
	Exa        *ExaConfig
	ExaDeep    *ExaConfig
	Brave      *BraveConfig
	SearXNG    *SearXNGConfig
	DuckDuckGo *DuckDuckGoConfig

	// Guards holds per-provider guard settings; Default applies otherwise.
	Guards       map[string]GuardConfig
	DefaultGuard GuardConfig
	DisableGuard bool
}

// Status describes one provider for status output.
type Status struct {
	ID        string `json:"id"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Breaker   string `json:"breaker,omitempty"`
}

// Registry resolves provider ids to adapters built at startup.
type Registry struct {
	providers search.StaticRegistry
	skipped   map[string]string
}

// Ensure Registry implements search.ProviderRegistry.
var _ search.ProviderRegistry = (*Registry)(nil)

// NewRegistry builds every configured provider. Providers that fail to
// construct, typically for a missing API key, are skipped and reported
// through Statuses rather than failing the whole registry.
func NewRegistry(cfg Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		providers: search.StaticRegistry{},
		skipped:   map[string]string{},
	}

	add := func(id string, p search.SearchProvider, err error) {
		if err != nil {
			r.skipped[id] = amerrors.Message(err)
			logger.Warn("provider_skipped",
				slog.String("provider", id),
				slog.String("reason", amerrors.Message(err)))
			return
		}
		if !cfg.DisableGuard {
			guard, ok := cfg.Guards[id]
			if !ok {
				guard = cfg.DefaultGuard
			}
			p = NewGuarded(p, guard, logger)
		}
		r.providers[id] = p
		logger.Debug("provider_registered", slog.String("provider", id))
	}

	if cfg.Exa != nil {
		p, err := NewExa(*cfg.Exa)
		add(search.ProviderExa, p, err)
	}
	if cfg.ExaDeep != nil {
		p, err := NewExaDeep(*cfg.ExaDeep)
		add(search.ProviderExaDeep, p, err)
	}
	if cfg.Brave != nil {
		p, err := NewBrave(*cfg.Brave)
		add(search.ProviderBrave, p, err)
	}
	if cfg.SearXNG != nil {
		p, err := NewSearXNG(*cfg.SearXNG)
		add(search.ProviderSearXNG, p, err)
	}
	if cfg.DuckDuckGo != nil {
		add(search.ProviderDuckDuckGo, NewDuckDuckGo(*cfg.DuckDuckGo), nil)
	}
	return r
}

// Register adds or replaces a provider without guarding it.
func (r *Registry) Register(p search.SearchProvider) {
	r.providers[p.ID()] = p
	delete(r.skipped, p.ID())
}

// Get implements search.ProviderRegistry.
func (r *Registry) Get(id string) (search.SearchProvider, bool) {
	return r.providers.Get(id)
}

// IDs returns the registered provider ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered providers.
func (r *Registry) Len() int { return len(r.providers) }

// Statuses lists registered and skipped providers, sorted by id.
func (r *Registry) Statuses() []Status {
	out := make([]Status, 0, len(r.providers)+len(r.skipped))
	for id, p := range r.providers {
		st := Status{ID: id, Available: true}
		if g, ok := p.(*Guarded); ok {
			st.Breaker = g.State()
		}
		out = append(out, st)
	}
	for id, reason := range r.skipped {
		out = append(out, Status{ID: id, Reason: reason})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
