package search

// Provider ids known to the default routing tables.
const (
	ProviderExa        = "exa"
	ProviderExaDeep    = "exa_deep"
	ProviderBrave      = "brave"
	ProviderSearXNG    = "searxng"
	ProviderDuckDuckGo = "duckduckgo"
)

// RoutingTable maps modes and search types to ordered provider ids.
type RoutingTable struct {
	Modes       map[Mode][]string
	SearchTypes map[SearchType][]string
	Default     []string
}

// DefaultRoutingTable returns the built-in routing.
func DefaultRoutingTable() RoutingTable {
	return RoutingTable{
		Modes: map[Mode][]string{
			ModeFast: {ProviderExa, ProviderDuckDuckGo},
			ModeAuto: {ProviderExa, ProviderBrave, ProviderDuckDuckGo},
			ModeDeep: {ProviderExaDeep, ProviderSearXNG, ProviderBrave},
			ModeCode: {ProviderExa, ProviderSearXNG},
		},
		SearchTypes: map[SearchType][]string{
			SearchTypeCode: {ProviderExa, ProviderSearXNG},
			SearchTypeNews: {ProviderBrave, ProviderSearXNG},
		},
		Default: []string{ProviderExa, ProviderDuckDuckGo},
	}
}

// EngineRouter picks which providers serve a request.
type EngineRouter struct {
	table RoutingTable
}

// NewEngineRouter creates a router over the given table.
func NewEngineRouter(table RoutingTable) *EngineRouter {
	return &EngineRouter{table: table}
}

// Route returns provider ids in execution order. An explicit engine list
// wins verbatim; a search-type entry overrides the mode; anything
// unresolved falls back to the default set.
func (r *EngineRouter) Route(req SearchRequest) []string {
	if len(req.Engines) > 0 {
		return append([]string(nil), req.Engines...)
	}
	if ids := r.table.SearchTypes[req.SearchType]; len(ids) > 0 {
		return append([]string(nil), ids...)
	}
	if ids := r.table.Modes[req.Mode]; len(ids) > 0 {
		return append([]string(nil), ids...)
	}
	return append([]string(nil), r.table.Default...)
}

// Table returns the routing table in use.
func (r *EngineRouter) Table() RoutingTable {
	return r.table
}
