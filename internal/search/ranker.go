package search

import (
	"net/url"
	"sort"
	"strings"
)

// Ranking constants.
const (
	DefaultBaseRelevance  = 50.0
	DefaultProviderWeight = 0.8
	rankPenalty           = 5.0
	authorityFactor       = 0.2
	secureBonus           = 5.0
)

// DefaultProviderWeights returns the built-in per-provider multipliers.
func DefaultProviderWeights() map[string]float64 {
	return map[string]float64{
		ProviderExa:        1.0,
		ProviderExaDeep:    1.0,
		ProviderBrave:      0.9,
		ProviderSearXNG:    0.8,
		ProviderDuckDuckGo: 0.7,
	}
}

// knownAuthority scores well-known hosts. Subdomains inherit the score.
var knownAuthority = map[string]float64{
	"github.com":            90,
	"stackoverflow.com":     85,
	"developer.mozilla.org": 95,
	"wikipedia.org":         85,
	"go.dev":                95,
	"pkg.go.dev":            95,
	"python.org":            90,
	"docs.python.org":       95,
	"rust-lang.org":         90,
	"microsoft.com":         85,
	"learn.microsoft.com":   90,
	"medium.com":            60,
	"dev.to":                60,
	"reddit.com":            55,
	"arxiv.org":             90,
	"npmjs.com":             80,
}

// tldAuthority scores hosts by top-level domain when not listed above.
var tldAuthority = map[string]float64{
	"gov": 90,
	"edu": 85,
	"org": 65,
	"dev": 60,
	"io":  55,
	"com": 50,
}

// RelevanceRanker scores and orders merged results.
type RelevanceRanker struct {
	weights map[string]float64
}

// NewRelevanceRanker creates a ranker. Missing providers use
// DefaultProviderWeight; nil weights use DefaultProviderWeights.
func NewRelevanceRanker(weights map[string]float64) *RelevanceRanker {
	if weights == nil {
		weights = DefaultProviderWeights()
	}
	return &RelevanceRanker{weights: weights}
}

// Weight returns the multiplier applied to a provider's base relevance.
func (r *RelevanceRanker) Weight(providerID string) float64 {
	if w, ok := r.weights[providerID]; ok {
		return w
	}
	return DefaultProviderWeight
}

// Score computes the clamped composite relevance of one result.
func (r *RelevanceRanker) Score(res MergedResult) float64 {
	base := res.BaseRelevance
	if base <= 0 {
		base = DefaultBaseRelevance
	}
	score := base * r.Weight(res.Source)
	score += max(0, 100-float64(res.Rank)*rankPenalty)
	score += res.AuthorityScore * authorityFactor
	if res.IsSecure {
		score += secureBonus
	}
	return clamp(score, 0, 100)
}

// Rank fills missing authority, scores every result and sorts by score
// descending. Ties keep their input order. The query is accepted for
// scorers that weigh term overlap; the composite formula does not.
func (r *RelevanceRanker) Rank(results []MergedResult, _ string) []MergedResult {
	out := make([]MergedResult, len(results))
	copy(out, results)
	for i := range out {
		if out[i].AuthorityScore <= 0 {
			out[i].AuthorityScore = DomainAuthority(out[i].URL)
		}
		out[i].RelevanceScore = r.Score(out[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	return out
}

// DomainAuthority estimates a 0-100 authority score for a URL's host.
func DomainAuthority(rawURL string) float64 {
	host := Domain(rawURL)
	if host == "" {
		return 0
	}
	for h := host; h != ""; {
		if score, ok := knownAuthority[h]; ok {
			return score
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			break
		}
		h = h[i+1:]
	}
	if i := strings.LastIndexByte(host, '.'); i >= 0 {
		if score, ok := tldAuthority[host[i+1:]]; ok {
			return score
		}
	}
	return 40
}

// Domain returns the lowercase host of rawURL without a "www." prefix.
func Domain(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
