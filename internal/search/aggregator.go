package search

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Summary sizes.
const (
	topDomainCount     = 5
	themeCount         = 8
	recommendedCount   = 3
	minThemeFrequency  = 2
	coveragePerDomain  = 20.0
	highRelevanceScore = 80.0
	highAuthority      = 80.0
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all also am an and any are as at be
		because been before being below between both but by can could did do does doing down during each
		few for from further get got had has have having he her here hers how i if in into is it its itself
		just like make many may me more most much must my new no nor not now of off on once one only or other
		our out over own same she should so some such than that the their them then there these they this
		those through to too under until up use used using very via was way we were what when where which
		while who whom why will with would you your com www http https html`) {
		stopWords[w] = struct{}{}
	}
}

// dateLayouts are the absolute publish date formats the aggregator accepts.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	time.RFC1123,
	time.RFC1123Z,
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2006",
}

var relativeDate = regexp.MustCompile(`^\d+\s+(second|minute|hour|day|week|month|year)s?\s+ago$`)

// ResultAggregator derives a summary and quality metrics from ranked results.
type ResultAggregator struct{}

// NewResultAggregator creates an aggregator.
func NewResultAggregator() *ResultAggregator {
	return &ResultAggregator{}
}

// Aggregate is pure: equal inputs produce equal outputs.
func (a *ResultAggregator) Aggregate(results []MergedResult) (Summary, Quality) {
	summary := Summary{
		TopDomains:       topDomains(results),
		CommonThemes:     commonThemes(results),
		RecommendedLinks: recommend(results),
	}
	return summary, quality(results)
}

func topDomains(results []MergedResult) []DomainCount {
	counts := make(map[string]int)
	var order []string
	for _, r := range results {
		d := Domain(r.URL)
		if d == "" {
			continue
		}
		if counts[d] == 0 {
			order = append(order, d)
		}
		counts[d]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topDomainCount {
		order = order[:topDomainCount]
	}

	out := make([]DomainCount, 0, len(order))
	for _, d := range order {
		out = append(out, DomainCount{
			Domain:     d,
			Count:      counts[d],
			Percentage: round(float64(counts[d])/float64(len(results))*100, 1),
		})
	}
	return out
}

func commonThemes(results []MergedResult) []string {
	counts := make(map[string]int)
	var order []string
	for _, r := range results {
		for _, w := range contentWords(r.Title + " " + r.Snippet) {
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	themes := make([]string, 0, len(order))
	for _, w := range order {
		if counts[w] >= minThemeFrequency {
			themes = append(themes, w)
		}
	}
	sort.SliceStable(themes, func(i, j int) bool {
		return counts[themes[i]] > counts[themes[j]]
	})
	if len(themes) > themeCount {
		themes = themes[:themeCount]
	}
	return themes
}

// contentWords lowercases text and returns words of three or more
// letters or digits that are not stop words.
func contentWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if isNumber(f) {
			continue
		}
		words = append(words, f)
	}
	return words
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func recommend(results []MergedResult) []Recommendation {
	n := min(recommendedCount, len(results))
	out := make([]Recommendation, 0, n)
	for _, r := range results[:n] {
		out = append(out, Recommendation{
			Title:  r.Title,
			URL:    r.URL,
			Score:  round(r.RelevanceScore, 2),
			Reason: recommendationReason(r),
		})
	}
	return out
}

func recommendationReason(r MergedResult) string {
	var reasons []string
	if r.RelevanceScore >= highRelevanceScore {
		reasons = append(reasons, "high relevance score")
	}
	if r.AuthorityScore >= highAuthority {
		reasons = append(reasons, fmt.Sprintf("authoritative source (%s)", Domain(r.URL)))
	}
	if len(r.CodeSnippets) > 0 {
		reasons = append(reasons, "includes code examples")
	}
	if r.PublishDate != "" && ParsePublishDate(r.PublishDate) {
		reasons = append(reasons, "dated content")
	}
	if r.IsSecure {
		reasons = append(reasons, "secure connection")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("ranked #%d by %s", r.Rank, r.Source))
	}
	return strings.Join(reasons, "; ")
}

func quality(results []MergedResult) Quality {
	if len(results) == 0 {
		return Quality{}
	}
	var relevance, authority float64
	dated := 0
	domains := make(map[string]struct{})
	for _, r := range results {
		relevance += r.RelevanceScore
		authority += r.AuthorityScore
		if ParsePublishDate(r.PublishDate) {
			dated++
		}
		if d := Domain(r.URL); d != "" {
			domains[d] = struct{}{}
		}
	}
	n := float64(len(results))
	return Quality{
		AvgRelevance: round(relevance/n, 2),
		AvgAuthority: round(authority/n, 2),
		Coverage:     math.Min(100, float64(len(domains))*coveragePerDomain),
		Freshness:    round(float64(dated)/n*100, 2),
	}
}

// ParsePublishDate reports whether s is a date the aggregator understands:
// one of the common absolute layouts or a relative "N units ago" phrase.
func ParsePublishDate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return relativeDate.MatchString(strings.ToLower(s))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
