package search

import (
	"strings"
	"unicode"
)

// Language tags produced by the optimizer.
const (
	LanguageEnglish = "en"
	LanguageChinese = "zh"
)

// augmentation holds the terms appended per search type and language.
var augmentation = map[SearchType]map[string]string{
	SearchTypeCode: {
		LanguageEnglish: "code example",
		LanguageChinese: "代码示例",
	},
	SearchTypeDocumentation: {
		LanguageEnglish: "documentation",
		LanguageChinese: "文档",
	},
}

// QueryOptimizer rewrites a query before it is sent to providers.
type QueryOptimizer struct{}

// NewQueryOptimizer creates a query optimizer.
func NewQueryOptimizer() *QueryOptimizer {
	return &QueryOptimizer{}
}

// Optimize collapses whitespace and appends search-type hints. Words are
// never dropped, so "talk talk" stays as typed. It never fails; an unusable query comes back
// unchanged.
func (o *QueryOptimizer) Optimize(req SearchRequest) (string, OptimizationRecord) {
	rec := OptimizationRecord{
		OriginalQuery: req.Query,
		AddedTerms:    []string{},
		RemovedTerms:  []string{},
	}

	query := strings.Join(strings.Fields(req.Query), " ")

	rec.DetectedLanguage = DetectLanguage(query)

	if query == "" {
		rec.OptimizedQuery = req.Query
		return req.Query, rec
	}

	if terms, ok := augmentation[req.SearchType]; ok {
		term := terms[rec.DetectedLanguage]
		if term != "" && !strings.Contains(strings.ToLower(query), strings.ToLower(term)) {
			query = query + " " + term
			rec.AddedTerms = append(rec.AddedTerms, term)
		}
	}

	rec.OptimizedQuery = query
	return query, rec
}

// DetectLanguage returns "zh" when the text contains any CJK character
// (Han, Hiragana, Katakana or Hangul) and "en" otherwise.
func DetectLanguage(text string) string {
	for _, r := range text {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			return LanguageChinese
		}
	}
	return LanguageEnglish
}
