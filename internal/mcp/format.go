package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/amansearch/internal/search"
)

// MaxContentExcerpt bounds how much fetched page content is inlined per result.
const MaxContentExcerpt = 1500

// FormatSearchResults formats a search output as markdown.
func FormatSearchResults(out *search.SearchOutput) string {
	if out == nil {
		return "No results."
	}
	if len(out.Results) == 0 {
		return formatEmpty(out)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", out.Query)
	writeHeader(&sb, out)

	for i, r := range out.Results {
		formatResult(&sb, i+1, r, false)
	}
	writeSummary(&sb, out)
	return sb.String()
}

// FormatCodeResults formats a code search output, leading with extracted
// code blocks when pages were fetched.
func FormatCodeResults(out *search.SearchOutput, language string) string {
	if out == nil {
		return "No results."
	}
	if len(out.Results) == 0 {
		msg := formatEmpty(out)
		if language != "" {
			msg += fmt.Sprintf("\n\nLanguage: `%s`", language)
		}
		return msg
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Code Search Results for \"%s\"\n\n", out.Query)
	if language != "" {
		fmt.Fprintf(&sb, "Language: `%s`\n\n", language)
	}
	writeHeader(&sb, out)

	for i, r := range out.Results {
		formatResult(&sb, i+1, r, true)
	}
	return sb.String()
}

func formatEmpty(out *search.SearchOutput) string {
	msg := fmt.Sprintf("No results found for \"%s\"", out.Query)
	if len(out.PartialFailures) > 0 {
		msg += "\n\n" + formatFailures(out.PartialFailures)
	}
	return msg
}

func writeHeader(sb *strings.Builder, out *search.SearchOutput) {
	fmt.Fprintf(sb, "Found %d result", len(out.Results))
	if len(out.Results) != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(sb, " from %s in %dms", strings.Join(out.EnginesUsed, ", "), out.SearchTimeMs)
	if out.Cached {
		sb.WriteString(" (cached)")
	}
	sb.WriteString("\n\n")

	if q := out.QueryOptimization; q.OptimizedQuery != "" && q.OptimizedQuery != q.OriginalQuery {
		fmt.Fprintf(sb, "Query rewritten to `%s`\n\n", q.OptimizedQuery)
	}
	if len(out.PartialFailures) > 0 {
		sb.WriteString(formatFailures(out.PartialFailures))
		sb.WriteString("\n\n")
	}
}

func formatFailures(failures []search.PartialFailure) string {
	parts := make([]string, len(failures))
	for i, f := range failures {
		parts[i] = fmt.Sprintf("%s (%s)", f.Provider, f.Error)
	}
	return "**Unavailable providers:** " + strings.Join(parts, "; ")
}

func formatResult(sb *strings.Builder, num int, r search.MergedResult, codeFirst bool) {
	fmt.Fprintf(sb, "### %d. [%s](%s)\n", num, r.Title, r.URL)
	fmt.Fprintf(sb, "*%s, score %.1f", r.Source, r.RelevanceScore)
	if r.PublishDate != "" {
		fmt.Fprintf(sb, ", %s", r.PublishDate)
	}
	sb.WriteString("*\n\n")

	if r.Snippet != "" {
		sb.WriteString(r.Snippet)
		sb.WriteString("\n\n")
	}

	for _, c := range r.CodeSnippets {
		fmt.Fprintf(sb, "```%s\n%s\n```\n\n", c.Language, c.Code)
	}

	if r.FullContent != nil && !(codeFirst && len(r.CodeSnippets) > 0) {
		sb.WriteString("<details><summary>Page content</summary>\n\n")
		sb.WriteString(truncate(*r.FullContent, MaxContentExcerpt))
		sb.WriteString("\n\n</details>\n\n")
	}
}

func writeSummary(sb *strings.Builder, out *search.SearchOutput) {
	s := out.Summary
	if len(s.TopDomains) == 0 && len(s.CommonThemes) == 0 {
		return
	}
	sb.WriteString("---\n\n")
	if len(s.TopDomains) > 0 {
		domains := make([]string, len(s.TopDomains))
		for i, d := range s.TopDomains {
			domains[i] = fmt.Sprintf("%s (%d)", d.Domain, d.Count)
		}
		fmt.Fprintf(sb, "**Top domains:** %s\n\n", strings.Join(domains, ", "))
	}
	if len(s.CommonThemes) > 0 {
		fmt.Fprintf(sb, "**Themes:** %s\n\n", strings.Join(s.CommonThemes, ", "))
	}
	q := out.Quality
	fmt.Fprintf(sb, "**Quality:** relevance %.0f, authority %.0f, coverage %.0f, freshness %.0f\n",
		q.AvgRelevance, q.AvgAuthority, q.Coverage, q.Freshness)
}

// truncate cuts s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
