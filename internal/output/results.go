package output

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/amansearch/internal/provider"
	"github.com/Aman-CERP/amansearch/internal/search"
)

// Result output formats.
const (
	FormatText     = "text"
	FormatCompact  = "compact"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Formats lists the accepted result formats.
func Formats() []string {
	return []string{FormatText, FormatJSON, FormatMarkdown, FormatCompact}
}

// ValidFormat reports whether f is an accepted result format.
func ValidFormat(f string) bool {
	for _, known := range Formats() {
		if f == known {
			return true
		}
	}
	return false
}

// SearchText renders a search output for reading in a terminal.
func (w *Writer) SearchText(out *search.SearchOutput) {
	if out == nil {
		return
	}
	header := fmt.Sprintf("%d results for %q from %s in %dms",
		len(out.Results), out.Query, strings.Join(out.EnginesUsed, ", "), out.SearchTimeMs)
	if out.Cached {
		header += " (cached)"
	}
	_, _ = fmt.Fprintln(w.out, w.paint(colorBold, header))
	w.failures(out.PartialFailures)
	_, _ = fmt.Fprintln(w.out)

	for i, r := range out.Results {
		_, _ = fmt.Fprintf(w.out, "%2d. %s\n", i+1, w.paint(colorBold, r.Title))
		_, _ = fmt.Fprintf(w.out, "    %s\n", w.paint(colorCyan, r.URL))
		meta := fmt.Sprintf("%s  score %.1f", r.Source, r.RelevanceScore)
		if r.PublishDate != "" {
			meta += "  " + r.PublishDate
		}
		_, _ = fmt.Fprintf(w.out, "    %s\n", w.paint(colorDim, meta))
		if r.Snippet != "" {
			_, _ = fmt.Fprintf(w.out, "    %s\n", r.Snippet)
		}
		for _, c := range r.CodeSnippets {
			_, _ = fmt.Fprintf(w.out, "    [%s]\n", c.Language)
			for _, line := range strings.Split(c.Code, "\n") {
				_, _ = fmt.Fprintf(w.out, "      %s\n", line)
			}
		}
		_, _ = fmt.Fprintln(w.out)
	}

	if len(out.Summary.TopDomains) > 0 {
		domains := make([]string, len(out.Summary.TopDomains))
		for i, d := range out.Summary.TopDomains {
			domains[i] = fmt.Sprintf("%s (%.0f%%)", d.Domain, d.Percentage)
		}
		_, _ = fmt.Fprintf(w.out, "Top domains: %s\n", strings.Join(domains, ", "))
	}
	if len(out.Summary.CommonThemes) > 0 {
		_, _ = fmt.Fprintf(w.out, "Themes: %s\n", strings.Join(out.Summary.CommonThemes, ", "))
	}
}

// SearchCompact renders one line per result: rank, score and URL.
func (w *Writer) SearchCompact(out *search.SearchOutput) {
	if out == nil {
		return
	}
	for i, r := range out.Results {
		_, _ = fmt.Fprintf(w.out, "%d\t%.1f\t%s\t%s\n", i+1, r.RelevanceScore, r.URL, r.Title)
	}
}

func (w *Writer) failures(failures []search.PartialFailure) {
	for _, f := range failures {
		w.Warningf("%s: %s", f.Provider, f.Error)
	}
}

// Providers renders provider availability as an aligned table.
func (w *Writer) Providers(statuses []provider.Status) {
	_, _ = fmt.Fprintf(w.out, "%-12s %-10s %-10s %s\n", "PROVIDER", "STATUS", "BREAKER", "DETAIL")
	for _, st := range statuses {
		state := w.paint(colorGreen, fmt.Sprintf("%-10s", "ready"))
		if !st.Available {
			state = w.paint(colorRed, fmt.Sprintf("%-10s", "skipped"))
		}
		breaker := st.Breaker
		if breaker == "" {
			breaker = "-"
		}
		_, _ = fmt.Fprintf(w.out, "%-12s %s %-10s %s\n", st.ID, state, breaker, st.Reason)
	}
}

// Routing renders the routing table, one line per mode and search type.
func (w *Writer) Routing(table search.RoutingTable) {
	modes := []search.Mode{search.ModeFast, search.ModeAuto, search.ModeDeep, search.ModeCode}
	for _, m := range modes {
		if ids := table.Modes[m]; len(ids) > 0 {
			_, _ = fmt.Fprintf(w.out, "  mode %-14s %s\n", m, strings.Join(ids, ", "))
		}
	}
	types := []search.SearchType{
		search.SearchTypeGeneral, search.SearchTypeCode, search.SearchTypeDocumentation,
		search.SearchTypeNews, search.SearchTypeAcademic,
	}
	for _, st := range types {
		if ids := table.SearchTypes[st]; len(ids) > 0 {
			_, _ = fmt.Fprintf(w.out, "  type %-14s %s\n", st, strings.Join(ids, ", "))
		}
	}
	if len(table.Default) > 0 {
		_, _ = fmt.Fprintf(w.out, "  %-19s %s\n", "default", strings.Join(table.Default, ", "))
	}
}
