package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amansearch/internal/config"
	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/mcp"
	"github.com/Aman-CERP/amansearch/internal/output"
	"github.com/Aman-CERP/amansearch/internal/search"
	"github.com/Aman-CERP/amansearch/pkg/searcher"
)

// searchOptions holds the flags of the search command.
type searchOptions struct {
	mode         string
	engines      []string
	maxResults   int
	searchType   string
	fetch        bool
	noDedup      bool
	noSemantic   bool
	timeRange    string
	sites        []string
	excludeSites []string
	language     string
	region       string
	format       string
	noColor      bool
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the web across multiple engines",
		Long: `Search sends the query to the engines selected for the mode (or the
ones named with --engines), merges duplicates and prints results ranked by
relevance.

Modes:
  auto   balanced default (exa, brave, duckduckgo)
  fast   fewest round trips (exa, duckduckgo)
  deep   wider recall (exa_deep, searxng, brave)
  code   programming oriented engines`,
		Example: `  amansearch search "golang context cancellation"
  amansearch search --mode code --fetch "http retry middleware"
  amansearch search --engines searxng,duckduckgo -n 5 -f json "rust async"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, g, opts, strings.Join(args, " "))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.mode, "mode", "m", "", "Search mode: auto, fast, deep, code (default from config)")
	f.StringSliceVarP(&opts.engines, "engines", "e", nil, "Engines to query, overriding mode routing")
	f.IntVarP(&opts.maxResults, "max-results", "n", 0, "Maximum results to return, 1-50 (default from config)")
	f.StringVarP(&opts.searchType, "type", "t", "", "Search type: general, news, code, documentation, academic")
	f.BoolVar(&opts.fetch, "fetch", false, "Fetch full page content for the results")
	f.BoolVar(&opts.noDedup, "no-dedup", false, "Keep duplicate results")
	f.BoolVar(&opts.noSemantic, "no-semantic", false, "Skip embedding-based duplicate detection")
	f.StringVar(&opts.timeRange, "time-range", "", "Restrict to day, week, month or year")
	f.StringSliceVar(&opts.sites, "site", nil, "Only include results from these sites")
	f.StringSliceVar(&opts.excludeSites, "exclude-site", nil, "Exclude results from these sites")
	f.StringVar(&opts.language, "language", "", "Result language, e.g. en")
	f.StringVar(&opts.region, "region", "", "Result region, e.g. us")
	f.StringVarP(&opts.format, "format", "f", output.FormatText,
		"Output format: "+strings.Join(output.Formats(), ", "))
	f.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runSearch(cmd *cobra.Command, g *globalOptions, opts *searchOptions, query string) error {
	if !output.ValidFormat(opts.format) {
		return amerrors.New(amerrors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown output format %q", opts.format), nil).
			WithSuggestion("Use one of: " + strings.Join(output.Formats(), ", "))
	}
	if err := validTimeRange(opts.timeRange); err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg, err := config.Load(g.dir)
	if err != nil {
		return err
	}

	s, err := searcher.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	req := opts.request(s, query)
	out, err := s.Search(ctx, req)
	if err != nil {
		return err
	}

	w := output.New(cmd.OutOrStdout())
	if opts.noColor {
		w.SetColor(false)
	}

	switch opts.format {
	case output.FormatJSON:
		return w.JSON(out)
	case output.FormatMarkdown:
		w.Raw(mcp.FormatSearchResults(out))
	case output.FormatCompact:
		w.SearchCompact(out)
	default:
		w.SearchText(out)
	}

	if !out.Success() {
		return amerrors.New(amerrors.ErrCodeSearchFailed, "no engine returned results", nil).
			WithSuggestion("Check 'amansearch providers' for unavailable engines")
	}
	return nil
}

// request builds the search request from config defaults and flags.
func (o *searchOptions) request(s *searcher.Searcher, query string) searcher.Request {
	req := s.NewRequest(query)
	if o.mode != "" {
		req.Mode = search.ParseMode(o.mode)
	}
	if len(o.engines) > 0 {
		req.Engines = normalizeEngineFlags(o.engines)
	}
	if o.maxResults > 0 {
		req.MaxResults = min(o.maxResults, search.MaxMaxResults)
	}
	if o.searchType != "" {
		req.SearchType = search.ParseSearchType(o.searchType)
	}
	req.FetchFullContent = o.fetch
	req.Deduplicate = !o.noDedup
	req.SemanticSearch = !o.noSemantic
	req.Filters = search.Filters{
		Language:     o.language,
		Region:       o.region,
		TimeRange:    strings.ToLower(o.timeRange),
		IncludeSites: o.sites,
		ExcludeSites: o.excludeSites,
	}
	return req
}

func normalizeEngineFlags(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func validTimeRange(r string) error {
	switch strings.ToLower(r) {
	case "", "day", "week", "month", "year":
		return nil
	}
	return amerrors.New(amerrors.ErrCodeInvalidInput, fmt.Sprintf("unknown time range %q", r), nil).
		WithSuggestion("Use day, week, month or year")
}
