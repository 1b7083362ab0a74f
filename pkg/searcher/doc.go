// Package searcher is the entry point for running AmanSearch as a library.
//
// It turns a [config.Config] into a ready search pipeline: provider
// adapters behind rate limiters and circuit breakers, an embedder for
// semantic deduplication, a page fetcher for content enrichment, a TTL
// result cache and in-process telemetry.
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    return err
//	}
//	s, err := searcher.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	req := s.NewRequest("golang context cancellation")
//	req.FetchFullContent = true
//	out, err := s.Search(ctx, req)
//
// Only configuration problems are returned as errors from Search. Provider
// failures are listed in the output's partial failures.
//
// # Thread Safety
//
// A Searcher is safe for concurrent use.
package searcher
