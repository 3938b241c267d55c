// Package scraper ties the explorer together.
//
// A Scraper owns the record collection of the current fetch and every
// component that works on it:
//   - the token provider and API client
//   - the paginated fetcher
//   - the memoized media resolver
//   - the per-post comment threads
//   - the selection and the active media filter
//
// Usage:
//
//	s, err := scraper.New(cfg, reddit.Credentials{ClientID: id, ClientSecret: secret})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := s.Fetch(ctx, fetcher.Params{Kind: fetcher.KindListing, Subreddit: "golang", Sort: "hot", Target: 50}); err != nil {
//	    log.Fatal(err)
//	}
//	s.SelectAll()
//	name, data, err := s.ExportJSON(time.Now())
//
// Fetches are last-one-wins: starting a fetch cancels the one in flight,
// and a result that lands after a newer fetch started is dropped with
// ErrStaleFetch.
package scraper
