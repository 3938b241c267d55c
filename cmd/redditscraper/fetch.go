package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"redditscraper/pkg/fetcher"
	"redditscraper/pkg/reddit"
	"redditscraper/pkg/ui"
)

var (
	// Fetch and search flags
	fetchSort      string
	fetchTime      string
	fetchLimit     int
	searchScope    string
	searchSub      string
	searchSubs     []string
	showAfterFetch bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <subreddit>",
	Short: "Fetch posts from a subreddit listing",
	Long: `Fetch posts from a subreddit listing and start a new session.

The previous results, selection and loaded comments are discarded when
the fetch starts. Use 'redditscraper more' to continue the listing.`,
	Example: `  # Hot posts with the configured limit
  redditscraper fetch golang

  # Top posts of the week, 200 of them
  redditscraper fetch pics --sort top --time week --limit 200`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(limitFlags(), true)
		if err != nil {
			return err
		}

		sort := firstNonEmpty(fetchSort, a.cfg.Fetch.Sort)
		params := fetcher.Params{
			Kind:      fetcher.KindListing,
			Subreddit: strings.TrimPrefix(strings.TrimSpace(args[0]), "r/"),
			Sort:      strings.ToLower(sort),
			Target:    a.cfg.Fetch.Limit,
		}
		if reddit.SortUsesTime(params.Sort) {
			params.TimeFilter = firstNonEmpty(fetchTime, a.cfg.Fetch.TimeFilter)
		}
		return a.runFetch(cmd.Context(), params.Describe(), func(ctx context.Context) (*fetcher.Result, error) {
			return a.scraper.Fetch(ctx, params)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search posts across Reddit or within subreddits",
	Long: `Search posts and start a new session.

The scope defaults to a single subreddit when --subreddit is given,
to several subreddits when --subreddits is given, and to all of Reddit
otherwise.`,
	Example: `  # Search everywhere
  redditscraper search "mechanical keyboard"

  # Search one subreddit, newest first
  redditscraper search gopher --subreddit golang --sort new

  # Search several subreddits
  redditscraper search sunset --subreddits pics,earthporn --time month`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(limitFlags(), true)
		if err != nil {
			return err
		}

		params := fetcher.Params{
			Kind:       fetcher.KindSearch,
			Query:      strings.Join(args, " "),
			Sort:       strings.ToLower(firstNonEmpty(fetchSort, a.cfg.Fetch.SearchSort)),
			TimeFilter: firstNonEmpty(fetchTime, a.cfg.Fetch.SearchTime),
			Scope:      searchScopeFor(searchScope, searchSub, searchSubs),
			Subreddit:  searchSub,
			Subreddits: searchSubs,
			Target:     a.cfg.Fetch.Limit,
		}
		return a.runFetch(cmd.Context(), params.Describe(), func(ctx context.Context) (*fetcher.Result, error) {
			return a.scraper.Fetch(ctx, params)
		})
	},
}

var moreCmd = &cobra.Command{
	Use:   "more",
	Short: "Load the next page of the current results",
	Long: `Continue the last fetch or search from where it stopped. Posts already
in the session are skipped and the selection is kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, true)
		if err != nil {
			return err
		}
		return a.runFetch(cmd.Context(), a.scraper.Params().Describe(), a.scraper.LoadMore)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{fetchCmd, searchCmd} {
		cmd.Flags().StringVar(&fetchTime, "time", "", "time range for top/controversial and search (hour, day, week, month, year, all)")
		cmd.Flags().IntVar(&fetchLimit, "limit", 0, "number of posts to fetch (10-1000)")
		cmd.Flags().BoolVar(&showAfterFetch, "show", true, "list the posts after fetching")
		rootCmd.AddCommand(cmd)
	}
	fetchCmd.Flags().StringVar(&fetchSort, "sort", "", "listing sort (hot, new, top, rising, controversial)")
	searchCmd.Flags().StringVar(&fetchSort, "sort", "", "search sort (relevance, hot, top, new, comments)")
	searchCmd.Flags().StringVar(&searchScope, "scope", "", "search scope (subreddit, multiple, all)")
	searchCmd.Flags().StringVar(&searchSub, "subreddit", "", "subreddit to search within")
	searchCmd.Flags().StringSliceVar(&searchSubs, "subreddits", nil, "comma separated subreddits to search")

	moreCmd.Flags().BoolVar(&showAfterFetch, "show", true, "list the new posts after loading")
	rootCmd.AddCommand(moreCmd)
}

func limitFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if fetchLimit != 0 {
		flags["limit"] = fetchLimit
	}
	return flags
}

func searchScopeFor(scope, sub string, subs []string) reddit.SearchScope {
	if scope != "" {
		return reddit.SearchScope(strings.ToLower(scope))
	}
	switch {
	case sub != "":
		return reddit.ScopeSubreddit
	case len(subs) > 0:
		return reddit.ScopeMultiple
	default:
		return reddit.ScopeAll
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// runFetch shows a spinner around fn, saves the session on success and
// lists what came back.
func (a *app) runFetch(ctx context.Context, source string, fn func(context.Context) (*fetcher.Result, error)) error {
	stop := a.startSpinner("Fetching " + source)
	res, err := fn(ctx)
	stop()
	if err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}

	if !quiet {
		ui.PrintInfo("Source", source)
		ui.PrintSuccess(fmt.Sprintf("Loaded %s posts (%s in session)",
			ui.FormatCount(len(res.Records)), ui.FormatCount(len(a.scraper.Posts()))))
		if a.scraper.CanLoadMore() {
			fmt.Fprintln(ui.Output, ui.Dim("More posts are available: redditscraper more"))
		}
	}
	if showAfterFetch && !quiet {
		fmt.Fprintln(ui.Output)
		ui.PrintPosts(ui.Output, res.Records, a.listOptions())
	}
	return nil
}
