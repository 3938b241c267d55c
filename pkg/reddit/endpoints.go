package reddit

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"
)

const (
	// APIBaseURL serves authenticated listing, search and comment requests
	APIBaseURL = "https://oauth.reddit.com"

	// TokenURL issues application-only bearer tokens
	TokenURL = "https://www.reddit.com/api/v1/access_token"

	// PermalinkBase prefixes relative permalinks in exports
	PermalinkBase = "https://reddit.com"

	// MaxPageSize is the largest limit a listing request accepts
	MaxPageSize = 100
)

// Listing sort orders
const (
	SortHot           = "hot"
	SortNew           = "new"
	SortTop           = "top"
	SortRising        = "rising"
	SortControversial = "controversial"
)

// Search sort orders
const (
	SearchSortRelevance = "relevance"
	SearchSortHot       = "hot"
	SearchSortTop       = "top"
	SearchSortNew       = "new"
	SearchSortComments  = "comments"
)

// SearchScope selects which search endpoint is used
type SearchScope string

const (
	ScopeSubreddit SearchScope = "subreddit"
	ScopeMultiple  SearchScope = "multiple"
	ScopeAll       SearchScope = "all"
)

var (
	ListingSorts = []string{SortHot, SortNew, SortTop, SortRising, SortControversial}
	SearchSorts  = []string{SearchSortRelevance, SearchSortHot, SearchSortTop, SearchSortNew, SearchSortComments}
	TimeFilters  = []string{"hour", "day", "week", "month", "year", "all"}
)

// ListingOptions are the query parameters of /r/{sub}/{sort}
type ListingOptions struct {
	Limit   int    `url:"limit"`
	Time    string `url:"t,omitempty"`
	After   string `url:"after,omitempty"`
	RawJSON int    `url:"raw_json"`
}

// SearchOptions are the query parameters of the search endpoints
type SearchOptions struct {
	Query      string `url:"q"`
	RestrictSR int    `url:"restrict_sr,omitempty"`
	Limit      int    `url:"limit"`
	Sort       string `url:"sort,omitempty"`
	Time       string `url:"t,omitempty"`
	After      string `url:"after,omitempty"`
	RawJSON    int    `url:"raw_json"`
}

// CommentOptions are the query parameters of /r/{sub}/comments/{id}
type CommentOptions struct {
	Limit   int    `url:"limit"`
	Depth   int    `url:"depth"`
	Sort    string `url:"sort"`
	RawJSON int    `url:"raw_json"`
}

// SearchRequest describes one page of a search
type SearchRequest struct {
	Scope      SearchScope
	Subreddit  string
	Subreddits []string
	Query      string
	Sort       string
	Time       string
	Limit      int
	After      string
}

// ListingPath builds /r/{sub}/{sort}
func ListingPath(subreddit, sort string) string {
	return fmt.Sprintf("/r/%s/%s", url.PathEscape(subreddit), sort)
}

// NewListingOptions sets t only for the sorts that honour a time window
func NewListingOptions(sort, timeFilter string, limit int, after string) ListingOptions {
	opts := ListingOptions{Limit: limit, After: after, RawJSON: 1}
	if SortUsesTime(sort) {
		opts.Time = timeFilter
	}
	return opts
}

// SortUsesTime reports whether a listing sort takes the t parameter
func SortUsesTime(sort string) bool {
	return sort == SortTop || sort == SortControversial
}

// SearchPath returns the endpoint path and options for a search page.
// Single-subreddit searches set restrict_sr; multi-subreddit searches use
// a '+'-joined path instead. A time window of "all" is omitted.
func SearchPath(req SearchRequest) (string, SearchOptions) {
	opts := SearchOptions{
		Query:   req.Query,
		Limit:   req.Limit,
		Sort:    req.Sort,
		After:   req.After,
		RawJSON: 1,
	}
	if req.Time != "" && req.Time != "all" {
		opts.Time = req.Time
	}

	switch req.Scope {
	case ScopeSubreddit:
		opts.RestrictSR = 1
		return fmt.Sprintf("/r/%s/search", url.PathEscape(req.Subreddit)), opts
	case ScopeMultiple:
		return fmt.Sprintf("/r/%s/search", JoinSubreddits(req.Subreddits)), opts
	default:
		return "/search", opts
	}
}

// JoinSubreddits trims, drops blanks and joins names with '+'
func JoinSubreddits(names []string) string {
	var parts []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			parts = append(parts, url.PathEscape(n))
		}
	}
	return strings.Join(parts, "+")
}

// SplitSubreddits parses a comma separated list
func SplitSubreddits(list string) []string {
	var out []string
	for _, n := range strings.Split(list, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// CommentsPath builds /r/{sub}/comments/{shortId}; a t3_ prefix is stripped
func CommentsPath(subreddit, postID string) string {
	return fmt.Sprintf("/r/%s/comments/%s", url.PathEscape(subreddit), ShortID(postID))
}

// ShortID strips the t3_ kind prefix from a fullname
func ShortID(id string) string {
	return strings.TrimPrefix(id, "t3_")
}

// NewCommentOptions requests top-level comments in confidence order
func NewCommentOptions(limit int) CommentOptions {
	return CommentOptions{Limit: limit, Depth: 1, Sort: "confidence", RawJSON: 1}
}

// AbsolutePermalink prefixes a relative permalink with https://reddit.com
func AbsolutePermalink(permalink string) string {
	if permalink == "" || strings.HasPrefix(permalink, "http") {
		return permalink
	}
	return PermalinkBase + permalink
}

// BuildURL joins base, path and encoded options
func BuildURL(base, path string, opts interface{}) (string, error) {
	v, err := query.Values(opts)
	if err != nil {
		return "", fmt.Errorf("encode query: %w", err)
	}
	u := strings.TrimRight(base, "/") + path
	if enc := v.Encode(); enc != "" {
		u += "?" + enc
	}
	return u, nil
}
