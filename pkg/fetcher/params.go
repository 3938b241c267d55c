package fetcher

import (
	stderrors "errors"
	"fmt"
	"slices"
	"strings"

	"redditscraper/pkg/reddit"
)

// Kind selects the endpoint family
type Kind string

const (
	KindListing Kind = "listing"
	KindSearch  Kind = "search"
)

const (
	MinTarget = 10
	MaxTarget = 1000
)

// ErrInvalidParams wraps every validation failure
var ErrInvalidParams = stderrors.New("invalid fetch parameters")

// Params describe one fetch. Cursor is empty for a fresh fetch and holds
// the previous NextCursor when loading more.
type Params struct {
	Kind       Kind               `json:"kind"`
	Subreddit  string             `json:"subreddit,omitempty"`
	Sort       string             `json:"sort"`
	TimeFilter string             `json:"time_filter,omitempty"`
	Query      string             `json:"query,omitempty"`
	Scope      reddit.SearchScope `json:"scope,omitempty"`
	Subreddits []string           `json:"subreddits,omitempty"`
	Target     int                `json:"target"`
	Cursor     string             `json:"cursor,omitempty"`
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}

// Validate checks the parameters before any request is made
func (p Params) Validate() error {
	if p.Target < MinTarget || p.Target > MaxTarget {
		return invalid("Post limit must be between %d and %d.", MinTarget, MaxTarget)
	}
	if p.TimeFilter != "" && !slices.Contains(reddit.TimeFilters, p.TimeFilter) {
		return invalid("unknown time filter %q", p.TimeFilter)
	}

	switch p.Kind {
	case KindListing:
		if strings.TrimSpace(p.Subreddit) == "" {
			return invalid("Please enter a subreddit name.")
		}
		if !slices.Contains(reddit.ListingSorts, p.Sort) {
			return invalid("unknown sort %q", p.Sort)
		}
	case KindSearch:
		if strings.TrimSpace(p.Query) == "" {
			return invalid("Please enter a search query.")
		}
		if p.Sort != "" && !slices.Contains(reddit.SearchSorts, p.Sort) {
			return invalid("unknown search sort %q", p.Sort)
		}
		switch p.Scope {
		case reddit.ScopeSubreddit:
			if strings.TrimSpace(p.Subreddit) == "" {
				return invalid("Please enter a subreddit name to search within.")
			}
		case reddit.ScopeMultiple:
			if reddit.JoinSubreddits(p.Subreddits) == "" {
				return invalid("Please enter at least one subreddit name for multiple search.")
			}
		case reddit.ScopeAll:
		default:
			return invalid("unknown search scope %q", p.Scope)
		}
	default:
		return invalid("unknown fetch kind %q", p.Kind)
	}
	return nil
}

// Source names where the records came from: the subreddit, the joined
// subreddit list, or "" for a global search.
func (p Params) Source() string {
	switch {
	case p.Kind == KindListing:
		return strings.TrimSpace(p.Subreddit)
	case p.Scope == reddit.ScopeSubreddit:
		return strings.TrimSpace(p.Subreddit)
	case p.Scope == reddit.ScopeMultiple:
		return reddit.JoinSubreddits(p.Subreddits)
	default:
		return ""
	}
}

// Describe is a short human label such as "r/golang (top, week)"
func (p Params) Describe() string {
	if p.Kind == KindListing {
		if reddit.SortUsesTime(p.Sort) {
			return fmt.Sprintf("r/%s (%s, %s)", p.Subreddit, p.Sort, p.TimeFilter)
		}
		return fmt.Sprintf("r/%s (%s)", p.Subreddit, p.Sort)
	}
	where := "all of Reddit"
	if src := p.Source(); src != "" {
		where = "r/" + src
	}
	return fmt.Sprintf("search %q in %s", p.Query, where)
}
