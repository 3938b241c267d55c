// Package fetcher drives limit-aware pagination over listing and search
// endpoints.
package fetcher

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"redditscraper/pkg/errors"
	"redditscraper/pkg/logger"
	"redditscraper/pkg/ratelimit"
	"redditscraper/pkg/reddit"
)

// DefaultPageDelay spaces consecutive page requests
const DefaultPageDelay = 300 * time.Millisecond

// API is the subset of the Reddit client used for pagination
type API interface {
	Listing(ctx context.Context, subreddit, sort string, opts reddit.ListingOptions) (*reddit.Page, error)
	Search(ctx context.Context, req reddit.SearchRequest) (*reddit.Page, error)
}

// ProgressFunc receives the running total after each page
type ProgressFunc func(loaded, total int)

// Result of one Fetch call
type Result struct {
	Records    []*reddit.Post
	NextCursor string
	ReachedEnd bool
	Pages      int
}

type Fetcher struct {
	api      API
	pacer    ratelimit.Limiter
	progress ProgressFunc
	logger   logger.Logger
}

type Option func(*Fetcher)

// WithPageDelay sets the spacing between pages; zero disables it
func WithPageDelay(d time.Duration) Option {
	return func(f *Fetcher) { f.pacer = ratelimit.NewInterval(d) }
}

func WithPacer(l ratelimit.Limiter) Option {
	return func(f *Fetcher) { f.pacer = l }
}

func WithProgress(fn ProgressFunc) Option {
	return func(f *Fetcher) { f.progress = fn }
}

func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

func New(api API, opts ...Option) *Fetcher {
	f := &Fetcher{
		api:   api,
		pacer: ratelimit.NewInterval(DefaultPageDelay),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.GetLogger()
	}
	return f
}

// Fetch requests pages until Target records are loaded, the source has
// no cursor left, or a page comes back empty. Any failure discards the
// pages gathered so far.
func (f *Fetcher) Fetch(ctx context.Context, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	log := f.logger.WithFields(map[string]interface{}{
		"kind":   string(params.Kind),
		"source": params.Describe(),
		"target": params.Target,
	})
	log.Debug("starting paginated fetch")

	f.pacer.Reset()
	var (
		records   []*reddit.Post
		cursor    = params.Cursor
		remaining = params.Target
		pages     int
	)

	for remaining > 0 {
		if err := f.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		size := min(remaining, reddit.MaxPageSize)
		page, err := f.page(ctx, params, size, cursor)
		if err != nil {
			log.WithError(err).Warn("page request failed; discarding partial results")
			return nil, describe(params, err)
		}
		pages++

		posts, after := page.Posts, page.After
		if len(posts) > remaining {
			// oversized page: keep what was asked for and resume after it
			posts = posts[:remaining]
			after = fullname(posts[len(posts)-1])
		}
		records = append(records, posts...)
		remaining -= len(posts)
		cursor = after

		logger.LogFetchProgress(log, params.Describe(), len(records), params.Target)
		if f.progress != nil {
			f.progress(len(records), params.Target)
		}

		if cursor == "" || len(posts) == 0 {
			break
		}
	}

	log.DebugWithFields("paginated fetch finished", map[string]interface{}{
		"loaded": len(records),
		"pages":  pages,
		"more":   cursor != "",
	})
	return &Result{
		Records:    records,
		NextCursor: cursor,
		ReachedEnd: cursor == "",
		Pages:      pages,
	}, nil
}

func (f *Fetcher) page(ctx context.Context, params Params, size int, cursor string) (*reddit.Page, error) {
	if params.Kind == KindListing {
		opts := reddit.NewListingOptions(params.Sort, params.TimeFilter, size, cursor)
		return f.api.Listing(ctx, params.Subreddit, params.Sort, opts)
	}
	return f.api.Search(ctx, reddit.SearchRequest{
		Scope:      params.Scope,
		Subreddit:  params.Subreddit,
		Subreddits: params.Subreddits,
		Query:      params.Query,
		Sort:       params.Sort,
		Time:       params.TimeFilter,
		Limit:      size,
		After:      cursor,
	})
}

// describe rewrites an HTTP failure into the message shown to the user
func describe(params Params, err error) error {
	var apiErr *errors.Error
	if !stderrors.As(err, &apiErr) || apiErr.Code == 0 ||
		apiErr.Type == errors.ErrorTypeAuth || apiErr.Type == errors.ErrorTypeParsing {
		return err
	}

	var msg string
	switch params.Kind {
	case KindListing:
		switch apiErr.Code {
		case 404:
			msg = fmt.Sprintf("Subreddit 'r/%s' not found or private.", params.Subreddit)
		case 403:
			msg = fmt.Sprintf("Access denied to 'r/%s' (private/quarantined?).", params.Subreddit)
		}
	case KindSearch:
		switch {
		case apiErr.Code == 404 && params.Scope != reddit.ScopeAll:
			msg = "One or more specified subreddits not found or private."
		case apiErr.Code == 403:
			msg = "Access denied to search endpoint or specified subreddits."
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("(%d): %s", apiErr.Code, apiErr.Message)
	}

	return &errors.Error{Type: apiErr.Type, Message: msg, Code: apiErr.Code, Err: err}
}

// fullname is the listing cursor that points at post
func fullname(p *reddit.Post) string {
	if p.Name != "" {
		return p.Name
	}
	return "t3_" + p.ID
}
