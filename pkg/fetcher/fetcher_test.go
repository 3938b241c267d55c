package fetcher

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redditscraper/pkg/errors"
	"redditscraper/pkg/logger"
	"redditscraper/pkg/ratelimit"
	"redditscraper/pkg/reddit"
)

// fakeAPI serves pages from an in-memory pool of posts
type fakeAPI struct {
	mu       sync.Mutex
	total    int // posts available before exhaustion; <0 means unlimited
	served   int
	sizes    []int
	afters   []string
	searches []reddit.SearchRequest
	failOn   int // 1-based request number that fails
	failErr  error
	stallAt  int // 1-based request number that returns an empty page with a cursor
	extra    int // posts served beyond the requested size
}

func (f *fakeAPI) next(size int, after string) (*reddit.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sizes = append(f.sizes, size)
	f.afters = append(f.afters, after)
	n := len(f.sizes)
	if n == f.failOn {
		return nil, f.failErr
	}
	if n == f.stallAt {
		return &reddit.Page{After: fmt.Sprintf("t3_stall%d", n)}, nil
	}

	count := size + f.extra
	if f.total >= 0 && f.served+count > f.total {
		count = f.total - f.served
	}
	page := &reddit.Page{}
	for i := 0; i < count; i++ {
		f.served++
		page.Posts = append(page.Posts, &reddit.Post{ID: fmt.Sprintf("p%d", f.served)})
	}
	if f.total < 0 || f.served < f.total {
		page.After = fmt.Sprintf("t3_p%d", f.served)
	}
	return page, nil
}

func (f *fakeAPI) Listing(ctx context.Context, subreddit, sort string, opts reddit.ListingOptions) (*reddit.Page, error) {
	return f.next(opts.Limit, opts.After)
}

func (f *fakeAPI) Search(ctx context.Context, req reddit.SearchRequest) (*reddit.Page, error) {
	f.mu.Lock()
	f.searches = append(f.searches, req)
	f.mu.Unlock()
	return f.next(req.Limit, req.After)
}

func newTestFetcher(api API, opts ...Option) *Fetcher {
	base := []Option{WithPacer(ratelimit.Unlimited{}), WithLogger(logger.NewNopLogger())}
	return New(api, append(base, opts...)...)
}

func listing(target int) Params {
	return Params{Kind: KindListing, Subreddit: "golang", Sort: reddit.SortHot, Target: target}
}

func TestFetchSplitsIntoPages(t *testing.T) {
	api := &fakeAPI{total: -1}
	f := newTestFetcher(api)

	res, err := f.Fetch(context.Background(), listing(250))
	require.NoError(t, err)

	assert.Equal(t, []int{100, 100, 50}, api.sizes)
	assert.Len(t, res.Records, 250)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, "t3_p250", res.NextCursor)
	assert.False(t, res.ReachedEnd)
}

func TestFetchStopsWhenSourceIsExhausted(t *testing.T) {
	api := &fakeAPI{total: 130}
	f := newTestFetcher(api)

	res, err := f.Fetch(context.Background(), listing(500))
	require.NoError(t, err)

	assert.Len(t, res.Records, 130)
	assert.True(t, res.ReachedEnd)
	assert.Empty(t, res.NextCursor)
	assert.Equal(t, []int{100, 100}, api.sizes)
}

func TestFetchStallGuard(t *testing.T) {
	api := &fakeAPI{total: -1, stallAt: 2}
	f := newTestFetcher(api)

	res, err := f.Fetch(context.Background(), listing(300))
	require.NoError(t, err)

	assert.Len(t, res.Records, 100)
	assert.Len(t, api.sizes, 2, "an empty page ends the loop")
	assert.Equal(t, "t3_stall2", res.NextCursor)
}

func TestFetchTruncatesOversizedPages(t *testing.T) {
	api := &fakeAPI{total: -1, extra: 5}
	f := newTestFetcher(api)

	res, err := f.Fetch(context.Background(), listing(150))
	require.NoError(t, err)

	assert.Equal(t, []int{100, 45}, api.sizes)
	require.Len(t, res.Records, 150)
	assert.Equal(t, "p150", res.Records[149].ID)
	assert.Equal(t, "t3_p150", res.NextCursor, "the cursor resumes after the last kept post")
	assert.False(t, res.ReachedEnd)
}

func TestFetchContinuesFromCursor(t *testing.T) {
	api := &fakeAPI{total: -1}
	f := newTestFetcher(api)

	params := listing(20)
	params.Cursor = "t3_prev"
	_, err := f.Fetch(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, []string{"t3_prev"}, api.afters)
}

func TestFetchReportsProgress(t *testing.T) {
	api := &fakeAPI{total: -1}
	var seen [][2]int
	f := newTestFetcher(api, WithProgress(func(loaded, total int) {
		seen = append(seen, [2]int{loaded, total})
	}))

	_, err := f.Fetch(context.Background(), listing(150))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{100, 150}, {150, 150}}, seen)
}

func TestFetchDiscardsPartialResultsOnError(t *testing.T) {
	api := &fakeAPI{total: -1, failOn: 2, failErr: errors.NewFetchError(500, "Internal Server Error")}
	f := newTestFetcher(api)

	res, err := f.Fetch(context.Background(), listing(300))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, "(500): Internal Server Error", err.(*errors.Error).UserMessage())
}

func TestFetchErrorMessages(t *testing.T) {
	search := func(scope reddit.SearchScope) Params {
		return Params{Kind: KindSearch, Query: "q", Scope: scope, Subreddit: "golang", Subreddits: []string{"a", "b"}, Target: 10}
	}

	tests := []struct {
		name   string
		params Params
		code   int
		want   string
	}{
		{"listing not found", listing(10), 404, "Subreddit 'r/golang' not found or private."},
		{"listing forbidden", listing(10), 403, "Access denied to 'r/golang' (private/quarantined?)."},
		{"listing other", listing(10), 429, "(429): Too Many Requests"},
		{"search subreddit not found", search(reddit.ScopeSubreddit), 404, "One or more specified subreddits not found or private."},
		{"search multiple not found", search(reddit.ScopeMultiple), 404, "One or more specified subreddits not found or private."},
		{"search all not found", search(reddit.ScopeAll), 404, "(404): Too Many Requests"},
		{"search forbidden", search(reddit.ScopeAll), 403, "Access denied to search endpoint or specified subreddits."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{total: -1, failOn: 1, failErr: errors.NewFetchError(tt.code, "Too Many Requests")}
			_, err := newTestFetcher(api).Fetch(context.Background(), tt.params)
			require.Error(t, err)

			var apiErr *errors.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.want, apiErr.Message)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestFetchPassesAuthErrorsThrough(t *testing.T) {
	authErr := errors.NewAuthError("(401) Unauthorized", nil)
	api := &fakeAPI{total: -1, failOn: 1, failErr: authErr}

	_, err := newTestFetcher(api).Fetch(context.Background(), listing(10))
	assert.Same(t, authErr, err)
}

func TestFetchSearchRequest(t *testing.T) {
	api := &fakeAPI{total: 5}
	params := Params{
		Kind: KindSearch, Query: "gophers", Scope: reddit.ScopeMultiple,
		Subreddits: []string{"golang", "programming"}, Sort: reddit.SearchSortTop, TimeFilter: "week", Target: 10,
	}

	res, err := newTestFetcher(api).Fetch(context.Background(), params)
	require.NoError(t, err)
	assert.Len(t, res.Records, 5)

	require.Len(t, api.searches, 1)
	got := api.searches[0]
	assert.Equal(t, reddit.ScopeMultiple, got.Scope)
	assert.Equal(t, "gophers", got.Query)
	assert.Equal(t, "week", got.Time)
	assert.Equal(t, 10, got.Limit)
}

func TestFetchRespectsCancellation(t *testing.T) {
	api := &fakeAPI{total: -1}
	f := newTestFetcher(api, WithPageDelay(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, listing(10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.sizes)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr string
	}{
		{"valid listing", listing(10), ""},
		{"target too small", listing(9), "Post limit must be between 10 and 1000."},
		{"target too large", listing(1001), "Post limit must be between 10 and 1000."},
		{"missing subreddit", Params{Kind: KindListing, Sort: "hot", Target: 10}, "Please enter a subreddit name."},
		{"bad sort", Params{Kind: KindListing, Subreddit: "x", Sort: "best", Target: 10}, "unknown sort"},
		{"missing query", Params{Kind: KindSearch, Scope: reddit.ScopeAll, Target: 10}, "Please enter a search query."},
		{"scope needs subreddit", Params{Kind: KindSearch, Query: "q", Scope: reddit.ScopeSubreddit, Target: 10}, "subreddit name to search within"},
		{"multiple needs names", Params{Kind: KindSearch, Query: "q", Scope: reddit.ScopeMultiple, Subreddits: []string{" "}, Target: 10}, "at least one subreddit"},
		{"bad time", Params{Kind: KindSearch, Query: "q", Scope: reddit.ScopeAll, TimeFilter: "decade", Target: 10}, "unknown time filter"},
		{"unknown kind", Params{Target: 10}, "unknown fetch kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSourceAndDescribe(t *testing.T) {
	assert.Equal(t, "golang", listing(10).Source())
	assert.Equal(t, "r/golang (hot)", listing(10).Describe())

	top := Params{Kind: KindListing, Subreddit: "pics", Sort: "top", TimeFilter: "week"}
	assert.Equal(t, "r/pics (top, week)", top.Describe())

	multi := Params{Kind: KindSearch, Query: "x", Scope: reddit.ScopeMultiple, Subreddits: []string{"a", "b"}}
	assert.Equal(t, "a+b", multi.Source())
	assert.Equal(t, `search "x" in r/a+b`, multi.Describe())

	global := Params{Kind: KindSearch, Query: "x", Scope: reddit.ScopeAll}
	assert.Equal(t, "", global.Source())
	assert.Equal(t, `search "x" in all of Reddit`, global.Describe())
}
