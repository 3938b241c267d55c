// Package comments loads top-level comments per post on demand and tracks
// each post's loading state.
package comments

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"redditscraper/pkg/errors"
	"redditscraper/pkg/logger"
	"redditscraper/pkg/reddit"
)

const (
	DisabledMessage         = "Comment fetching disabled (limit 0)"
	MissingSubredditMessage = "Subreddit name missing in post data."

	DefaultConcurrency = 4
)

type State int

const (
	NotLoaded State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "not_loaded"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "not_loaded":
		*s = NotLoaded
	case "loading":
		*s = Loading
	case "loaded":
		*s = Loaded
	case "failed":
		*s = Failed
	default:
		return fmt.Errorf("unknown comment state %q", b)
	}
	return nil
}

// Thread is the comment state of one post
type Thread struct {
	State    State            `json:"state"`
	Comments []reddit.Comment `json:"comments,omitempty"`
	Err      string           `json:"error,omitempty"`
	Visible  bool             `json:"visible"`
}

// API fetches the raw top-level comments of a post
type API interface {
	Comments(ctx context.Context, subreddit, postID string, limit int) ([]reddit.Comment, error)
}

// BatchSummary counts the outcome of a FetchAll
type BatchSummary struct {
	Requested int
	Loaded    int
	Failed    int
}

// Fetcher owns the per-post threads. Only NotLoaded posts trigger a
// request; a post in Loading is never requested twice.
type Fetcher struct {
	api         API
	limit       int
	concurrency int
	settled     func(State)
	logger      logger.Logger

	mu      sync.Mutex
	threads map[string]*Thread
}

type Option func(*Fetcher)

func WithConcurrency(n int) Option {
	return func(f *Fetcher) { f.concurrency = n }
}

// WithSettled registers fn to be told the final state of every request
func WithSettled(fn func(State)) Option {
	return func(f *Fetcher) { f.settled = fn }
}

func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher requesting up to limit comments per post.
// A limit of 0 disables fetching.
func New(api API, limit int, opts ...Option) *Fetcher {
	f := &Fetcher{
		api:         api,
		limit:       limit,
		concurrency: DefaultConcurrency,
		threads:     make(map[string]*Thread),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.concurrency < 1 {
		f.concurrency = 1
	}
	if f.logger == nil {
		f.logger = logger.GetLogger()
	}
	return f
}

func (f *Fetcher) Limit() int {
	return f.limit
}

// Thread returns a copy of the post's thread
func (f *Fetcher) Thread(id string) Thread {
	f.mu.Lock()
	defer f.mu.Unlock()
	if th, ok := f.threads[id]; ok {
		return *th
	}
	return Thread{}
}

// Comments returns the loaded comments of a post, or nil
func (f *Fetcher) Comments(id string) []reddit.Comment {
	th := f.Thread(id)
	if th.State != Loaded {
		return nil
	}
	return th.Comments
}

// Toggle flips visibility of an already settled thread, ignores a thread
// that is loading, and starts a load for one that was never requested.
func (f *Fetcher) Toggle(ctx context.Context, post *reddit.Post) Thread {
	f.mu.Lock()
	th := f.thread(post.ID)
	switch th.State {
	case Loading:
		out := *th
		f.mu.Unlock()
		return out
	case Loaded, Failed:
		th.Visible = !th.Visible
		out := *th
		f.mu.Unlock()
		return out
	}
	f.mu.Unlock()

	return f.load(ctx, post)
}

// Ensure loads the post's comments if they were never requested and
// leaves settled threads untouched.
func (f *Fetcher) Ensure(ctx context.Context, post *reddit.Post) Thread {
	return f.load(ctx, post)
}

// FetchAll ensures every post concurrently and waits for all of them.
// Individual failures land in the post's thread and never stop siblings.
func (f *Fetcher) FetchAll(ctx context.Context, posts []*reddit.Post) BatchSummary {
	var g errgroup.Group
	g.SetLimit(f.concurrency)

	results := make([]State, len(posts))
	for i, post := range posts {
		i, post := i, post
		g.Go(func() error {
			results[i] = f.Ensure(ctx, post).State
			return nil
		})
	}
	g.Wait()

	sum := BatchSummary{Requested: len(posts)}
	for _, s := range results {
		switch s {
		case Loaded:
			sum.Loaded++
		case Failed:
			sum.Failed++
		}
	}
	f.logger.InfoWithFields("batch comment fetch finished", map[string]interface{}{
		"requested": sum.Requested,
		"loaded":    sum.Loaded,
		"failed":    sum.Failed,
	})
	return sum
}

// Reset forgets every thread; in-flight loads are discarded when they land
func (f *Fetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads = make(map[string]*Thread)
}

// Snapshot copies the settled threads
func (f *Fetcher) Snapshot() map[string]Thread {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]Thread, len(f.threads))
	for id, th := range f.threads {
		if th.State == Loaded || th.State == Failed {
			out[id] = *th
		}
	}
	return out
}

// Restore replaces the threads; anything not settled is dropped
func (f *Fetcher) Restore(threads map[string]Thread) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads = make(map[string]*Thread, len(threads))
	for id, th := range threads {
		if th.State == Loaded || th.State == Failed {
			th := th
			f.threads[id] = &th
		}
	}
}

// thread must be called with f.mu held
func (f *Fetcher) thread(id string) *Thread {
	th, ok := f.threads[id]
	if !ok {
		th = &Thread{}
		f.threads[id] = th
	}
	return th
}

func (f *Fetcher) load(ctx context.Context, post *reddit.Post) Thread {
	f.mu.Lock()
	th := f.thread(post.ID)
	if th.State != NotLoaded {
		out := *th
		f.mu.Unlock()
		return out
	}
	th.Visible = true
	if f.limit == 0 {
		th.State, th.Err = Failed, DisabledMessage
		out := *th
		f.mu.Unlock()
		return out
	}
	th.State = Loading
	f.mu.Unlock()

	comments, err := f.fetch(ctx, post)

	f.mu.Lock()
	defer f.mu.Unlock()
	// re-locate by id: a Reset while we were waiting replaces the map
	if f.threads[post.ID] != th {
		return Thread{}
	}
	if err != nil {
		th.State, th.Err, th.Comments = Failed, err.Error(), nil
		f.logger.WithField("post_id", post.ID).WithError(err).Warn("comment fetch failed")
	} else {
		th.State, th.Err, th.Comments = Loaded, "", comments
	}
	if f.settled != nil {
		f.settled(th.State)
	}
	return *th
}

func (f *Fetcher) fetch(ctx context.Context, post *reddit.Post) ([]reddit.Comment, error) {
	if post.Subreddit == "" {
		return nil, stderrors.New(MissingSubredditMessage)
	}

	raw, err := f.api.Comments(ctx, post.Subreddit, post.ID, f.limit)
	if err != nil {
		return nil, describe(err)
	}
	return Filter(raw), nil
}

func describe(err error) error {
	var apiErr *errors.Error
	if stderrors.As(err, &apiErr) {
		if apiErr.Code != 0 && apiErr.Type != errors.ErrorTypeParsing {
			return fmt.Errorf("(%d): %s", apiErr.Code, apiErr.Message)
		}
		return stderrors.New(apiErr.Message)
	}
	return err
}

// Filter drops comments without author or body, by deleted accounts,
// with removed bodies, and moderator-pinned ones
func Filter(in []reddit.Comment) []reddit.Comment {
	out := make([]reddit.Comment, 0, len(in))
	for _, c := range in {
		if c.Author == "" || c.Body == "" {
			continue
		}
		if c.Author == "[deleted]" || c.Body == "[removed]" || c.Stickied {
			continue
		}
		out = append(out, c)
	}
	return out
}
