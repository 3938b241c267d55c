package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rusq/fsadapter"

	"redditscraper/internal/downloader"
	"redditscraper/pkg/comments"
	"redditscraper/pkg/config"
	"redditscraper/pkg/export"
	"redditscraper/pkg/fetcher"
	"redditscraper/pkg/logger"
	"redditscraper/pkg/media"
	"redditscraper/pkg/metrics"
	"redditscraper/pkg/ratelimit"
	"redditscraper/pkg/reddit"
	"redditscraper/pkg/retry"
	"redditscraper/pkg/selection"
	"redditscraper/pkg/session"
)

var (
	// ErrStaleFetch means a newer fetch started while this one was running
	ErrStaleFetch = stderrors.New("fetch superseded by a newer request")

	ErrNoFetch          = stderrors.New("no previous fetch to continue")
	ErrNoMorePosts      = stderrors.New("no more posts to load")
	ErrUnknownPost      = stderrors.New("post not in the current results")
	ErrNoSelection      = stderrors.New("no posts selected")
	ErrNothingDisplayed = stderrors.New("no posts displayed")
	ErrCommentsDisabled = stderrors.New("comment loading is disabled (comment limit is 0)")
)

// Scraper holds the explorer state of one fetch and the components that
// act on it. All methods are safe for concurrent use.
type Scraper struct {
	cfg       *config.Config
	api       API
	fetcher   *fetcher.Fetcher
	cache     *media.Cache
	comments  *comments.Fetcher
	selection *selection.Aggregator
	media     ratelimit.Limiter
	retry     *retry.Config
	metrics   *metrics.Metrics
	logger    logger.Logger

	mu         sync.Mutex
	params     fetcher.Params
	posts      []*reddit.Post
	cursor     string
	reachedEnd bool
	filter     selection.Filter
	gen        uint64
	cancel     context.CancelFunc
}

type options struct {
	api        API
	httpClient *http.Client
	metrics    *metrics.Metrics
	progress   fetcher.ProgressFunc
	logger     logger.Logger
}

type Option func(*options)

// WithAPI replaces the Reddit client
func WithAPI(api API) Option {
	return func(o *options) { o.api = api }
}

// WithHTTPClient sets the transport for token, API and media requests
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithProgress receives loaded/target after every fetched page
func WithProgress(fn fetcher.ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New wires a Scraper from configuration. Missing credentials are not
// an error here; the first request reports them.
func New(cfg *config.Config, creds reddit.Credentials, opts ...Option) (*Scraper, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "scraper")

	api := o.api
	if api == nil {
		api = newClient(cfg, creds, o, log)
	}

	s := &Scraper{
		cfg:       cfg,
		api:       api,
		cache:     media.NewCache(cfg.Fetch.MediaCacheSize, media.DefaultCacheTTL),
		selection: selection.New(),
		media:     ratelimit.NewPerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize),
		retry:     archiveRetry(cfg.Download, log),
		metrics:   o.metrics,
		logger:    log,
		filter:    selection.FilterAll,
	}

	fetchOpts := []fetcher.Option{
		fetcher.WithPageDelay(cfg.Fetch.PageDelay),
		fetcher.WithLogger(log),
	}
	if o.progress != nil {
		fetchOpts = append(fetchOpts, fetcher.WithProgress(o.progress))
	}
	s.fetcher = fetcher.New(api, fetchOpts...)

	commentOpts := []comments.Option{
		comments.WithConcurrency(cfg.Comments.Concurrency),
		comments.WithLogger(log),
	}
	if s.metrics != nil {
		s.cache.OnLookup(s.metrics.CacheLookup)
		commentOpts = append(commentOpts, comments.WithSettled(s.metrics.CommentsSettled))
	}
	s.comments = comments.New(api, cfg.Comments.Limit, commentOpts...)

	logger.LogComponentStart(log, "scraper", map[string]interface{}{
		"comment_limit": cfg.Comments.Limit,
		"page_delay":    cfg.Fetch.PageDelay.String(),
		"workers":       cfg.Download.ConcurrentDownloads,
	})
	return s, nil
}

func newClient(cfg *config.Config, creds reddit.Credentials, o *options, log logger.Logger) *reddit.Client {
	tokenOpts := []reddit.TokenOption{
		reddit.WithTokenURL(cfg.Reddit.TokenURL),
		reddit.WithTokenUserAgent(cfg.Reddit.UserAgent),
		reddit.WithTokenLogger(log),
	}
	clientOpts := []reddit.ClientOption{
		reddit.WithBaseURL(cfg.Reddit.APIBaseURL),
		reddit.WithUserAgent(cfg.Reddit.UserAgent),
	}
	if o.httpClient != nil {
		tokenOpts = append(tokenOpts, reddit.WithTokenHTTPClient(o.httpClient))
		clientOpts = append(clientOpts, reddit.WithHTTPClient(o.httpClient))
	}
	// after WithHTTPClient, which resets the media client
	clientOpts = append(clientOpts, reddit.WithMediaTimeout(cfg.Download.DownloadTimeout))
	if o.metrics != nil {
		clientOpts = append(clientOpts, reddit.WithRequestObserver(o.metrics))
	}

	tokens := reddit.NewTokenProvider(creds, tokenOpts...)
	return reddit.NewClient(tokens, cfg.Reddit.Timeout, log, clientOpts...)
}

// archiveRetry returns nil unless more than one attempt is configured
func archiveRetry(d config.DownloadConfig, log logger.Logger) *retry.Config {
	if d.RetryAttempts <= 1 {
		return nil
	}
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = d.RetryAttempts
	if d.RetryDelay > 0 {
		cfg.Backoff = &retry.ExponentialBackoff{
			BaseDelay:    d.RetryDelay,
			MaxDelay:     10 * d.RetryDelay,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		}
	}
	cfg.Logger = log
	return cfg
}

// begin starts a new generation and cancels the fetch in flight. fresh
// is applied under the same lock so a later fetch always wins.
func (s *Scraper) begin(ctx context.Context, fresh func()) (uint64, context.Context, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	if fresh != nil {
		fresh()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return s.gen, ctx, cancel
}

// Fetch runs a fresh fetch. The previous records, selection, comment
// threads and cached descriptors are dropped as soon as it starts.
func (s *Scraper) Fetch(ctx context.Context, params fetcher.Params) (*fetcher.Result, error) {
	params.Cursor = ""
	if err := params.Validate(); err != nil {
		return nil, err
	}

	gen, ctx, cancel := s.begin(ctx, func() {
		s.params = params
		s.posts, s.cursor, s.reachedEnd = nil, "", false
		s.selection.Clear()
		s.comments.Reset()
		s.cache.Purge()
	})
	defer cancel()

	res, err := s.fetcher.Fetch(ctx, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil, ErrStaleFetch
	}
	if err != nil {
		return nil, err
	}
	s.posts = res.Records
	s.cursor, s.reachedEnd = res.NextCursor, res.ReachedEnd
	s.observeFetch(res)
	s.logger.InfoWithFields("Fetch complete", map[string]interface{}{
		"source": params.Describe(),
		"posts":  len(res.Records),
		"more":   !res.ReachedEnd,
	})
	return res, nil
}

// LoadMore continues the last fetch from its cursor and appends the
// records not already present. The selection is kept.
func (s *Scraper) LoadMore(ctx context.Context) (*fetcher.Result, error) {
	s.mu.Lock()
	params, cursor, done := s.params, s.cursor, s.reachedEnd
	hasFetch := params.Kind != ""
	s.mu.Unlock()

	switch {
	case !hasFetch:
		return nil, ErrNoFetch
	case done || cursor == "":
		return nil, ErrNoMorePosts
	}
	params.Cursor = cursor

	gen, ctx, cancel := s.begin(ctx, nil)
	defer cancel()

	res, err := s.fetcher.Fetch(ctx, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil, ErrStaleFetch
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(s.posts))
	for _, p := range s.posts {
		seen[p.ID] = struct{}{}
	}
	added := make([]*reddit.Post, 0, len(res.Records))
	for _, p := range res.Records {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		added = append(added, p)
	}
	s.posts = append(s.posts, added...)
	s.cursor, s.reachedEnd = res.NextCursor, res.ReachedEnd
	s.observeFetch(res)

	s.logger.InfoWithFields("Loaded more posts", map[string]interface{}{
		"received": len(res.Records),
		"added":    len(added),
		"total":    len(s.posts),
	})
	return &fetcher.Result{
		Records:    added,
		NextCursor: res.NextCursor,
		ReachedEnd: res.ReachedEnd,
		Pages:      res.Pages,
	}, nil
}

// observeFetch must be called with s.mu held
func (s *Scraper) observeFetch(res *fetcher.Result) {
	if s.metrics != nil {
		s.metrics.FetchCompleted(len(res.Records), res.Pages)
	}
}

// Params of the current collection
func (s *Scraper) Params() fetcher.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Posts returns the whole collection in fetch order
func (s *Scraper) Posts() []*reddit.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*reddit.Post(nil), s.posts...)
}

// CanLoadMore reports whether the last fetch left a cursor
func (s *Scraper) CanLoadMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts) > 0 && !s.reachedEnd && s.cursor != ""
}

// Post looks a record up by id
func (s *Scraper) Post(id string) (*reddit.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id)
}

// find must be called with s.mu held
func (s *Scraper) find(id string) (*reddit.Post, bool) {
	for _, p := range s.posts {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Resolve returns the memoized media descriptor of a post
func (s *Scraper) Resolve(p *reddit.Post) *media.Descriptor {
	return s.cache.Resolve(p)
}

func (s *Scraper) Filter() selection.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SetFilter changes the displayed subset; the selection is untouched
func (s *Scraper) SetFilter(f selection.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Displayed returns the posts passing the active filter
func (s *Scraper) Displayed() []*reddit.Post {
	s.mu.Lock()
	posts, filter := s.posts, s.filter
	s.mu.Unlock()
	return selection.Displayed(posts, filter, s.cache.Resolve)
}

// Toggle flips the selection of a post and returns the new state. The
// lookup and the write happen under one lock, so a fetch starting in
// between cannot leave a stale id selected.
func (s *Scraper) Toggle(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.find(id); !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownPost, id)
	}
	return s.selection.Toggle(id), nil
}

// Select adds posts to the selection. Nothing is selected when any id
// is unknown.
func (s *Scraper) Select(ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.find(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPost, id)
		}
	}
	s.selection.Select(ids...)
	return nil
}

// SelectAll replaces the selection with the displayed posts
func (s *Scraper) SelectAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	displayed := selection.Displayed(s.posts, s.filter, s.cache.Resolve)
	s.selection.SelectAll(selection.IDsOf(displayed))
	return len(displayed)
}

func (s *Scraper) ClearSelection() {
	s.selection.Clear()
}

// SelectGalleryItems selects the posts whose gallery contains any of urls
func (s *Scraper) SelectGalleryItems(urls []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.AddGalleryItems(s.posts, urls, s.cache.Resolve)
}

func (s *Scraper) IsSelected(id string) bool {
	return s.selection.IsSelected(id)
}

// Selected returns the selected posts in collection order
func (s *Scraper) Selected() []*reddit.Post {
	return s.selection.Selected(s.Posts())
}

// Thread returns the comment state of a post
func (s *Scraper) Thread(id string) comments.Thread {
	return s.comments.Thread(id)
}

// ToggleComments loads a post's comments the first time and flips their
// visibility afterwards.
func (s *Scraper) ToggleComments(ctx context.Context, id string) (comments.Thread, error) {
	p, ok := s.Post(id)
	if !ok {
		return comments.Thread{}, fmt.Errorf("%w: %s", ErrUnknownPost, id)
	}
	return s.comments.Toggle(ctx, p), nil
}

// FetchSelectedComments loads comments of every selected post that has
// none yet.
func (s *Scraper) FetchSelectedComments(ctx context.Context) (comments.BatchSummary, error) {
	posts := s.Selected()
	if len(posts) == 0 {
		return comments.BatchSummary{}, ErrNoSelection
	}
	return s.fetchComments(ctx, posts)
}

// FetchDisplayedComments loads comments of every displayed post that has
// none yet.
func (s *Scraper) FetchDisplayedComments(ctx context.Context) (comments.BatchSummary, error) {
	posts := s.Displayed()
	if len(posts) == 0 {
		return comments.BatchSummary{}, ErrNothingDisplayed
	}
	return s.fetchComments(ctx, posts)
}

func (s *Scraper) fetchComments(ctx context.Context, posts []*reddit.Post) (comments.BatchSummary, error) {
	if s.comments.Limit() == 0 {
		return comments.BatchSummary{}, ErrCommentsDisabled
	}
	pending := make([]*reddit.Post, 0, len(posts))
	for _, p := range posts {
		if s.comments.Thread(p.ID).State == comments.NotLoaded {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		return comments.BatchSummary{}, nil
	}
	return s.comments.FetchAll(ctx, pending), nil
}

// exportInput picks the selected posts, or the displayed ones when
// nothing is selected.
func (s *Scraper) exportInput(now time.Time) export.Input {
	posts, chosen := s.Selected(), true
	if len(posts) == 0 {
		posts, chosen = s.Displayed(), false
	}
	return export.Input{
		Params:       s.Params(),
		Posts:        posts,
		Selected:     chosen,
		Filter:       string(s.Filter()),
		CommentLimit: s.comments.Limit(),
		Comments:     s.comments.Comments,
		Resolve:      s.cache.Resolve,
		Now:          now,
	}
}

// ExportJSON builds the export document and its file name
func (s *Scraper) ExportJSON(now time.Time) (string, []byte, error) {
	in := s.exportInput(now)
	doc, err := export.Build(in)
	if err != nil {
		return "", nil, err
	}
	data, err := export.Marshal(doc)
	if err != nil {
		return "", nil, err
	}
	return export.FileName(in.Params, in.Selected, now), data, nil
}

// WriteExport stores the export document in fs and returns its name
func (s *Scraper) WriteExport(fs fsadapter.FS, now time.Time) (string, error) {
	return export.Write(fs, s.exportInput(now))
}

// ArchiveName is the file name for an archive of the current source
func (s *Scraper) ArchiveName(now time.Time) string {
	return downloader.ArchiveName(s.Params(), now)
}

// Archive downloads the media of the selected posts into out
func (s *Scraper) Archive(ctx context.Context, out downloader.EntryWriter, obs ...downloader.Observer) (downloader.Report, error) {
	posts := s.Selected()
	if len(posts) == 0 {
		return downloader.Report{}, ErrNoSelection
	}

	all := observers(obs)
	if s.metrics != nil {
		all = append(all, s.metrics.ArchiveObserver())
	}
	opts := []downloader.Option{
		downloader.WithConcurrency(s.cfg.Download.ConcurrentDownloads),
		downloader.WithLimiter(s.media),
		downloader.WithObserver(all),
		downloader.WithLogger(s.logger),
	}
	if s.retry != nil {
		opts = append(opts, downloader.WithRetry(s.retry))
	}
	return downloader.NewArchiver(s.api, opts...).Archive(ctx, out, posts, s.cache.Resolve)
}

// Snapshot captures the state needed to continue in a later process
func (s *Scraper) Snapshot() *session.Session {
	threads := s.comments.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.selection.IDs()
	return &session.Session{
		Params:     s.params,
		Posts:      append([]*reddit.Post(nil), s.posts...),
		NextCursor: s.cursor,
		ReachedEnd: s.reachedEnd,
		Filter:     string(s.filter),
		Selected:   ids,
		Threads:    threads,
	}
}

// Restore replaces the state with a snapshot. Selected ids that are no
// longer in the collection are dropped.
func (s *Scraper) Restore(snap *session.Session) error {
	if snap == nil {
		return nil
	}
	filter, err := selection.ParseFilter(snap.Filter)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.params = snap.Params
	s.posts = append([]*reddit.Post(nil), snap.Posts...)
	s.cursor, s.reachedEnd = snap.NextCursor, snap.ReachedEnd
	s.filter = filter
	s.selection.Clear()
	s.selection.Select(snap.Selected...)
	dropped := s.selection.Prune(s.posts)
	s.mu.Unlock()

	s.cache.Purge()
	s.comments.Restore(snap.Threads)
	if dropped > 0 {
		s.logger.WithField("dropped", dropped).Debug("Dropped selected ids missing from the session posts")
	}
	return nil
}
