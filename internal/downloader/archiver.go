package downloader

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"redditscraper/pkg/export"
	"redditscraper/pkg/fetcher"
	"redditscraper/pkg/logger"
	"redditscraper/pkg/media"
	"redditscraper/pkg/ratelimit"
	"redditscraper/pkg/reddit"
	"redditscraper/pkg/retry"
)

// ErrNothingToDownload means the selected posts carry no image or video
var ErrNothingToDownload = stderrors.New("nothing to download")

const (
	ErrorReportName    = "_DOWNLOAD_ERRORS.txt"
	DefaultConcurrency = 5
)

// Report summarises an archive run
type Report struct {
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
	Bytes     int64    `json:"bytes"`
}

// Observer follows an archive run. Settled is called from a single
// goroutine.
type Observer interface {
	Begin(total int)
	Settled(r Result)
	Done(r Report)
}

// Archiver collects media of posts into an archive
type Archiver struct {
	client      MediaDownloader
	concurrency int
	limiter     ratelimit.Limiter
	retry       *retry.Config
	observer    Observer
	now         func() time.Time
	logger      logger.Logger
}

type Option func(*Archiver)

func WithConcurrency(n int) Option {
	return func(a *Archiver) { a.concurrency = n }
}

func WithLimiter(l ratelimit.Limiter) Option {
	return func(a *Archiver) { a.limiter = l }
}

// WithRetry enables retrying failed downloads
func WithRetry(cfg *retry.Config) Option {
	return func(a *Archiver) { a.retry = cfg }
}

func WithObserver(o Observer) Option {
	return func(a *Archiver) { a.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

func WithLogger(l logger.Logger) Option {
	return func(a *Archiver) { a.logger = l }
}

func NewArchiver(client MediaDownloader, opts ...Option) *Archiver {
	a := &Archiver{
		client:      client,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.GetLogger()
	}
	return a
}

// Archive downloads every image and video of posts into out. Each job
// settles on its own; failures become placeholder entries and, at the
// end, an error report entry.
func (a *Archiver) Archive(ctx context.Context, out EntryWriter, posts []*reddit.Post, resolve func(*reddit.Post) *media.Descriptor) (Report, error) {
	jobs, invalid := BuildJobs(posts, resolve)
	for _, line := range invalid {
		a.logger.Warn(line)
	}
	if len(jobs) == 0 {
		return Report{}, ErrNothingToDownload
	}

	// items with an unusable URL count as attempted and failed
	report := Report{Attempted: len(jobs) + len(invalid), Errors: invalid}
	if a.observer != nil {
		a.observer.Begin(len(jobs))
	}
	logger.LogComponentStart(a.logger, "archiver", map[string]interface{}{
		"jobs":    len(jobs),
		"workers": a.concurrency,
	})

	pool := NewWorkerPool(a.concurrency, a.client, out, a.limiter, a.retry, a.logger)
	pool.Start(ctx)
	go func() {
		defer pool.Stop()
		for _, job := range jobs {
			if err := pool.Submit(job); err != nil {
				return
			}
		}
	}()

	for res := range pool.Results() {
		if res.Success {
			report.Succeeded++
			report.Bytes += int64(res.Size)
		} else {
			line := fmt.Sprintf("Failed (%s): %s - %s", res.Job.PostID, res.Job.Filename, res.Message)
			a.logger.Error(line)
			report.Errors = append(report.Errors, line)
		}
		if a.observer != nil {
			a.observer.Settled(res)
		}
	}
	report.Failed = len(report.Errors)

	if len(report.Errors) > 0 {
		if err := out.WriteFile(ErrorReportName, []byte(errorReport(report, a.now())), 0644); err != nil {
			return report, fmt.Errorf("write error report: %w", err)
		}
	}

	a.logger.InfoWithFields("Archive complete", map[string]interface{}{
		"attempted": report.Attempted,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"bytes":     report.Bytes,
	})
	if a.observer != nil {
		a.observer.Done(report)
	}
	return report, ctx.Err()
}

func errorReport(r Report, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Media Download Report (%s)\n\n", export.Timestamp(now))
	fmt.Fprintf(&b, "Total Files Attempted: %d\n", r.Attempted)
	fmt.Fprintf(&b, "Successfully Added: %d\n", r.Succeeded)
	fmt.Fprintf(&b, "Failed: %d\n\n", r.Failed)
	b.WriteString("Errors:\n-------\n")
	b.WriteString(strings.Join(r.Errors, "\n"))
	b.WriteString("\n")
	return b.String()
}

// ArchiveName returns reddit_media_<source>_<stamp>.zip
func ArchiveName(p fetcher.Params, now time.Time) string {
	return "reddit_media_" + export.SourceName(p, "reddit_media") + "_" + export.FileStamp(now) + ".zip"
}
