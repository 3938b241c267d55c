package downloader

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"sync"
	"time"

	errs "redditscraper/pkg/errors"
	"redditscraper/pkg/logger"
	"redditscraper/pkg/ratelimit"
	"redditscraper/pkg/retry"
)

// Result is the settled outcome of one job
type Result struct {
	Job      Job
	Success  bool
	Error    error
	Message  string
	Duration time.Duration
	Size     int
}

// MediaDownloader fetches the raw bytes behind a media URL
type MediaDownloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// EntryWriter stores archive entries. fsadapter.FS satisfies it.
type EntryWriter interface {
	WriteFile(name string, data []byte, perm os.FileMode) error
}

// WorkerPool downloads jobs concurrently and writes each outcome as an
// archive entry.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	client      MediaDownloader
	entries     EntryWriter
	rateLimiter ratelimit.Limiter
	retry       *retry.Config
	logger      logger.Logger
}

// NewWorkerPool creates a pool. A nil limiter means no pacing and a nil
// retry config means one attempt per job.
func NewWorkerPool(
	numWorkers int,
	client MediaDownloader,
	entries EntryWriter,
	rateLimiter ratelimit.Limiter,
	retryCfg *retry.Config,
	log logger.Logger,
) *WorkerPool {
	if log == nil {
		log = logger.GetLogger()
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		client:      client,
		entries:     entries,
		rateLimiter: rateLimiter,
		retry:       retryCfg,
		logger:      log,
	}
}

// Start launches the workers. Cancelling ctx stops them after their
// current job.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.ctx, wp.cancel = context.WithCancel(ctx)

	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for the workers and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a job
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob settles one job: the media on success, a placeholder
// describing the failure otherwise.
func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}

	data, err := wp.fetch(job)
	if err == nil {
		result.Size = len(data)
		err = wp.entries.WriteFile(job.Filename, data, 0644)
	}
	result.Duration = time.Since(start)

	if err == nil {
		result.Success = true
		logger.LogArchiveEntry(wp.logger, job.PostID, job.Filename, nil)
		return result
	}

	result.Error = err
	result.Message = failureMessage(err, job.Filename)
	result.Size = 0
	logger.LogArchiveEntry(wp.logger, job.PostID, job.Filename, err)

	body := fmt.Sprintf("Failed to download:\nURL: %s\nError: %s", job.URL, result.Message)
	if werr := wp.entries.WriteFile(job.Filename+"_FETCH_ERROR.txt", []byte(body), 0644); werr != nil {
		wp.logger.ErrorWithFields("Failed to write error placeholder", map[string]interface{}{
			"worker_id": workerID,
			"filename":  job.Filename,
			"error":     werr.Error(),
		})
	}
	return result
}

func (wp *WorkerPool) fetch(job Job) ([]byte, error) {
	if !wp.rateLimiter.Allow() {
		if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
			return nil, err
		}
	}
	if wp.retry == nil {
		return wp.client.Download(wp.ctx, job.URL)
	}
	return retry.DoWithResult(wp.ctx, func(ctx context.Context) ([]byte, error) {
		return wp.client.Download(ctx, job.URL)
	}, wp.retry)
}

// failureMessage is the text stored in the placeholder and the error log.
// HTTP status failures name the file like "HTTP error 404 for x.jpg".
func failureMessage(err error, filename string) string {
	var e *errs.Error
	if stderrors.As(err, &e) {
		if e.Type == errs.ErrorTypeArchiveItem && e.Code != 0 {
			return fmt.Sprintf("%s for %s", e.Message, filename)
		}
		return e.UserMessage()
	}
	return err.Error()
}
