package downloader

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	errs "redditscraper/pkg/errors"
	"redditscraper/pkg/logger"
	"redditscraper/pkg/ratelimit"
	"redditscraper/pkg/retry"
)

// mockDownloader serves bytes per URL and fails for URLs in failures
type mockDownloader struct {
	delay    time.Duration
	failures map[string]error
	calls    int32
	inFlight int32
	peak     int32
}

func (m *mockDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	atomic.AddInt32(&m.calls, 1)
	n := atomic.AddInt32(&m.inFlight, 1)
	defer atomic.AddInt32(&m.inFlight, -1)
	for {
		p := atomic.LoadInt32(&m.peak)
		if n <= p || atomic.CompareAndSwapInt32(&m.peak, p, n) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := m.failures[url]; ok {
		return nil, err
	}
	return []byte("data:" + url), nil
}

// memEntries is an in-memory EntryWriter
type memEntries struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemEntries() *memEntries {
	return &memEntries{files: make(map[string][]byte)}
}

func (m *memEntries) WriteFile(name string, data []byte, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
	return nil
}

func (m *memEntries) get(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.files[name]
	return string(d), ok
}

func runPool(pool *WorkerPool, jobs []Job) []Result {
	pool.Start(context.Background())
	go func() {
		defer pool.Stop()
		for _, j := range jobs {
			if err := pool.Submit(j); err != nil {
				return
			}
		}
	}()

	var results []Result
	for r := range pool.Results() {
		results = append(results, r)
	}
	return results
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	client := &mockDownloader{delay: 5 * time.Millisecond}
	entries := newMemEntries()
	pool := NewWorkerPool(3, client, entries, nil, nil, logger.NewNopLogger())

	var jobs []Job
	for i := 0; i < 10; i++ {
		jobs = append(jobs, Job{URL: fmt.Sprintf("https://i.redd.it/%d.jpg", i), Filename: fmt.Sprintf("f%d.jpg", i), PostID: "p"})
	}

	results := runPool(pool, jobs)
	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Errorf("job %s failed: %v", r.Job.Filename, r.Error)
		}
	}
	if got, _ := entries.get("f3.jpg"); got != "data:https://i.redd.it/3.jpg" {
		t.Errorf("unexpected entry content %q", got)
	}
}

func TestWorkerPoolWithErrors(t *testing.T) {
	failing := "https://i.redd.it/bad.jpg"
	client := &mockDownloader{failures: map[string]error{
		failing: &errs.Error{Type: errs.ErrorTypeArchiveItem, Message: "HTTP error 404", Code: 404},
	}}
	entries := newMemEntries()
	pool := NewWorkerPool(2, client, entries, nil, nil, logger.NewNopLogger())

	results := runPool(pool, []Job{
		{URL: "https://i.redd.it/ok.jpg", Filename: "ok.jpg", PostID: "a"},
		{URL: failing, Filename: "bad.jpg", PostID: "b"},
	})

	var failed *Result
	for i := range results {
		if !results[i].Success {
			failed = &results[i]
		}
	}
	if failed == nil {
		t.Fatal("expected one failed result")
	}
	if failed.Message != "HTTP error 404 for bad.jpg" {
		t.Errorf("unexpected message %q", failed.Message)
	}

	placeholder, ok := entries.get("bad.jpg_FETCH_ERROR.txt")
	if !ok {
		t.Fatal("expected placeholder entry")
	}
	want := "Failed to download:\nURL: " + failing + "\nError: HTTP error 404 for bad.jpg"
	if placeholder != want {
		t.Errorf("placeholder = %q, want %q", placeholder, want)
	}
	if _, ok := entries.get("bad.jpg"); ok {
		t.Error("failed job must not write the media entry")
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	client := &mockDownloader{delay: 20 * time.Millisecond}
	pool := NewWorkerPool(4, client, newMemEntries(), nil, nil, logger.NewNopLogger())

	var jobs []Job
	for i := 0; i < 12; i++ {
		jobs = append(jobs, Job{URL: fmt.Sprintf("u%d", i), Filename: fmt.Sprintf("f%d", i)})
	}
	runPool(pool, jobs)

	if peak := atomic.LoadInt32(&client.peak); peak > 4 {
		t.Errorf("expected at most 4 concurrent downloads, saw %d", peak)
	}
	if calls := atomic.LoadInt32(&client.calls); calls != 12 {
		t.Errorf("expected 12 downloads, got %d", calls)
	}
}

func TestWorkerPoolRetry(t *testing.T) {
	flaky := &flakyDownloader{failFirst: 2}
	pool := NewWorkerPool(1, flaky, newMemEntries(), ratelimit.Unlimited{},
		&retry.Config{MaxAttempts: 3, Backoff: &retry.ConstantBackoff{Delay: time.Millisecond}},
		logger.NewNopLogger())

	results := runPool(pool, []Job{{URL: "u", Filename: "f"}})
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("expected retried success, got %+v", results)
	}
	if flaky.calls != 3 {
		t.Errorf("expected 3 calls, got %d", flaky.calls)
	}
}

func TestFailureMessage(t *testing.T) {
	if got := failureMessage(errs.NewNetworkError(fmt.Errorf("reset")), "x.jpg"); !strings.Contains(got, "reset") {
		t.Errorf("unexpected message %q", got)
	}
	if got := failureMessage(fmt.Errorf("plain"), "x.jpg"); got != "plain" {
		t.Errorf("unexpected message %q", got)
	}
}

type flakyDownloader struct {
	failFirst int
	calls     int
}

func (f *flakyDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	if f.calls <= f.failFirst {
		return nil, &errs.Error{Type: errs.ErrorTypeArchiveItem, Message: "HTTP error 503", Code: 503}
	}
	return []byte("ok"), nil
}
