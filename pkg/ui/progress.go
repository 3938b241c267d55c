package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"redditscraper/internal/downloader"
)

// ArchiveProgress renders an archive run as a progress bar. It
// implements downloader.Observer.
type ArchiveProgress struct {
	w     io.Writer
	quiet bool

	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	bytes    int64
	failures []string
}

// NewArchiveProgress writes to w; quiet suppresses the bar but keeps the
// summary.
func NewArchiveProgress(w io.Writer, quiet bool) *ArchiveProgress {
	return &ArchiveProgress{w: w, quiet: quiet}
}

func (p *ArchiveProgress) Begin(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bytes = 0
	p.failures = nil
	if p.quiet {
		p.bar = progressbar.DefaultSilent(int64(total))
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("Archiving media"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
	_ = p.bar.RenderBlank()
}

func (p *ArchiveProgress) Settled(r downloader.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.Success {
		p.bytes += int64(r.Size)
	} else {
		p.failures = append(p.failures, r.Message)
	}
	if p.bar != nil {
		p.bar.Describe(fmt.Sprintf("Archiving media (%s)", FormatBytes(p.bytes)))
		_ = p.bar.Add(1)
	}
}

func (p *ArchiveProgress) Done(r downloader.Report) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		_ = p.bar.Finish()
	}
	PrintArchiveSummary(p.w, r)
}

// PrintArchiveSummary writes the outcome of an archive run
func PrintArchiveSummary(w io.Writer, r downloader.Report) {
	line := fmt.Sprintf("Archived %d of %d files (%s)", r.Succeeded, r.Attempted, FormatBytes(r.Bytes))
	if r.Failed == 0 {
		fmt.Fprintln(w, Green(line))
		return
	}
	fmt.Fprintln(w, Yellow(fmt.Sprintf("%s, %d failed:", line, r.Failed)))
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s %s\n", Red("✗"), e)
	}
}

// Spinner shows an indeterminate bar while a fetch runs. Stop clears it.
type Spinner struct {
	bar *progressbar.ProgressBar
}

func NewSpinner(w io.Writer, title string, quiet bool) *Spinner {
	if quiet {
		return &Spinner{bar: progressbar.DefaultSilent(-1)}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(title),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	_ = bar.RenderBlank()
	return &Spinner{bar: bar}
}

// Page advances the spinner once per fetched page
func (s *Spinner) Page(loaded int) {
	s.bar.Describe(fmt.Sprintf("Fetched %d posts", loaded))
	_ = s.bar.Add(1)
}

func (s *Spinner) Stop() {
	_ = s.bar.Finish()
}
