package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"redditscraper/internal/downloader"
)

func TestArchiveProgressSummary(t *testing.T) {
	plain(t)

	var buf bytes.Buffer
	p := NewArchiveProgress(&buf, true)
	p.Begin(2)
	p.Settled(downloader.Result{Success: true, Size: 2000})
	p.Settled(downloader.Result{Success: false, Error: errors.New("boom"), Message: "Failed (p1): a.jpg - HTTP error 404 for a.jpg"})
	p.Done(downloader.Report{Attempted: 2, Succeeded: 1, Failed: 1, Bytes: 2000,
		Errors: []string{"Failed (p1): a.jpg - HTTP error 404 for a.jpg"}})

	out := buf.String()
	assert.Contains(t, out, "Archived 1 of 2 files (2.0 kB), 1 failed:")
	assert.Contains(t, out, "✗ Failed (p1): a.jpg - HTTP error 404 for a.jpg")
	assert.Equal(t, int64(2000), p.bytes)
	assert.Len(t, p.failures, 1)
}

func TestPrintArchiveSummaryClean(t *testing.T) {
	plain(t)

	var buf bytes.Buffer
	PrintArchiveSummary(&buf, downloader.Report{Attempted: 3, Succeeded: 3, Bytes: 0})
	assert.Equal(t, "Archived 3 of 3 files (0 B)\n", buf.String())
}

func TestSpinnerQuiet(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Fetching", true)
	s.Page(25)
	s.Stop()
	assert.Empty(t, buf.String())
}
