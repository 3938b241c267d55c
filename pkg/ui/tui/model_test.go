package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"redditscraper/internal/downloader"
)

func newTestModel(clock *time.Time) *Model {
	m := NewModel("pics")
	m.now = func() time.Time { return *clock }
	return &m
}

func result(post, file string, ok bool, size int) downloader.Result {
	r := downloader.Result{
		Job:     downloader.Job{PostID: post, Filename: file},
		Success: ok,
		Size:    size,
	}
	if !ok {
		r.Error = errors.New("status 404")
		r.Message = "Failed (" + post + "): " + file + " - HTTP error 404 for " + file
	}
	return r
}

func TestModelTracksRun(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := newTestModel(&clock)

	m.Update(BeginMsg{Total: 4})
	if m.total != 4 || m.Settled() != 0 {
		t.Fatalf("after begin: total=%d settled=%d", m.total, m.Settled())
	}

	clock = clock.Add(2 * time.Second)
	m.Update(SettledMsg{Result: result("a", "a.jpg", true, 1000)})
	m.Update(SettledMsg{Result: result("b", "b.jpg", false, 0)})

	if m.succeeded != 1 || m.failed != 1 {
		t.Errorf("succeeded=%d failed=%d, want 1 and 1", m.succeeded, m.failed)
	}
	if m.bytes != 1000 {
		t.Errorf("bytes = %d, want 1000", m.bytes)
	}
	if got := m.Percent(); got != 0.5 {
		t.Errorf("Percent() = %v, want 0.5", got)
	}
	if got := m.Rate(); got != 500 {
		t.Errorf("Rate() = %v, want 500", got)
	}
	if got := m.ETA(); got != 2*time.Second {
		t.Errorf("ETA() = %v, want 2s", got)
	}
	if f := m.Failures(); len(f) != 1 || f[0].Filename != "b.jpg" {
		t.Errorf("Failures() = %+v", f)
	}

	if _, ok := m.Report(); ok {
		t.Error("report available before done")
	}
	m.Update(DoneMsg{Report: downloader.Report{Attempted: 2, Succeeded: 1, Failed: 1}})
	r, ok := m.Report()
	if !ok || r.Failed != 1 {
		t.Errorf("Report() = %+v, %v", r, ok)
	}
	if m.running() {
		t.Error("model still running after done")
	}
}

func TestQuitCancelsThenExits(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := newTestModel(&clock)

	cancelled := 0
	m.onQuit = func() { cancelled++ }
	m.Update(BeginMsg{Total: 2})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		t.Error("first q should not quit while the archive runs")
	}
	if cancelled != 1 || !m.quitting {
		t.Fatalf("cancelled=%d quitting=%v", cancelled, m.quitting)
	}

	_, cmd = m.Update(DoneMsg{Report: downloader.Report{Attempted: 2}})
	if cmd == nil {
		t.Fatal("done after cancel should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected a quit message")
	}
}

func TestAbortAllowsExit(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := newTestModel(&clock)

	m.Update(AbortMsg{Err: downloader.ErrNothingToDownload})
	if m.running() {
		t.Fatal("aborted model still running")
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should exit after abort")
	}
	last := m.logMessages[len(m.logMessages)-1]
	if last.Level != "ERROR" || last.Message != "nothing to download" {
		t.Errorf("last log = %+v", last)
	}
}

func TestLogTrimming(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := newTestModel(&clock)
	m.maxLogMessages = 3

	for i := 0; i < 5; i++ {
		m.Update(LogMsg{Level: "INFO", Message: strings.Repeat("x", i+1)})
	}
	if len(m.logMessages) != 3 {
		t.Fatalf("kept %d log lines, want 3", len(m.logMessages))
	}
	if m.logMessages[0].Message != "xxx" {
		t.Errorf("oldest kept = %q, want xxx", m.logMessages[0].Message)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if len(m.logMessages) != 0 {
		t.Error("ctrl+l should clear the log")
	}
}

func TestView(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := newTestModel(&clock)

	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() before size = %q", got)
	}

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m.Update(BeginMsg{Total: 1})
	m.Update(SettledMsg{Result: result("a", "cat.jpg", true, 2048)})
	m.Update(DoneMsg{Report: downloader.Report{Attempted: 1, Succeeded: 1, Bytes: 2048}})

	view := m.View()
	for _, want := range []string{"r/ pics", "ARCHIVE", "cat.jpg", "Press enter to exit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{75 * time.Second, "01:15"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}

	if got := plural(1, "file"); got != "1 file" {
		t.Errorf("plural(1) = %q", got)
	}
	if got := plural(3, "failure"); got != "3 failures" {
		t.Errorf("plural(3) = %q", got)
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
}
