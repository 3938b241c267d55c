package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"redditscraper/internal/downloader"
)

// Entry is one settled archive job
type Entry struct {
	PostID   string
	Filename string
	Success  bool
	Message  string
	Size     int
	Duration time.Duration
	At       time.Time
}

// LogMessage is a line in the log panel
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the archive progress view. It is only mutated from Update.
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	title     string
	total     int
	entries   []Entry
	succeeded int
	failed    int
	bytes     int64
	startTime time.Time
	report    *downloader.Report
	aborted   bool

	width          int
	height         int
	showHelp       bool
	quitting       bool
	logMessages    []LogMessage
	maxLogMessages int
	maxEntries     int

	now    func() time.Time
	onQuit func()
}

// NewModel builds the view for an archive titled title
func NewModel(title string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(redditOrange)

	p := progress.New(progress.WithGradient(string(redditOrange), string(upvoteGreen)))
	p.Width = 40

	return Model{
		spinner:        s,
		progress:       p,
		title:          title,
		startTime:      time.Now(),
		maxLogMessages: 50,
		maxEntries:     200,
		now:            time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *Model) begin(total int) {
	m.total = total
	m.entries = nil
	m.succeeded, m.failed, m.bytes = 0, 0, 0
	m.report = nil
	m.startTime = m.now()
	m.addLog("INFO", "Archiving "+plural(total, "file"))
}

func (m *Model) settle(r downloader.Result) {
	e := Entry{
		PostID:   r.Job.PostID,
		Filename: r.Job.Filename,
		Success:  r.Success,
		Message:  r.Message,
		Size:     r.Size,
		Duration: r.Duration,
		At:       m.now(),
	}
	m.entries = append(m.entries, e)
	if len(m.entries) > m.maxEntries {
		m.entries = m.entries[len(m.entries)-m.maxEntries:]
	}
	if r.Success {
		m.succeeded++
		m.bytes += int64(r.Size)
		return
	}
	m.failed++
	m.addLog("ERROR", r.Message)
}

func (m *Model) finish(r downloader.Report) {
	m.report = &r
	level := "SUCCESS"
	if r.Failed > 0 {
		level = "WARN"
	}
	m.addLog(level, "Archive complete: "+plural(r.Succeeded, "file")+" added, "+plural(r.Failed, "failure"))
}

func (m *Model) addLog(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = downvoteBlue
	case "WARN":
		color = redditOrange
	case "SUCCESS":
		color = upvoteGreen
	case "INFO":
		color = periwinkle
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
		Color:   color,
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

func (m Model) running() bool {
	return m.report == nil && !m.aborted
}

// Settled is the number of jobs that finished either way
func (m Model) Settled() int {
	return m.succeeded + m.failed
}

// Percent of jobs settled, between 0 and 1
func (m Model) Percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.Settled()) / float64(m.total)
}

// Rate is the average throughput in bytes per second
func (m Model) Rate() float64 {
	elapsed := m.now().Sub(m.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.bytes) / elapsed
}

// ETA extrapolates the remaining time from the average time per job
func (m Model) ETA() time.Duration {
	settled := m.Settled()
	remaining := m.total - settled
	if settled == 0 || remaining <= 0 {
		return 0
	}
	per := m.now().Sub(m.startTime) / time.Duration(settled)
	return per * time.Duration(remaining)
}

// Report is the final report once the run is done
func (m Model) Report() (downloader.Report, bool) {
	if m.report == nil {
		return downloader.Report{}, false
	}
	return *m.report, true
}

// Failures returns the failed entries, oldest first
func (m Model) Failures() []Entry {
	var out []Entry
	for _, e := range m.entries {
		if !e.Success {
			out = append(out, e)
		}
	}
	return out
}
