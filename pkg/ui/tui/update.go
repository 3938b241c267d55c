package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"redditscraper/internal/downloader"
)

// BeginMsg starts a run of Total jobs
type BeginMsg struct {
	Total int
}

// SettledMsg carries one finished job
type SettledMsg struct {
	Result downloader.Result
}

// DoneMsg carries the final report
type DoneMsg struct {
	Report downloader.Report
}

// LogMsg adds a line to the log panel
type LogMsg struct {
	Level   string
	Message string
}

// AbortMsg ends a run that failed before producing a report
type AbortMsg struct {
	Err error
}

// TickMsg refreshes the elapsed time and rate
type TickMsg time.Time

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, msg.Width/2-12)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if !m.running() {
			return m, nil
		}
		return m, tickCmd()

	case BeginMsg:
		m.begin(msg.Total)
		return m, nil

	case SettledMsg:
		m.settle(msg.Result)
		return m, nil

	case DoneMsg:
		m.finish(msg.Report)
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case AbortMsg:
		m.aborted = true
		m.addLog("ERROR", msg.Err.Error())
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case LogMsg:
		m.addLog(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c", "esc":
		if m.running() && !m.quitting {
			m.quitting = true
			m.addLog("WARN", "Cancelling archive")
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, nil
		}
		return m, tea.Quit

	case "enter":
		if !m.running() {
			return m, tea.Quit
		}

	case "?":
		m.showHelp = !m.showHelp

	case "ctrl+l":
		m.logMessages = nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
