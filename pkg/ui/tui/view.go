package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"redditscraper/pkg/ui"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{m.renderHeader()}

	half := max(20, (m.width-4)/2)
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(half),
		m.renderEntriesPanel(half),
	)
	right := m.renderLogsPanel(half)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render(m.hint()))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m Model) renderHeader() string {
	status := m.spinner.View() + " archiving"
	switch {
	case m.report != nil:
		status = successStyle.Render("✓ done")
	case m.aborted:
		status = errorStyle.Render("✗ failed")
	case m.quitting:
		status = warningStyle.Render("cancelling")
	}
	line := fmt.Sprintf("r/ %s  %s", m.title, status)
	return headerStyle.Width(m.width).Render(line)
}

func (m Model) renderStatsPanel(width int) string {
	elapsed := m.now().Sub(m.startTime)
	if m.report != nil && len(m.entries) > 0 {
		elapsed = m.entries[len(m.entries)-1].At.Sub(m.startTime)
	}

	stats := []string{
		m.progress.ViewAs(m.Percent()),
		stat("Files:", fmt.Sprintf("%d / %d", m.Settled(), m.total)),
		stat("Added:", successStyle.Render(fmt.Sprintf("%d", m.succeeded))),
		stat("Failed:", failureStyle(m.failed, m.total).Render(fmt.Sprintf("%d", m.failed))),
		stat("Size:", ui.FormatBytes(m.bytes)),
		stat("Rate:", ui.FormatBytes(int64(m.Rate()))+"/s"),
		stat("Elapsed:", formatDuration(elapsed)),
	}
	if m.running() {
		stats = append(stats, stat("ETA:", formatDuration(m.ETA())))
	}

	return panel(width, " ARCHIVE ", lipgloss.JoinVertical(lipgloss.Left, stats...))
}

func (m Model) renderEntriesPanel(width int) string {
	if len(m.entries) == 0 {
		return panel(width, " ENTRIES ", logMessageStyle.Render("Waiting for the first file..."))
	}

	start := max(0, len(m.entries)-8)
	var lines []string
	for _, e := range m.entries[start:] {
		if e.Success {
			lines = append(lines, entryStyle.Render(fmt.Sprintf("✓ %s  %s", truncate(e.Filename, width-20), ui.FormatBytes(int64(e.Size)))))
		} else {
			lines = append(lines, entryFailedStyle.Render("✗ "+truncate(e.Filename, width-10)))
		}
	}
	if start > 0 {
		lines = append([]string{logMessageStyle.Render(fmt.Sprintf("  ... %d earlier", start))}, lines...)
	}
	return panel(width, " ENTRIES ", lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderLogsPanel(width int) string {
	start := max(0, len(m.logMessages)-10)

	var logs []string
	for _, l := range m.logMessages[start:] {
		ts := logTimestampStyle.Render(l.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(l.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", l.Level))
		logs = append(logs, fmt.Sprintf("%s %s %s", ts, level, logMessageStyle.Render(truncate(l.Message, width-25))))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = logMessageStyle.Render("No logs yet...")
	}
	return panel(width, " LOG ", content)
}

func (m Model) renderHelp() string {
	help := `
  q / esc   cancel the archive, press again to leave
  enter     leave once the archive is written
  ctrl+l    clear the log
  ?         toggle this help

  ` + successStyle.Render("✓") + `  entry added    ` + errorStyle.Render("✗") + `  placeholder written
`
	return panelStyle.Width(m.width).Render(help)
}

func (m Model) hint() string {
	if !m.running() {
		return "Press enter to exit · ? for help"
	}
	return "Press q to cancel · ? for help"
}

func panel(width int, title, content string) string {
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), content),
	)
}

func stat(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

func truncate(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}
