package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	redditOrange = lipgloss.Color("#FF4500")
	upvoteGreen  = lipgloss.Color("#46D160")
	downvoteBlue = lipgloss.Color("#7193FF")
	periwinkle   = lipgloss.Color("#9494FF")
	darkBg       = lipgloss.Color("#0B1416")
	panelBg      = lipgloss.Color("#1A282D")
	dimWhite     = lipgloss.Color("#B0B0B0")
	faint        = lipgloss.Color("#626262")

	baseStyle = lipgloss.NewStyle().
			Background(darkBg).
			Foreground(dimWhite)

	headerStyle = lipgloss.NewStyle().
			Foreground(redditOrange).
			Bold(true).
			Padding(1, 0)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(redditOrange).
			Background(panelBg).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Background(redditOrange).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(periwinkle).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	successStyle = lipgloss.NewStyle().
			Foreground(upvoteGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(downvoteBlue).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(redditOrange).
			Bold(true)

	entryStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	entryFailedStyle = lipgloss.NewStyle().
				Foreground(downvoteBlue).
				PaddingLeft(2)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	logMessageStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	helpStyle = lipgloss.NewStyle().
			Foreground(faint).
			Padding(1, 0, 0, 2)
)

// failureStyle picks the summary color from the share of failed jobs
func failureStyle(failed, total int) lipgloss.Style {
	switch {
	case failed == 0:
		return successStyle
	case total > 0 && failed*2 >= total:
		return errorStyle
	default:
		return warningStyle
	}
}
