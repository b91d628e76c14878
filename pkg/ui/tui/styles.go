package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accentCyan    = lipgloss.Color("#00B8D9")
	accentMagenta = lipgloss.Color("#C2185B")
	okGreen       = lipgloss.Color("#2E7D32")
	warnOrange    = lipgloss.Color("#EF6C00")
	errRed        = lipgloss.Color("#D32F2F")
	dimWhite      = lipgloss.Color("#B0B0B0")
	darkBg        = lipgloss.Color("#101418")

	headerStyle = lipgloss.NewStyle().
			Foreground(accentCyan).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentMagenta).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(accentMagenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(accentCyan).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0"))

	successStyle = lipgloss.NewStyle().
			Foreground(okGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warnOrange).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0, 0, 1)
)

// levelStyle picks the log level colour
func levelStyle(level string) lipgloss.Style {
	switch level {
	case LevelError:
		return errorStyle
	case LevelWarn:
		return warningStyle
	case LevelSuccess:
		return successStyle
	default:
		return statsLabelStyle
	}
}
