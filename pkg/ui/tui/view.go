package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the dashboard
func (m *Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderStatsPanel(),
		m.renderRecentPanel(),
		m.renderLogsPanel(),
	}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q quit • ? help"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	status := m.spinner.View() + " exporting"
	if m.finished {
		status = successStyle.Render("✓ finished")
	}
	return headerStyle.Render("hdexport · " + status)
}

func (m *Model) renderStatsPanel() string {
	elapsed := m.now().Sub(m.startTime)
	pacing := dimStyle.Render("normal")
	if m.nextDelay > 0 {
		pacing = warningStyle.Render(fmt.Sprintf("slowed to %s after 429", m.nextDelay))
	}

	lines := []string{
		titleStyle.Render(" EXPORT "),
		stat("Pages", fmt.Sprintf("%d", m.pages)),
		stat("Invoices", fmt.Sprintf("%d/%d", m.Done(), m.found)),
		stat("Saved", successStyle.Render(fmt.Sprintf("%d", m.saved))),
		stat("Failed", failedText(m.failed)),
		stat("Rate limited", fmt.Sprintf("%d", m.rateLimited)),
		stat("Pacing", pacing),
		stat("Elapsed", formatDuration(elapsed)),
		stat("Speed", fmt.Sprintf("%.1f/min", m.Rate())),
		m.progress.ViewAs(m.Percent()),
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderRecentPanel() string {
	lines := []string{titleStyle.Render(" RECENT ")}
	if len(m.recent) == 0 {
		lines = append(lines, dimStyle.Render("Waiting for the first invoice..."))
	}
	for _, r := range m.recent {
		if r.State == ItemFailed {
			lines = append(lines, errorStyle.Render("✗ ")+r.Invoice+dimStyle.Render(" "+errText(r.Error)))
			continue
		}
		lines = append(lines, successStyle.Render("✓ ")+r.Invoice+dimStyle.Render(" "+r.File))
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderLogsPanel() string {
	lines := []string{titleStyle.Render(" LOG ")}

	start := len(m.logMessages) - 8
	if start < 0 {
		start = 0
	}
	maxLen := m.width - 30
	for _, entry := range m.logMessages[start:] {
		msg := entry.Message
		if maxLen > 10 && len(msg) > maxLen {
			msg = msg[:maxLen-3] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			logTimestampStyle.Render(entry.Time.Format("15:04:05")),
			levelStyle(entry.Level).Render(fmt.Sprintf("[%-7s]", entry.Level)),
			msg,
		))
	}
	if len(lines) == 1 {
		lines = append(lines, dimStyle.Render("No logs yet..."))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderHelp() string {
	help := `
  q / ctrl+c  stop the export and quit
  ctrl+l      clear the log panel
  ?           toggle this help

  ` + successStyle.Render("✓") + ` saved   ` + errorStyle.Render("✗") + ` failed   ` + warningStyle.Render("slowed") + ` pacing after a 429
`
	return panelStyle.Render(help)
}

func stat(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label+":"), statsValueStyle.Render(value))
}

func failedText(n int) string {
	if n == 0 {
		return "0"
	}
	return errorStyle.Render(fmt.Sprintf("%d", n))
}

func pageLine(page, found int) string {
	return fmt.Sprintf("Page %d: %d invoices", page, found)
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
