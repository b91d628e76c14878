package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Message types for the TUI

// PageMsg is sent after a table page has been scraped
type PageMsg struct {
	Page  int
	Found int
	Total int
}

// SavedMsg is sent when an invoice artifact has been written
type SavedMsg struct {
	Invoice string
	File    string
}

// FailedMsg is sent when an invoice could not be exported
type FailedMsg struct {
	Invoice string
	Error   error
}

// RateLimitMsg is sent when the portal answered 429
type RateLimitMsg struct {
	Invoice string
	Next    time.Duration
}

// FinishedMsg is sent once the run is over
type FinishedMsg struct {
	Saved  int
	Failed int
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = progressWidth(msg.Width)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case PageMsg:
		m.RecordPage(msg.Page, msg.Found, msg.Total)
		return m, nil

	case SavedMsg:
		m.RecordSaved(msg.Invoice, msg.File)
		return m, nil

	case FailedMsg:
		m.RecordFailed(msg.Invoice, msg.Error)
		return m, nil

	case RateLimitMsg:
		m.RecordRateLimit(msg.Invoice, msg.Next)
		return m, nil

	case FinishedMsg:
		m.Finish(msg.Saved, msg.Failed)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.onQuit != nil && !m.finished {
			m.onQuit()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func progressWidth(width int) int {
	w := width - 12
	if w < 10 {
		return 10
	}
	if w > 80 {
		return 80
	}
	return w
}
