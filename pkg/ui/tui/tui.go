// Package tui is a full screen dashboard for a running export, built on
// bubbletea. It implements ui.Reporter so it can replace the progress line.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"hdexport/pkg/ui"
)

var _ ui.Reporter = (*TUI)(nil)

// TUI represents the terminal user interface
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a dashboard. onQuit is called when the user quits before
// the run has finished, typically to cancel the export.
func NewTUI(onQuit func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(onQuit)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	program := tea.NewProgram(&model, opts...)

	return &TUI{
		program: program,
		model:   &model,
	}
}

// Start runs the TUI until it quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// PageScanned implements ui.Reporter
func (t *TUI) PageScanned(page, found, total int) {
	t.Send(PageMsg{Page: page, Found: found, Total: total})
}

// ItemSaved implements ui.Reporter
func (t *TUI) ItemSaved(invoice, file string) {
	t.Send(SavedMsg{Invoice: invoice, File: file})
}

// ItemFailed implements ui.Reporter
func (t *TUI) ItemFailed(invoice string, err error) {
	t.Send(FailedMsg{Invoice: invoice, Error: err})
}

// RateLimited implements ui.Reporter
func (t *TUI) RateLimited(invoice string, next time.Duration) {
	t.Send(RateLimitMsg{Invoice: invoice, Next: next})
}

// Finished implements ui.Reporter
func (t *TUI) Finished(saved, failed int) {
	t.Send(FinishedMsg{Saved: saved, Failed: failed})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log(LevelInfo, format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log(LevelWarn, format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log(LevelError, format, args...)
}
