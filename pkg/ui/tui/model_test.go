package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedModel(onQuit func()) *Model {
	m := NewModel(onQuit)
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	m.startTime = start
	m.now = func() time.Time { return start.Add(time.Minute) }
	return &m
}

func TestModelCounts(t *testing.T) {
	m := fixedModel(nil)

	m.Update(PageMsg{Page: 1, Found: 4, Total: 4})
	m.Update(SavedMsg{Invoice: "0101/1/C24TAA/1", File: "HoaDon_0101_1.xml"})
	m.Update(FailedMsg{Invoice: "0101/1/C24TAA/2", Error: errors.New("HTTP 429: Too Many Requests")})
	m.Update(RateLimitMsg{Invoice: "0101/1/C24TAA/2", Next: 2 * time.Second})

	assert.Equal(t, 1, m.pages)
	assert.Equal(t, 4, m.found)
	assert.Equal(t, 2, m.Done())
	assert.Equal(t, 0.5, m.Percent())
	assert.Equal(t, 1.0, m.Rate())
	assert.Equal(t, 1, m.rateLimited)
	assert.Equal(t, 2*time.Second, m.nextDelay)

	require.Len(t, m.recent, 2)
	assert.Equal(t, ItemFailed, m.recent[1].State)

	levels := make([]string, 0, len(m.logMessages))
	for _, l := range m.logMessages {
		levels = append(levels, l.Level)
	}
	assert.Equal(t, []string{LevelInfo, LevelError, LevelWarn}, levels)
}

func TestRecentAndLogsAreBounded(t *testing.T) {
	m := fixedModel(nil)

	for i := 0; i < 60; i++ {
		m.RecordSaved("inv", "file.json")
		m.AddLogMessage(LevelInfo, "line")
	}

	assert.Len(t, m.recent, m.maxRecent)
	assert.Len(t, m.logMessages, m.maxLogMessages)
	assert.Equal(t, 60, m.saved)
}

func TestPercentClamps(t *testing.T) {
	m := fixedModel(nil)
	assert.Equal(t, 0.0, m.Percent())

	m.found = 1
	m.saved = 3
	assert.Equal(t, 1.0, m.Percent())
}

func TestQuitCancelsUnfinishedRun(t *testing.T) {
	quits := 0
	m := fixedModel(func() { quits++ })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, quits)

	m.Update(FinishedMsg{Saved: 1})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, 1, quits)
}

func TestKeysToggleHelpAndClearLogs(t *testing.T) {
	m := fixedModel(nil)
	m.AddLogMessage(LevelInfo, "hello")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.True(t, m.showHelp)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, m.logMessages)
}

func TestView(t *testing.T) {
	m := fixedModel(nil)
	assert.Equal(t, "Initializing...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(PageMsg{Page: 2, Found: 3, Total: 5})
	m.Update(SavedMsg{Invoice: "0101/1/C24TAA/9", File: "HoaDon_0101_9.json"})

	out := m.View()
	assert.Contains(t, out, "EXPORT")
	assert.Contains(t, out, "1/5")
	assert.Contains(t, out, "0101/1/C24TAA/9")
	assert.Contains(t, out, "Page 2: 3 invoices")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:45", formatDuration(45*time.Second))
	assert.Equal(t, "02:05", formatDuration(125*time.Second))
	assert.Equal(t, "01:30:00", formatDuration(90*time.Minute))
	assert.Equal(t, "00:00", formatDuration(-time.Second))
}
