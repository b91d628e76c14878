package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Log levels shown in the log panel
const (
	LevelInfo    = "INFO"
	LevelSuccess = "SUCCESS"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
)

// ItemState is the outcome of one invoice
type ItemState int

const (
	ItemSaved ItemState = iota
	ItemFailed
)

// ItemRecord is one processed invoice in the recent list
type ItemRecord struct {
	Invoice string
	File    string
	State   ItemState
	Error   error
	At      time.Time
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
}

// Model is the dashboard state. It is only touched from the bubbletea
// event loop.
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	pages       int
	found       int
	saved       int
	failed      int
	rateLimited int
	nextDelay   time.Duration
	finished    bool

	recent         []ItemRecord
	maxRecent      int
	logMessages    []LogMessage
	maxLogMessages int

	startTime time.Time
	width     int
	height    int
	showHelp  bool
	onQuit    func()
	now       func() time.Time
}

// NewModel creates a dashboard model. onQuit runs when the user quits.
func NewModel(onQuit func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statsLabelStyle

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return Model{
		spinner:        s,
		progress:       p,
		maxRecent:      8,
		maxLogMessages: 50,
		startTime:      time.Now(),
		onQuit:         onQuit,
		now:            time.Now,
	}
}

// Init starts the spinner and the refresh tick
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// RecordPage stores the running invoice total after a table page
func (m *Model) RecordPage(page, found, total int) {
	m.pages = page
	m.found = total
	m.AddLogMessage(LevelInfo, pageLine(page, found))
}

// RecordSaved counts a saved invoice
func (m *Model) RecordSaved(invoice, file string) {
	m.saved++
	m.pushRecent(ItemRecord{Invoice: invoice, File: file, State: ItemSaved, At: m.now()})
}

// RecordFailed counts a failed invoice
func (m *Model) RecordFailed(invoice string, err error) {
	m.failed++
	m.pushRecent(ItemRecord{Invoice: invoice, State: ItemFailed, Error: err, At: m.now()})
	m.AddLogMessage(LevelError, invoice+": "+errText(err))
}

// RecordRateLimit notes a 429 and the delay before the next request
func (m *Model) RecordRateLimit(invoice string, next time.Duration) {
	m.rateLimited++
	m.nextDelay = next
	m.AddLogMessage(LevelWarn, "Rate limit at "+invoice+", slowing down")
}

// Finish marks the run complete
func (m *Model) Finish(saved, failed int) {
	m.finished = true
	m.saved = saved
	m.failed = failed
	m.AddLogMessage(LevelSuccess, "Export finished")
}

// AddLogMessage appends to the log panel, keeping the newest entries
func (m *Model) AddLogMessage(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

func (m *Model) pushRecent(r ItemRecord) {
	m.recent = append(m.recent, r)
	if len(m.recent) > m.maxRecent {
		m.recent = m.recent[len(m.recent)-m.maxRecent:]
	}
}

// Done is the number of invoices attempted so far
func (m *Model) Done() int {
	return m.saved + m.failed
}

// Percent is the share of found invoices already attempted, in [0,1]
func (m *Model) Percent() float64 {
	if m.found == 0 {
		return 0
	}
	p := float64(m.Done()) / float64(m.found)
	if p > 1 {
		return 1
	}
	return p
}

// Rate is the number of saved invoices per minute
func (m *Model) Rate() float64 {
	elapsed := m.now().Sub(m.startTime)
	if elapsed <= 0 {
		return 0
	}
	return float64(m.saved) / elapsed.Minutes()
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
