package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Reporter receives crawl and batch events for display
type Reporter interface {
	PageScanned(page, found, total int)
	ItemSaved(invoice, file string)
	ItemFailed(invoice string, err error)
	RateLimited(invoice string, next time.Duration)
	Finished(saved, failed int)
}

// ProgressDisplay is a single line progress readout for a batch export
type ProgressDisplay struct {
	mu          sync.Mutex
	out         io.Writer
	page        int
	found       int
	saved       int
	failed      int
	rateLimited int
	current     string
	startTime   time.Time
	isDebug     bool
	now         func() time.Time
}

// NewProgressDisplay creates a display writing to out. In debug mode each
// item is printed on its own line instead of redrawing the progress line.
func NewProgressDisplay(out io.Writer, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:       out,
		startTime: time.Now(),
		isDebug:   debug,
		now:       time.Now,
	}
}

// PageScanned records a table page and the invoices found on it
func (p *ProgressDisplay) PageScanned(page, found, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.page = page
	p.found = total
	if p.isDebug {
		fmt.Fprintf(p.out, "%s Page %d: %d invoices (%d total)\n", Magenta("→"), page, found, total)
		return
	}
	p.printProgress()
}

// ItemSaved records a saved invoice
func (p *ProgressDisplay) ItemSaved(invoice, file string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.saved++
	p.current = invoice
	if p.isDebug {
		fmt.Fprintf(p.out, "%s %s • %s\n", Green("✓"), invoice, Dim(file))
		return
	}
	p.printProgress()
}

// ItemFailed records a failed invoice
func (p *ProgressDisplay) ItemFailed(invoice string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failed++
	p.current = invoice
	if p.isDebug {
		fmt.Fprintf(p.out, "%s %s - %v\n", Red("✗"), invoice, err)
		return
	}
	p.printProgress()
}

// RateLimited shows the slowed down pacing after a 429
func (p *ProgressDisplay) RateLimited(invoice string, next time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rateLimited++
	fmt.Fprintf(p.out, "\n%s Rate limit at %s. Next request in %s\n",
		Yellow("⚠"),
		invoice,
		formatDuration(next),
	)
}

// Finished prints the summary
func (p *ProgressDisplay) Finished(saved, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := p.now().Sub(p.startTime)
	fmt.Fprintf(p.out, "\n\n%s Saved %d invoices from %d pages\n", Green("✓"), saved, p.page)
	fmt.Fprintf(p.out, "  %s %s (%.1f invoices/min)\n",
		Dim("•"),
		formatDuration(elapsed),
		perMinute(saved, elapsed),
	)
	if failed > 0 {
		fmt.Fprintf(p.out, "  %s %d invoices failed\n", Dim("•"), failed)
	}
	if p.rateLimited > 0 {
		fmt.Fprintf(p.out, "  %s %d rate limited\n", Dim("•"), p.rateLimited)
	}
}

// printProgress redraws the progress line
func (p *ProgressDisplay) printProgress() {
	done := p.saved + p.failed
	barWidth := 20
	filled := 0
	if p.found > 0 {
		filled = done * barWidth / p.found
		if filled > barWidth {
			filled = barWidth
		}
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("%s [%s] %d/%d • %.1f/min • page %d",
		Cyan("hdexport"),
		bar,
		done,
		p.found,
		perMinute(p.saved, p.now().Sub(p.startTime)),
		p.page,
	)
	if p.current != "" {
		line += fmt.Sprintf(" • %s", p.current)
	}
	if p.failed > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", p.failed)))
	}

	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 120), line)
}

func perMinute(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Minutes()
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
