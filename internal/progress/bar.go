package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const barWidth = 40

// Bar is a terminal progress bar for batch downloads
type Bar struct {
	out       io.Writer
	total     int
	current   int
	failed    int
	mu        sync.Mutex
	startTime time.Time
	lastPrint time.Time
	done      bool
}

// New creates a new progress bar writing to out
func New(out io.Writer, total int) *Bar {
	return &Bar{
		out:       out,
		total:     total,
		startTime: time.Now(),
		lastPrint: time.Now(),
	}
}

// Increment records one finished item; failed items are counted separately.
func (b *Bar) Increment(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current++
	if failed {
		b.failed++
	}

	// Update display every 500ms or when complete
	now := time.Now()
	if now.Sub(b.lastPrint) > 500*time.Millisecond || b.current >= b.total {
		b.render()
		b.lastPrint = now
	}
}

// Finish marks the progress as complete
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.done {
		b.render()
		fmt.Fprintln(b.out)
		b.done = true
	}
}

func (b *Bar) render() {
	if b.done || b.total <= 0 {
		return
	}

	current := min(b.current, b.total)
	percentage := float64(current) / float64(b.total) * 100
	elapsed := time.Since(b.startTime)

	var eta time.Duration
	if current > 0 {
		eta = elapsed / time.Duration(current) * time.Duration(b.total-current)
	}

	filled := barWidth * current / b.total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(b.out, "\r[%s] %d/%d (%.1f%%) - %d failed - Elapsed: %s - ETA: %s   ",
		bar,
		current,
		b.total,
		percentage,
		b.failed,
		formatDuration(elapsed),
		formatDuration(eta),
	)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
