package embedding

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker rewrites one status line on writer as items are embedded.
// A tracker that has not been started ignores updates.
type ProgressTracker struct {
	mu sync.Mutex

	out      io.Writer
	unit     string
	total    int
	every    int
	done     int
	reported int
	began    time.Time
	now      func() time.Time
}

// NewProgressTracker reports after every reportInterval items. unit names
// what is counted, e.g. "books".
func NewProgressTracker(writer io.Writer, unit string, total, reportInterval int) *ProgressTracker {
	return &ProgressTracker{
		out:   writer,
		unit:  unit,
		total: total,
		every: max(reportInterval, 1),
		now:   time.Now,
	}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.began = p.now()
	p.done = 0
	p.reported = 0
}

// Increment records delta more finished items, never exceeding the total.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.began.IsZero() {
		return
	}
	p.done = min(p.done+delta, p.total)
	if p.done-p.reported >= p.every {
		p.writeLine()
		p.reported = p.done
	}
}

// Finish reports the total as done and ends the status line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.began.IsZero() {
		return
	}
	p.done = p.total
	p.writeLine()
	fmt.Fprintln(p.out)
}

// Elapsed is zero before Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.began.IsZero() {
		return 0
	}
	return p.now().Sub(p.began)
}

// writeLine must be called with mu held.
func (p *ProgressTracker) writeLine() {
	elapsed := p.now().Sub(p.began)

	var perSecond float64
	if elapsed > 0 {
		perSecond = float64(p.done) / elapsed.Seconds()
	}
	var percent int
	if p.total > 0 {
		percent = p.done * 100 / p.total
	}

	line := fmt.Sprintf("\rEmbedding %s: %d/%d (%d%%) %.1f/s", p.unit, p.done, p.total, percent, perSecond)
	if remaining := p.total - p.done; remaining > 0 && perSecond > 0 {
		eta := time.Duration(float64(remaining) / perSecond * float64(time.Second))
		line += " eta " + eta.Round(time.Second).String()
	}
	fmt.Fprint(p.out, line)
}
