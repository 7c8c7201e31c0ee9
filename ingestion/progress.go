package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker prints a single, self-overwriting status line with the
// number of points written and the write rate. The corpus is streamed, so
// there is no total to report against.
type ProgressTracker struct {
	mu      sync.Mutex
	w       io.Writer
	every   int
	points  int
	batches int
	// points at the last printed line
	printed int
	start   time.Time
	running bool
}

// NewProgressTracker prints to w after every reportEvery written points.
func NewProgressTracker(w io.Writer, reportEvery int) *ProgressTracker {
	return &ProgressTracker{w: w, every: max(reportEvery, 1)}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.start = time.Now()
	p.running = true
	p.points, p.batches, p.printed = 0, 0, 0
}

// Batch records one written batch of n points.
func (p *ProgressTracker) Batch(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.points += n
	p.batches++
	if p.points-p.printed >= p.every {
		p.line()
		p.printed = p.points
	}
}

// Points returns the number of points recorded so far.
func (p *ProgressTracker) Points() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.points
}

// Finish prints the final line and ends it with a newline.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.line()
	fmt.Fprintln(p.w)
	p.running = false
}

// Elapsed is the time since Start, or zero before Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.start.IsZero() {
		return 0
	}
	return time.Since(p.start)
}

// line must be called with mu held.
func (p *ProgressTracker) line() {
	var rate float64
	if secs := time.Since(p.start).Seconds(); secs > 0 {
		rate = float64(p.points) / secs
	}
	fmt.Fprintf(p.w, "\rIngested %d points in %d batches (%.1f points/s)", p.points, p.batches, rate)
}
