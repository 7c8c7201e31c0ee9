package resolve

import (
	"fmt"
	"io"
	"sync"

	"github.com/poiesic/nameres/core"
)

// LookupMonitor provides hooks to observe the lookup process.
// Implement this interface to trace intermediate steps and results.
type LookupMonitor interface {
	Start(query Query)
	AfterEmbed(dimensions int)
	AfterSearch(hits []core.ScoredPoint)
	Duplicate(curie string, score float32)
	Filtered(curie string, reason string)
	Finish(results []core.LookupResult)
}

// noopMonitor is a no-op implementation of LookupMonitor
type noopMonitor struct{}

var _ LookupMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Query) {}
func (n *noopMonitor) AfterEmbed(_ int) {}
func (n *noopMonitor) AfterSearch(_ []core.ScoredPoint) {}
func (n *noopMonitor) Duplicate(_ string, _ float32) {}
func (n *noopMonitor) Filtered(_ string, _ string) {}
func (n *noopMonitor) Finish(_ []core.LookupResult) {}

// WriterMonitor prints a plain-text trace of each lookup stage.
type WriterMonitor struct {
	mu sync.Mutex
	w  io.Writer
}

var _ LookupMonitor = (*WriterMonitor)(nil)

// NewWriterMonitor creates a monitor that writes to w.
func NewWriterMonitor(w io.Writer) *WriterMonitor {
	return &WriterMonitor{w: w}
}

func (m *WriterMonitor) printf(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.w, format, args...)
}

func (m *WriterMonitor) Start(q Query) {
	m.printf("query %q limit=%d type=%q only=%v exclude=%v\n",
		q.Text, q.Limit, q.BiolinkType, q.OnlyPrefixes, q.ExcludePrefixes)
}

func (m *WriterMonitor) AfterEmbed(dimensions int) {
	m.printf("  embedded query (%d dimensions)\n", dimensions)
}

func (m *WriterMonitor) AfterSearch(hits []core.ScoredPoint) {
	m.printf("  %d raw hits\n", len(hits))
	for i, hit := range hits {
		m.printf("    %3d %.4f %-20s %q\n", i+1, hit.Score, hit.Payload.ID, hit.Payload.EmbeddedLabel)
	}
}

func (m *WriterMonitor) Duplicate(curie string, score float32) {
	m.printf("  duplicate %s at %.4f dropped\n", curie, score)
}

func (m *WriterMonitor) Filtered(curie string, reason string) {
	m.printf("  filtered %s: %s\n", curie, reason)
}

func (m *WriterMonitor) Finish(results []core.LookupResult) {
	m.printf("  %d results\n", len(results))
}
