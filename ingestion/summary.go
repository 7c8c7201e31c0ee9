package ingestion

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/poiesic/nameres/core"
	"github.com/poiesic/nameres/source"
)

// PartitionSummary counts the entries of a single corpus partition.
type PartitionSummary struct {
	Accepted int
	Skipped  int
	// Points is the number of names queued for embedding.
	Points int
}

// Summary describes a completed (or aborted) ingestion run.
type Summary struct {
	RunID      string
	Collection string
	Model      string
	Dimensions int
	Accepted   int
	Skipped    int
	// Points counts points confirmed written to the index.
	Points      int
	Batches     int
	Partitions  map[string]*PartitionSummary
	SkipReasons map[string]int
	// Fingerprint digests the accepted (curie, preferred name) pairs in
	// read order. Unchanged input gives an unchanged fingerprint.
	Fingerprint string
	Elapsed     time.Duration

	fingerprint *core.Fingerprint
}

func newSummary(runID string) *Summary {
	return &Summary{
		RunID:       runID,
		Partitions:  make(map[string]*PartitionSummary),
		SkipReasons: make(map[string]int),
		fingerprint: core.NewFingerprint(),
	}
}

func (s *Summary) partition(name string) *PartitionSummary {
	ps, ok := s.Partitions[name]
	if !ok {
		ps = &PartitionSummary{}
		s.Partitions[name] = ps
	}
	return ps
}

func (s *Summary) accept(o source.Outcome, units int) {
	s.Accepted++
	ps := s.partition(o.Partition)
	ps.Accepted++
	ps.Points += units
	s.fingerprint.Add(o.Record.CURIE, o.Record.PreferredName)
}

func (s *Summary) skip(o source.Outcome) {
	s.Skipped++
	s.partition(o.Partition).Skipped++
	reason := "unknown"
	if o.Reason != nil {
		reason = o.Reason.Error()
	}
	s.SkipReasons[reason]++
}

func (s *Summary) finish(start time.Time) {
	s.Fingerprint = s.fingerprint.String()
	s.Elapsed = time.Since(start)
}

// Print writes a human-readable report.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Run:         %s\n", s.RunID)
	if s.Collection != "" {
		fmt.Fprintf(w, "Collection:  %s (%s, %d dimensions)\n", s.Collection, s.Model, s.Dimensions)
	}
	fmt.Fprintf(w, "Accepted:    %d\n", s.Accepted)
	fmt.Fprintf(w, "Skipped:     %d\n", s.Skipped)
	fmt.Fprintf(w, "Points:      %d in %d batches\n", s.Points, s.Batches)
	fmt.Fprintf(w, "Fingerprint: %s\n", s.Fingerprint)
	fmt.Fprintf(w, "Elapsed:     %s\n", s.Elapsed.Round(time.Millisecond))

	if len(s.Partitions) > 0 {
		fmt.Fprintln(w, "Partitions:")
		for _, name := range slices.Sorted(maps.Keys(s.Partitions)) {
			ps := s.Partitions[name]
			fmt.Fprintf(w, "  %-30s accepted=%d skipped=%d points=%d\n", name, ps.Accepted, ps.Skipped, ps.Points)
		}
	}
	if len(s.SkipReasons) > 0 {
		fmt.Fprintln(w, "Skip reasons:")
		for _, reason := range slices.Sorted(maps.Keys(s.SkipReasons)) {
			fmt.Fprintf(w, "  %6d  %s\n", s.SkipReasons[reason], reason)
		}
	}
}
