package core

import (
	"slices"
	"strings"
)

// ConceptRecord is one entry of the synonym corpus.
// Records only live for the duration of an ingestion run.
type ConceptRecord struct {
	CURIE         string
	Names         []string
	PreferredName string
	Types         []string
	Category      string // Partition the record was read from
}

// Normalize turns Names into an ordered set that contains PreferredName.
// Blank names are dropped and the first occurrence of a repeated name wins.
func (r *ConceptRecord) Normalize() {
	names := make([]string, 0, len(r.Names)+1)
	for _, name := range r.Names {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(names, name) {
			continue
		}
		names = append(names, name)
	}
	preferred := strings.TrimSpace(r.PreferredName)
	if preferred != "" && !slices.Contains(names, preferred) {
		names = append(names, preferred)
	}
	r.Names = names
	r.PreferredName = preferred
}

// Units expands the record into one EmbeddingUnit per name.
func (r *ConceptRecord) Units() []EmbeddingUnit {
	units := make([]EmbeddingUnit, len(r.Names))
	for i, name := range r.Names {
		units[i] = EmbeddingUnit{SourceName: name, Record: r}
	}
	return units
}

// Payload builds the index payload for one of the record's names.
func (r *ConceptRecord) Payload(embedded string) Payload {
	return Payload{
		ID:            r.CURIE,
		Label:         r.PreferredName,
		Synonyms:      r.Names,
		Types:         r.Types,
		Category:      r.Category,
		EmbeddedLabel: embedded,
	}
}

// EmbeddingUnit is a single (concept, name) pair waiting to be embedded.
type EmbeddingUnit struct {
	SourceName string
	Record     *ConceptRecord
}

// Payload is the metadata stored next to every vector in the index.
type Payload struct {
	ID            string
	Label         string
	Synonyms      []string
	Types         []string
	Category      string
	EmbeddedLabel string // The literal string that was embedded; never returned to callers
}

// IndexedPoint is a vector plus payload as written to the index.
type IndexedPoint struct {
	Identity uint64
	Vector   []float32
	Payload  Payload
}

// ScoredPoint is a raw nearest-neighbor hit returned by the index.
type ScoredPoint struct {
	Identity uint64
	Payload  Payload
	Score    float32
}

// LookupResult is a single resolved concept returned to callers.
type LookupResult struct {
	Curie    string   `json:"curie"`
	Label    string   `json:"label"`
	Synonyms []string `json:"synonyms"`
	Types    []string `json:"types"`
	Score    float32  `json:"score"`
}

// Result converts a hit into a LookupResult. The embedded label is dropped
// and the hit's own score is kept as is.
func (p *ScoredPoint) Result() LookupResult {
	synonyms := p.Payload.Synonyms
	if synonyms == nil {
		synonyms = []string{}
	}
	types := p.Payload.Types
	if types == nil {
		types = []string{}
	}
	return LookupResult{
		Curie:    p.Payload.ID,
		Label:    p.Payload.Label,
		Synonyms: synonyms,
		Types:    types,
		Score:    p.Score,
	}
}

// Prefix returns the namespace part of a CURIE ("MONDO" for "MONDO:0005737").
// A CURIE without a colon is its own prefix.
func Prefix(curie string) string {
	if i := strings.IndexByte(curie, ':'); i >= 0 {
		return curie[:i]
	}
	return curie
}
