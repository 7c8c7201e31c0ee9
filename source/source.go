// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import (
	"context"

	"github.com/poiesic/nameres/core"
)

// Kind tags an Outcome.
type Kind int

const (
	// Accepted outcomes carry a valid record.
	Accepted Kind = iota
	// Skipped outcomes carry the reason the entry was rejected.
	Skipped
)

func (k Kind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the result of reading one corpus entry.
type Outcome struct {
	Kind   Kind
	Record *core.ConceptRecord
	// Reason is a stable sentinel suitable for counting; Detail adds
	// entry-specific context.
	Reason    error
	Detail    string
	Partition string
	Line      int
}

// Source yields corpus entries in a deterministic order.
type Source interface {
	// ForEach calls fn for every entry. It stops at the first error returned
	// by fn, at an I/O error, or when ctx is cancelled.
	ForEach(ctx context.Context, fn func(Outcome) error) error
}

func accept(record *core.ConceptRecord, partition string, line int) Outcome {
	return Outcome{Kind: Accepted, Record: record, Partition: partition, Line: line}
}

func skip(reason error, detail, partition string, line int) Outcome {
	return Outcome{Kind: Skipped, Reason: reason, Detail: detail, Partition: partition, Line: line}
}

// check validates record and returns the matching outcome.
func check(record *core.ConceptRecord, partition string, line int) Outcome {
	if err := core.ValidateRecord(record); err != nil {
		detail := ""
		if record != nil {
			detail = record.CURIE
		}
		return skip(err, detail, partition, line)
	}
	return accept(record, partition, line)
}

type sliceSource struct {
	records []*core.ConceptRecord
}

// Slice returns a source over in-memory records. Each record is validated
// the same way file entries are; the partition is the record's Category.
func Slice(records ...*core.ConceptRecord) Source {
	return &sliceSource{records: records}
}

func (s *sliceSource) ForEach(ctx context.Context, fn func(Outcome) error) error {
	for i, record := range s.records {
		if err := ctx.Err(); err != nil {
			return err
		}
		partition := ""
		if record != nil {
			partition = record.Category
		}
		if err := fn(check(record, partition, i+1)); err != nil {
			return err
		}
	}
	return nil
}
