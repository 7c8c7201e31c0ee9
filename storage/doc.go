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

// Package storage defines the vector index abstraction used by ingestion and
// lookup.
//
// A VectorIndex holds one named collection of embedded points. Each point
// carries the payload of the concept whose name was embedded, so a search hit
// can be turned into a lookup result without a second store.
//
// Two implementations exist:
//
//   - badger: an embedded, brute-force cosine index persisted with BadgerDB
//   - qdrant: a client for a Qdrant server collection
//
// Constructors return the VectorIndex interface:
//
//	index, err := badger.NewIndex("/path/to/db", "concept-resolver")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer index.Close()
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Ingestion writes batches
// while the lookup service may be reading the same collection.
package storage
