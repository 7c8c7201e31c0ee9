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


package core

import "errors"

// Record validation errors
var (
	// ErrInvalidRecord indicates a ConceptRecord failed validation.
	ErrInvalidRecord = errors.New("invalid concept record")

	// ErrMissingCURIE indicates the record has no canonical identifier.
	ErrMissingCURIE = errors.New("curie is required")

	// ErrMissingNames indicates the record carries no names field at all.
	ErrMissingNames = errors.New("names are required")

	// ErrMissingPreferredName indicates the record has no preferred name.
	ErrMissingPreferredName = errors.New("preferred name is required")
)

// Infrastructure errors shared by every adapter.
var (
	// ErrDimensionMismatch indicates a vector whose length does not match the
	// dimensionality of the collection or embedder it is used with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrUnavailable marks a transient failure of the embedder or the index.
	// Callers may retry operations that fail with it.
	ErrUnavailable = errors.New("service unavailable")

	// ErrTruncated indicates an encoded record ended before all of its fields
	// were read.
	ErrTruncated = errors.New("truncated data")
)
