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

import (
	"fmt"
	"strings"
)

// ValidateRecord validates a ConceptRecord as read from a source.
//
// Validation rules:
//   - CURIE must not be blank
//   - Names must be present (an empty list is allowed)
//   - PreferredName must not be blank
//
// Types and Category are optional.
func ValidateRecord(record *ConceptRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if strings.TrimSpace(record.CURIE) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrMissingCURIE)
	}

	if record.Names == nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrMissingNames)
	}

	if strings.TrimSpace(record.PreferredName) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrMissingPreferredName)
	}

	return nil
}

// CheckDimensions reports ErrDimensionMismatch if vector is not exactly dim long.
func CheckDimensions(vector []float32, dim int) error {
	if len(vector) != dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dim, len(vector))
	}
	return nil
}
