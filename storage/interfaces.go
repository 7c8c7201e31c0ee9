package storage

import (
	"context"

	"github.com/poiesic/nameres/core"
)

// VectorIndex is a single collection of embedded points searchable by cosine
// similarity. Implementations must be thread-safe and support concurrent access.
type VectorIndex interface {
	// Recreate drops the collection if it exists and creates it empty with the
	// given vector size and cosine distance.
	Recreate(ctx context.Context, dimensions int) error

	// Dimensions returns the vector size of the existing collection.
	// Returns ErrCollectionNotFound if it has not been created.
	Dimensions(ctx context.Context) (int, error)

	// Upsert writes points, replacing any with the same identity. Vectors must
	// match the collection's dimensions.
	Upsert(ctx context.Context, points []core.IndexedPoint) error

	// Search returns up to limit points ordered by descending similarity to
	// vector. Ties keep no particular order.
	Search(ctx context.Context, vector []float32, limit int) ([]core.ScoredPoint, error)

	// Count returns the number of points in the collection.
	Count(ctx context.Context) (uint64, error)

	// Name returns the collection name.
	Name() string

	// Close releases resources held by the index.
	Close() error
}
