package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/nameres/core"
	"github.com/poiesic/nameres/storage"
)

const (
	metricCosine = "cosine"

	// ctxCheckInterval is how many items a scan visits between context checks.
	ctxCheckInterval = 1024
)

// Index implements storage.VectorIndex on top of BadgerDB with an exact
// brute-force cosine search. Vectors are stored unit-normalized so that a
// dot product is the cosine similarity.
type Index struct {
	backend     *Backend
	collection  string
	ownsBackend bool
	logger      *slog.Logger
}

var _ storage.VectorIndex = (*Index)(nil)

// NewIndex opens (or creates) a database at path and returns the index for
// collection. Closing the index closes the database.
func NewIndex(path, collection string) (storage.VectorIndex, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	index, err := NewIndexWithBackend(backend, collection)
	if err != nil {
		backend.Close()
		return nil, err
	}
	index.ownsBackend = true
	return index, nil
}

// NewIndexWithBackend creates an index for collection on a shared backend.
// The caller keeps ownership of the backend.
func NewIndexWithBackend(backend *Backend, collection string) (*Index, error) {
	if collection == "" || strings.Contains(collection, ":") {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidCollectionName, collection)
	}
	return &Index{
		backend:    backend,
		collection: collection,
		logger:     backend.logger.With("collection", collection),
	}, nil
}

// Name returns the collection name.
func (i *Index) Name() string {
	return i.collection
}

// Close releases the backend if the index owns it.
func (i *Index) Close() error {
	if i.ownsBackend && !i.backend.IsClosed() {
		return i.backend.Close()
	}
	return nil
}

func (i *Index) checkOpen() error {
	if i.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// Recreate removes every point and payload of the collection and writes
// fresh collection metadata.
func (i *Index) Recreate(ctx context.Context, dimensions int) error {
	if err := i.checkOpen(); err != nil {
		return err
	}
	if dimensions <= 0 {
		return fmt.Errorf("%w: %d", storage.ErrInvalidDimensions, dimensions)
	}

	var stale [][]byte
	err := i.backend.View(func(tx *badger.Txn) error {
		for _, prefix := range [][]byte{makePointPrefix(i.collection), makePayloadPrefix(i.collection)} {
			keys, err := collectKeys(ctx, tx, prefix)
			if err != nil {
				return err
			}
			stale = append(stale, keys...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	info := &core.CollectionInfo{
		Name:       i.collection,
		Dimensions: dimensions,
		Metric:     metricCosine,
	}
	err = i.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, key := range stale {
			if err := wb.Delete(key); err != nil {
				return err
			}
		}
		return wb.Set(makeMetaKey(i.collection), storage.MarshalCollectionInfo(info))
	})
	if err != nil {
		return err
	}

	i.logger.Info("collection recreated", "dimensions", dimensions, "removed_keys", len(stale))
	return nil
}

// Dimensions returns the vector size recorded at creation.
func (i *Index) Dimensions(ctx context.Context) (int, error) {
	if err := i.checkOpen(); err != nil {
		return 0, err
	}
	var info *core.CollectionInfo
	err := i.backend.View(func(tx *badger.Txn) error {
		var err error
		info, err = i.readInfo(tx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return info.Dimensions, nil
}

// Upsert writes points and their payloads. Every vector is checked before
// anything is written, so a mismatched batch leaves the collection untouched.
func (i *Index) Upsert(ctx context.Context, points []core.IndexedPoint) error {
	if err := i.checkOpen(); err != nil {
		return err
	}

	dims, err := i.Dimensions(ctx)
	if err != nil {
		return err
	}
	for _, p := range points {
		if err := core.CheckDimensions(p.Vector, dims); err != nil {
			return fmt.Errorf("point %d: %w", p.Identity, err)
		}
	}
	if len(points) == 0 {
		return nil
	}

	written := make(map[string]struct{})
	err = i.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for n, p := range points {
			if n%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			// The embedded label lives on the point; the shared payload omits it.
			shared := p.Payload
			shared.EmbeddedLabel = ""
			encoded := storage.MarshalPayload(&shared)
			digest := payloadDigest(encoded)

			ref := &core.PointRef{
				CURIE:         p.Payload.ID,
				PayloadKey:    digest,
				EmbeddedLabel: p.Payload.EmbeddedLabel,
				Vector:        core.NormalizeVector(p.Vector),
			}
			if err := wb.Set(makePointKey(i.collection, p.Identity), storage.MarshalPointRef(ref)); err != nil {
				return err
			}

			if _, ok := written[digest]; ok {
				continue
			}
			written[digest] = struct{}{}
			if err := wb.Set(makePayloadKey(i.collection, digest), encoded); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	i.logger.Debug("upserted points", "count", len(points), "payloads", len(written))
	return nil
}

type candidate struct {
	identity uint64
	curie    string
	payload  string
	embedded string
	score    float32
}

// Search scores every point of the collection against vector and returns
// the best limit hits, highest score first.
func (i *Index) Search(ctx context.Context, vector []float32, limit int) ([]core.ScoredPoint, error) {
	if err := i.checkOpen(); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit %d", storage.ErrInvalidQuery, limit)
	}
	if limit == 0 {
		return []core.ScoredPoint{}, nil
	}

	var results []core.ScoredPoint
	err := i.backend.View(func(tx *badger.Txn) error {
		info, err := i.readInfo(tx)
		if err != nil {
			return err
		}
		if err := core.CheckDimensions(vector, info.Dimensions); err != nil {
			return err
		}
		query := core.NormalizeVector(vector)

		var candidates []candidate
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePointPrefix(i.collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		n := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if n%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			n++

			item := iter.Item()
			var ref *core.PointRef
			err := item.Value(func(val []byte) error {
				var err error
				ref, err = storage.UnmarshalPointRef(val)
				return err
			})
			if err != nil {
				return err
			}
			candidates = append(candidates, candidate{
				identity: identityFromKey(item.Key()),
				curie:    ref.CURIE,
				payload:  ref.PayloadKey,
				embedded: ref.EmbeddedLabel,
				score:    core.Dot(query, ref.Vector),
			})
		}

		// Stable so equal scores keep identity order.
		slices.SortStableFunc(candidates, func(a, b candidate) int {
			if a.score > b.score {
				return -1
			}
			if a.score < b.score {
				return 1
			}
			return 0
		})
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}

		payloads := make(map[string]*core.Payload)
		results = make([]core.ScoredPoint, 0, len(candidates))
		for _, c := range candidates {
			payload, ok := payloads[c.payload]
			if !ok {
				payload, err = i.readPayload(tx, c.curie, c.payload)
				if err != nil {
					return err
				}
				payloads[c.payload] = payload
			}
			hit := core.ScoredPoint{
				Identity: c.identity,
				Payload:  *payload,
				Score:    c.score,
			}
			hit.Payload.EmbeddedLabel = c.embedded
			results = append(results, hit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Count returns the number of points in the collection.
func (i *Index) Count(ctx context.Context) (uint64, error) {
	if err := i.checkOpen(); err != nil {
		return 0, err
	}
	var count uint64
	err := i.backend.View(func(tx *badger.Txn) error {
		if _, err := i.readInfo(tx); err != nil {
			return err
		}
		keys, err := countKeys(ctx, tx, makePointPrefix(i.collection))
		count = keys
		return err
	})
	return count, err
}

func (i *Index) readInfo(tx *badger.Txn) (*core.CollectionInfo, error) {
	item, err := tx.Get(makeMetaKey(i.collection))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, i.collection)
	}
	if err != nil {
		return nil, err
	}
	var info *core.CollectionInfo
	err = item.Value(func(val []byte) error {
		info, err = storage.UnmarshalCollectionInfo(val)
		return err
	})
	return info, err
}

func (i *Index) readPayload(tx *badger.Txn, curie, digest string) (*core.Payload, error) {
	item, err := tx.Get(makePayloadKey(i.collection, digest))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("payload for %s: %w", curie, storage.ErrSerializationFailed)
	}
	if err != nil {
		return nil, err
	}
	var payload *core.Payload
	err = item.Value(func(val []byte) error {
		payload, err = storage.UnmarshalPayload(val)
		return err
	})
	return payload, err
}

// collectKeys returns copies of every key under prefix.
func collectKeys(ctx context.Context, tx *badger.Txn, prefix []byte) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if len(keys)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys, nil
}

// countKeys counts keys under prefix without reading values.
func countKeys(ctx context.Context, tx *badger.Txn, prefix []byte) (uint64, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var count uint64
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if count%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		count++
	}
	return count, nil
}
