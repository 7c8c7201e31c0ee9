package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/nameres/core"
	"github.com/poiesic/nameres/storage"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Payload keys.
const (
	keyID            = "id"
	keyLabel         = "label"
	keySynonyms      = "synonyms"
	keyTypes         = "types"
	keyCategory      = "category"
	keyEmbeddedLabel = "embedded_label"
)

// Config holds the connection settings for a Qdrant server.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	// PoolSize is the number of gRPC connections; 0 uses the client default.
	PoolSize uint
	// CheckVersion asks the server for its version on connect and logs a
	// warning when it is incompatible with the client.
	CheckVersion bool
}

// Index implements storage.VectorIndex for a single Qdrant collection.
type Index struct {
	client     *qdrant.Client
	collection string
	// dims caches the collection's vector size; 0 means unknown.
	dims   atomic.Int64
	logger *slog.Logger
}

var _ storage.VectorIndex = (*Index)(nil)

// NewIndex connects to Qdrant. The gRPC connection is established lazily,
// so an unreachable server surfaces on the first call.
func NewIndex(cfg Config) (storage.VectorIndex, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidCollectionName, cfg.Collection)
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Host,
		Port:                   cfg.Port,
		APIKey:                 cfg.APIKey,
		UseTLS:                 cfg.UseTLS,
		PoolSize:               cfg.PoolSize,
		SkipCompatibilityCheck: !cfg.CheckVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	return &Index{
		client:     client,
		collection: cfg.Collection,
		logger: slog.Default().With(
			"component", "qdrant",
			"collection", cfg.Collection,
		),
	}, nil
}

// Name returns the collection name.
func (i *Index) Name() string {
	return i.collection
}

// Close closes the gRPC connections.
func (i *Index) Close() error {
	return i.client.Close()
}

// Recreate drops the collection when present and creates it with cosine
// distance.
func (i *Index) Recreate(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: %d", storage.ErrInvalidDimensions, dimensions)
	}

	exists, err := i.client.CollectionExists(ctx, i.collection)
	if err != nil {
		return classify(err)
	}
	if exists {
		if err := i.client.DeleteCollection(ctx, i.collection); err != nil {
			return classify(err)
		}
	}

	err = i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: i.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return classify(err)
	}

	i.dims.Store(int64(dimensions))
	i.logger.Info("collection recreated", "dimensions", dimensions, "replaced", exists)
	return nil
}

// Dimensions reads the vector size from the collection config.
func (i *Index) Dimensions(ctx context.Context) (int, error) {
	info, err := i.client.GetCollectionInfo(ctx, i.collection)
	if err != nil {
		return 0, classify(err)
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size == 0 {
		return 0, fmt.Errorf("collection %s has no single dense vector config", i.collection)
	}
	i.dims.Store(int64(size))
	return int(size), nil
}

func (i *Index) dimensions(ctx context.Context) (int, error) {
	if d := i.dims.Load(); d > 0 {
		return int(d), nil
	}
	return i.Dimensions(ctx)
}

// Upsert writes points and waits for the server to apply them.
func (i *Index) Upsert(ctx context.Context, points []core.IndexedPoint) error {
	if len(points) == 0 {
		return nil
	}
	dims, err := i.dimensions(ctx)
	if err != nil {
		return err
	}

	structs := make([]*qdrant.PointStruct, len(points))
	for n, p := range points {
		if err := core.CheckDimensions(p.Vector, dims); err != nil {
			return fmt.Errorf("point %d: %w", p.Identity, err)
		}
		structs[n] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.Identity),
			Vectors: qdrant.NewVectorsDense(p.Vector),
			Payload: toPayload(&p.Payload),
		}
	}

	_, err = i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return classify(err)
	}
	i.logger.Debug("upserted points", "count", len(points))
	return nil
}

// Search runs a nearest-neighbor query and returns hits in server order.
func (i *Index) Search(ctx context.Context, vector []float32, limit int) ([]core.ScoredPoint, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit %d", storage.ErrInvalidQuery, limit)
	}
	if limit == 0 {
		return []core.ScoredPoint{}, nil
	}
	dims, err := i.dimensions(ctx)
	if err != nil {
		return nil, err
	}
	if err := core.CheckDimensions(vector, dims); err != nil {
		return nil, err
	}

	scored, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, classify(err)
	}

	hits := make([]core.ScoredPoint, len(scored))
	for n, sp := range scored {
		hits[n] = core.ScoredPoint{
			Identity: sp.GetId().GetNum(),
			Payload:  fromPayload(sp.GetPayload()),
			Score:    sp.GetScore(),
		}
	}
	return hits, nil
}

// Count returns the exact number of points in the collection.
func (i *Index) Count(ctx context.Context) (uint64, error) {
	count, err := i.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: i.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, classify(err)
	}
	return count, nil
}

// classify maps gRPC status codes onto the storage and core sentinels.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %w", storage.ErrCollectionNotFound, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return fmt.Errorf("%w: %w", core.ErrUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", core.ErrUnavailable, err)
	}
	return err
}
