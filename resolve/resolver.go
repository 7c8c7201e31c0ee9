package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/nameres/ai"
	"github.com/poiesic/nameres/core"
	"github.com/poiesic/nameres/storage"
)

// Resolver answers lookups against a vector index.
// It is safe for concurrent use when the index and embedder are.
type Resolver struct {
	index    storage.VectorIndex
	embedder ai.Embedder
	monitor  LookupMonitor
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithDefaultMonitor sets the monitor used by Lookup.
func WithDefaultMonitor(monitor LookupMonitor) Option {
	return func(r *Resolver) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		r.monitor = monitor
		return nil
	}
}

// NewResolver creates a new resolver.
func NewResolver(index storage.VectorIndex, provider ai.AIProvider, opts ...Option) (*Resolver, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &Resolver{
		index:    index,
		embedder: provider.Embedder(),
		monitor:  &noopMonitor{},
		logger:   slog.Default().With("component", "resolver"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Lookup resolves q using the default monitor.
func (r *Resolver) Lookup(ctx context.Context, q Query) ([]core.LookupResult, error) {
	return r.LookupWithMonitor(ctx, q, r.monitor)
}

// LookupWithMonitor resolves q and reports each stage to monitor.
// The result is never nil on success.
func (r *Resolver) LookupWithMonitor(ctx context.Context, q Query, monitor LookupMonitor) ([]core.LookupResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(q)

	if q.Limit == 0 {
		results := []core.LookupResult{}
		monitor.Finish(results)
		return results, nil
	}

	vectors, err := r.embedder.EmbedTexts(ctx, []string{q.Text})
	if err != nil {
		r.logger.Error("error generating embedding for query", "query", q.Text, "err", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: %w: no vector returned", core.ErrDimensionMismatch)
	}
	vector := vectors[0]
	monitor.AfterEmbed(len(vector))

	hits, err := r.index.Search(ctx, vector, q.Limit)
	if err != nil {
		r.logger.Error("error searching index", "err", err)
		return nil, fmt.Errorf("search index: %w", err)
	}
	monitor.AfterSearch(hits)

	results := dedupe(hits, monitor)
	results = filter(results, q, monitor)

	monitor.Finish(results)
	r.logger.Debug("lookup complete", "query", q.Text, "hits", len(hits), "results", len(results))
	return results, nil
}

// dedupe keeps the first hit for each CURIE in index order.
func dedupe(hits []core.ScoredPoint, monitor LookupMonitor) []core.LookupResult {
	seen := make(map[string]struct{}, len(hits))
	results := make([]core.LookupResult, 0, len(hits))
	for i := range hits {
		hit := &hits[i]
		if _, ok := seen[hit.Payload.ID]; ok {
			monitor.Duplicate(hit.Payload.ID, hit.Score)
			continue
		}
		seen[hit.Payload.ID] = struct{}{}
		results = append(results, hit.Result())
	}
	return results
}

// filter applies the type and prefix filters in place, preserving order.
func filter(results []core.LookupResult, q Query, monitor LookupMonitor) []core.LookupResult {
	if q.BiolinkType == "" && len(q.OnlyPrefixes) == 0 && len(q.ExcludePrefixes) == 0 {
		return results
	}
	kept := results[:0]
	for _, result := range results {
		prefix := core.Prefix(result.Curie)
		switch {
		case q.BiolinkType != "" && !hasType(result.Types, q.BiolinkType):
			monitor.Filtered(result.Curie, "type")
		case len(q.OnlyPrefixes) > 0 && !slices.Contains(q.OnlyPrefixes, prefix):
			monitor.Filtered(result.Curie, "prefix not allowed")
		case slices.Contains(q.ExcludePrefixes, prefix):
			monitor.Filtered(result.Curie, "prefix excluded")
		default:
			kept = append(kept, result)
		}
	}
	return kept
}

// CheckCompatibility verifies that the index was built for vectors of the
// embedder's size.
func (r *Resolver) CheckCompatibility(ctx context.Context) error {
	dims, err := r.index.Dimensions(ctx)
	if err != nil {
		return err
	}
	if dims != r.embedder.Dimensions() {
		return fmt.Errorf("%w: index %s holds %d-dimensional vectors, model %s produces %d",
			core.ErrDimensionMismatch, r.index.Name(), dims, r.embedder.Model(), r.embedder.Dimensions())
	}
	return nil
}

// Stats describes the index a resolver serves.
type Stats struct {
	Collection string `json:"collection"`
	Points     uint64 `json:"points"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// Stats reports the point count alongside the embedding model.
func (r *Resolver) Stats(ctx context.Context) (Stats, error) {
	count, err := r.index.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Collection: r.index.Name(),
		Points:     count,
		Model:      r.embedder.Model(),
		Dimensions: r.embedder.Dimensions(),
	}, nil
}
