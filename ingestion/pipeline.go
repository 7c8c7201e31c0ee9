package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/nameres/ai"
	"github.com/poiesic/nameres/core"
	"github.com/poiesic/nameres/source"
	"github.com/poiesic/nameres/storage"
)

const (
	DefaultBatchSize   = 100000
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

// Pipeline embeds a synonym corpus into a vector index.
type Pipeline struct {
	index       storage.VectorIndex
	embedder    ai.Embedder
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	pipelined   bool
	upsertPool  *ants.Pool
	progress    io.Writer
	reportEvery int
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithBatchSize sets how many embedding units are flushed together.
// Default is 100000.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidBatchSize, size)
		}
		p.batchSize = size
		return nil
	}
}

// WithRetry sets the attempts and initial backoff for embed and upsert calls.
// Default is 3 attempts starting at one second.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.baseDelay = baseDelay
		return nil
	}
}

// WithPipelining overlaps the upsert of one batch with the embedding of
// the next.
func WithPipelining(enabled bool) Option {
	return func(p *Pipeline) error {
		p.pipelined = enabled
		return nil
	}
}

// WithProgress reports written points to w every reportInterval points.
func WithProgress(w io.Writer, reportInterval int) Option {
	return func(p *Pipeline) error {
		p.progress = w
		p.reportEvery = reportInterval
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline writing into index.
func NewPipeline(index storage.VectorIndex, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	p := &Pipeline{
		index:       index,
		embedder:    provider.Embedder(),
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultRetryDelay,
		logger:      slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.pipelined {
		pool, err := ants.NewPool(1)
		if err != nil {
			return nil, err
		}
		p.upsertPool = pool
	}

	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.upsertPool != nil {
		p.upsertPool.Release()
	}
}

// run holds the mutable state of a single Run.
type run struct {
	*Pipeline
	summary  *Summary
	tracker  *ProgressTracker
	buffer   []core.EmbeddingUnit
	next     uint64
	inflight chan error
	pending  int
}

// Run recreates the collection and ingests every accepted record from src.
// The returned summary is non-nil even when the run fails part way.
func (p *Pipeline) Run(ctx context.Context, src source.Source) (*Summary, error) {
	start := time.Now()
	summary := newSummary(uuid.NewString())
	summary.Collection = p.index.Name()
	summary.Model = p.embedder.Model()
	summary.Dimensions = p.embedder.Dimensions()
	defer summary.finish(start)

	if src == nil {
		return summary, ErrSourceRequired
	}

	logger := p.logger.With("run", summary.RunID)
	logger.Info("starting ingestion",
		"collection", summary.Collection,
		"model", summary.Model,
		"dimensions", summary.Dimensions,
		"batch_size", p.batchSize,
		"pipelined", p.pipelined)

	err := p.withRetry(ctx, func() error {
		return p.index.Recreate(ctx, summary.Dimensions)
	})
	if err != nil {
		return summary, fmt.Errorf("recreate collection: %w", err)
	}

	r := &run{
		Pipeline: p,
		summary:  summary,
		buffer:   make([]core.EmbeddingUnit, 0, min(p.batchSize, 4096)),
	}
	if p.progress != nil {
		r.tracker = NewProgressTracker(p.progress, p.reportEvery)
		r.tracker.Start()
		defer r.tracker.Finish()
	}

	err = src.ForEach(ctx, func(o source.Outcome) error {
		if o.Kind == source.Skipped {
			summary.skip(o)
			logger.Warn("skipping record",
				"partition", o.Partition, "line", o.Line, "reason", o.Reason, "detail", o.Detail)
			return nil
		}

		o.Record.Normalize()
		units := o.Record.Units()
		summary.accept(o, len(units))

		for _, unit := range units {
			r.buffer = append(r.buffer, unit)
			if len(r.buffer) >= p.batchSize {
				if err := r.flush(ctx); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		err = r.flush(ctx)
	}
	if waitErr := r.wait(); err == nil {
		err = waitErr
	}
	if err != nil {
		logger.Error("ingestion aborted", "points", summary.Points, "err", err)
		return summary, err
	}

	logger.Info("ingestion complete",
		"accepted", summary.Accepted,
		"skipped", summary.Skipped,
		"points", summary.Points,
		"batches", summary.Batches)
	return summary, nil
}

// flush embeds the buffered units and writes them. Identities are assigned
// here, before the next batch is read, so they stay contiguous regardless
// of pipelining.
func (r *run) flush(ctx context.Context) error {
	if len(r.buffer) == 0 {
		return nil
	}

	points, next, err := r.embedBatch(ctx, r.buffer, r.next)
	if err != nil {
		return err
	}
	r.next = next
	r.buffer = r.buffer[:0]

	if !r.pipelined {
		if err := r.upsert(ctx, points); err != nil {
			return err
		}
		r.written(len(points))
		return nil
	}

	// At most one upsert in flight: collect the previous one first.
	if err := r.wait(); err != nil {
		return err
	}
	done := make(chan error, 1)
	err = r.upsertPool.Submit(func() {
		done <- r.upsert(ctx, points)
	})
	if err != nil {
		return fmt.Errorf("submit upsert: %w", err)
	}
	r.inflight = done
	r.pending = len(points)
	return nil
}

// wait blocks until the in-flight upsert, if any, completes.
func (r *run) wait() error {
	if r.inflight == nil {
		return nil
	}
	err := <-r.inflight
	r.inflight = nil
	if err != nil {
		return err
	}
	r.written(r.pending)
	r.pending = 0
	return nil
}

func (r *run) written(points int) {
	r.summary.Points += points
	r.summary.Batches++
	if r.tracker != nil {
		r.tracker.Batch(points)
	}
}

// embedBatch embeds every unit's name in order and turns the vectors into
// points numbered from next. It returns the identity following the last
// point.
func (p *Pipeline) embedBatch(ctx context.Context, units []core.EmbeddingUnit, next uint64) ([]core.IndexedPoint, uint64, error) {
	texts := make([]string, len(units))
	for i, unit := range units {
		texts[i] = unit.SourceName
	}

	var vectors [][]float32
	err := p.withRetry(ctx, func() error {
		var err error
		vectors, err = p.embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		return nil, next, fmt.Errorf("embed batch at identity %d: %w", next, err)
	}

	if len(vectors) != len(texts) {
		return nil, next, fmt.Errorf("%w: %d vectors for %d texts", ErrEmbeddingCountMismatch, len(vectors), len(texts))
	}
	dims := p.embedder.Dimensions()
	points := make([]core.IndexedPoint, len(units))
	for i, unit := range units {
		if err := core.CheckDimensions(vectors[i], dims); err != nil {
			return nil, next, fmt.Errorf("vector for %q: %w", unit.SourceName, err)
		}
		points[i] = core.IndexedPoint{
			Identity: next,
			Vector:   vectors[i],
			Payload:  unit.Record.Payload(unit.SourceName),
		}
		next++
	}
	return points, next, nil
}

func (p *Pipeline) upsert(ctx context.Context, points []core.IndexedPoint) error {
	err := p.withRetry(ctx, func() error {
		return p.index.Upsert(ctx, points)
	})
	if err != nil {
		return fmt.Errorf("upsert %d points from identity %d: %w", len(points), points[0].Identity, err)
	}
	return nil
}

func (p *Pipeline) withRetry(ctx context.Context, op func() error) error {
	return RetryWithBackoff(ctx, op, p.maxAttempts, p.baseDelay, IsTransient)
}
