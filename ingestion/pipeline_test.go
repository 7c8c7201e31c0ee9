package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/nameres/ai/mock"
	"github.com/poiesic/nameres/core"
	"github.com/poiesic/nameres/source"
	"github.com/poiesic/nameres/storage"
	"github.com/poiesic/nameres/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingIndex implements storage.VectorIndex and keeps every upserted point.
type recordingIndex struct {
	mu         sync.Mutex
	dims       int
	recreated  int
	upserts    [][]core.IndexedPoint
	upsertErrs []error // consumed one per Upsert call
}

var _ storage.VectorIndex = (*recordingIndex)(nil)

func (r *recordingIndex) Recreate(_ context.Context, dims int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dims = dims
	r.recreated++
	r.upserts = nil
	return nil
}

func (r *recordingIndex) Dimensions(context.Context) (int, error) { return r.dims, nil }

func (r *recordingIndex) Upsert(_ context.Context, points []core.IndexedPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.upsertErrs) > 0 {
		err := r.upsertErrs[0]
		r.upsertErrs = r.upsertErrs[1:]
		if err != nil {
			return err
		}
	}
	r.upserts = append(r.upserts, slices.Clone(points))
	return nil
}

func (r *recordingIndex) Search(context.Context, []float32, int) ([]core.ScoredPoint, error) {
	return nil, nil
}

func (r *recordingIndex) Count(context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n uint64
	for _, batch := range r.upserts {
		n += uint64(len(batch))
	}
	return n, nil
}

func (r *recordingIndex) Name() string { return "recording" }
func (r *recordingIndex) Close() error { return nil }

func (r *recordingIndex) points() []core.IndexedPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []core.IndexedPoint
	for _, batch := range r.upserts {
		all = append(all, batch...)
	}
	return all
}

func corpus() []*core.ConceptRecord {
	return []*core.ConceptRecord{
		{CURIE: "MONDO:0005812", Names: []string{"flu", "grippe"}, PreferredName: "influenza", Types: []string{"Disease"}, Category: "Disease"},
		{CURIE: "CHEBI:15365", Names: []string{"aspirin", "acetylsalicylic acid"}, PreferredName: "aspirin", Types: []string{"SmallMolecule"}, Category: "SmallMolecule"},
		{CURIE: "", Names: []string{"orphan"}, PreferredName: "orphan", Category: "Disease"},
		{CURIE: "HP:0001945", Names: []string{}, PreferredName: "fever", Types: []string{"PhenotypicFeature"}, Category: "PhenotypicFeature"},
	}
}

func newTestPipeline(t *testing.T, index storage.VectorIndex, embedder *mock.MockEmbedder, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithRetry(3, time.Millisecond)}, opts...)
	p, err := NewPipeline(index, mock.NewMockProviderWithEmbedder(embedder), opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline(t *testing.T) {
	provider := mock.NewMockProvider()
	index := &recordingIndex{}

	_, err := NewPipeline(nil, provider)
	assert.ErrorIs(t, err, ErrIndexRequired)

	_, err = NewPipeline(index, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)

	_, err = NewPipeline(index, provider, WithBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	_, err = NewPipeline(index, provider, WithRetry(0, time.Second))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	p, err := NewPipeline(index, provider, WithPipelining(true), WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, p.upsertPool)
	assert.Equal(t, DefaultBatchSize, p.batchSize)
	p.Release()
}

func TestRun_Badger(t *testing.T) {
	ctx := context.Background()
	index, err := badger.NewMemoryIndex("concept-resolver")
	require.NoError(t, err)
	defer index.Close()

	embedder := mock.NewMockEmbedderWithDimensions(16)
	p := newTestPipeline(t, index, embedder, WithBatchSize(2))

	summary, err := p.Run(ctx, source.Slice(corpus()...))
	require.NoError(t, err)

	// flu: flu, grippe, influenza; aspirin: aspirin, acetylsalicylic acid; fever: fever
	assert.Equal(t, 3, summary.Accepted)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 6, summary.Points)
	assert.Equal(t, 3, summary.Batches)
	assert.Equal(t, 16, summary.Dimensions)
	assert.Equal(t, "concept-resolver", summary.Collection)
	assert.NotEmpty(t, summary.RunID)
	assert.Len(t, summary.Fingerprint, 64)
	assert.Equal(t, 3, summary.Partitions["Disease"].Points)
	assert.Equal(t, 1, summary.Partitions["Disease"].Skipped)
	missingCURIE := fmt.Errorf("%w: %w", core.ErrInvalidRecord, core.ErrMissingCURIE).Error()
	assert.Equal(t, 1, summary.SkipReasons[missingCURIE])

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), count)

	dims, err := index.Dimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, dims)

	// Searching with the exact vector of a synonym finds its concept first.
	hits, err := index.Search(ctx, mock.Vector("grippe", 16), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "MONDO:0005812", hits[0].Payload.ID)
	assert.Equal(t, "influenza", hits[0].Payload.Label)
	assert.Equal(t, "grippe", hits[0].Payload.EmbeddedLabel)
	assert.Equal(t, []string{"flu", "grippe", "influenza"}, hits[0].Payload.Synonyms)
}

func TestRun_IdentitiesContiguous(t *testing.T) {
	var records []*core.ConceptRecord
	for i := 0; i < 10; i++ {
		records = append(records, &core.ConceptRecord{
			CURIE:         fmt.Sprintf("X:%d", i),
			Names:         []string{fmt.Sprintf("name %d", i)},
			PreferredName: fmt.Sprintf("name %d", i),
		})
	}

	for _, pipelined := range []bool{false, true} {
		t.Run(fmt.Sprintf("pipelined=%v", pipelined), func(t *testing.T) {
			index := &recordingIndex{}
			p := newTestPipeline(t, index, mock.NewMockEmbedderWithDimensions(4),
				WithBatchSize(3), WithPipelining(pipelined))

			summary, err := p.Run(context.Background(), source.Slice(records...))
			require.NoError(t, err)
			assert.Equal(t, 10, summary.Points)
			assert.Equal(t, 4, summary.Batches)

			points := index.points()
			require.Len(t, points, 10)
			for i, pt := range points {
				assert.Equal(t, uint64(i), pt.Identity)
				assert.Equal(t, fmt.Sprintf("X:%d", i), pt.Payload.ID)
			}
		})
	}
}

func TestRun_PipeliningSameIndexedSet(t *testing.T) {
	run := func(pipelined bool) []core.IndexedPoint {
		index := &recordingIndex{}
		p := newTestPipeline(t, index, mock.NewMockEmbedderWithDimensions(8),
			WithBatchSize(2), WithPipelining(pipelined))
		_, err := p.Run(context.Background(), source.Slice(corpus()...))
		require.NoError(t, err)
		return index.points()
	}

	assert.Equal(t, run(false), run(true))
}

func TestRun_FingerprintStable(t *testing.T) {
	run := func() string {
		p := newTestPipeline(t, &recordingIndex{}, mock.NewMockEmbedderWithDimensions(4))
		summary, err := p.Run(context.Background(), source.Slice(corpus()...))
		require.NoError(t, err)
		return summary.Fingerprint
	}
	assert.Equal(t, run(), run())
}

func TestRun_TransientEmbedFailureRetried(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimensions(4)
	var calls int
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 1 {
			return nil, fmt.Errorf("%w: connection reset", core.ErrUnavailable)
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.Vector(text, 4)
		}
		return out, nil
	}

	index := &recordingIndex{}
	p := newTestPipeline(t, index, embedder)
	summary, err := p.Run(context.Background(), source.Slice(corpus()...))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 6, summary.Points)
}

func TestRun_PermanentEmbedFailureNotRetried(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimensions(4)
	bad := errors.New("API returned unexpected status code: 400")
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, bad
	}

	p := newTestPipeline(t, &recordingIndex{}, embedder)
	summary, err := p.Run(context.Background(), source.Slice(corpus()...))
	assert.ErrorIs(t, err, bad)
	assert.Equal(t, 1, embedder.CallCount())
	assert.Zero(t, summary.Points)
}

func TestRun_RetriesExhausted(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimensions(4)
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, core.ErrUnavailable
	}

	p := newTestPipeline(t, &recordingIndex{}, embedder)
	_, err := p.Run(context.Background(), source.Slice(corpus()...))
	assert.ErrorIs(t, err, core.ErrUnavailable)
	assert.Equal(t, 3, embedder.CallCount())
}

func TestRun_DimensionMismatchAborts(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimensions(4)
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = make([]float32, 3)
		}
		return out, nil
	}

	index := &recordingIndex{}
	p := newTestPipeline(t, index, embedder)
	_, err := p.Run(context.Background(), source.Slice(corpus()...))
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	assert.Empty(t, index.points())
}

func TestRun_CountMismatchAborts(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimensions(4)
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1, 0, 0, 0}}, nil
	}

	p := newTestPipeline(t, &recordingIndex{}, embedder)
	_, err := p.Run(context.Background(), source.Slice(corpus()...))
	assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
}

func TestRun_UpsertFailure(t *testing.T) {
	for _, pipelined := range []bool{false, true} {
		t.Run(fmt.Sprintf("pipelined=%v", pipelined), func(t *testing.T) {
			failure := errors.New("payload rejected")
			index := &recordingIndex{upsertErrs: []error{nil, failure}}
			p := newTestPipeline(t, index, mock.NewMockEmbedderWithDimensions(4),
				WithBatchSize(2), WithPipelining(pipelined))

			summary, err := p.Run(context.Background(), source.Slice(corpus()...))
			assert.ErrorIs(t, err, failure)
			assert.Equal(t, 2, summary.Points, "only the first batch was written")
		})
	}
}

func TestRun_TransientUpsertRetried(t *testing.T) {
	index := &recordingIndex{upsertErrs: []error{core.ErrUnavailable}}
	p := newTestPipeline(t, index, mock.NewMockEmbedderWithDimensions(4))

	summary, err := p.Run(context.Background(), source.Slice(corpus()...))
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Points)
	assert.Len(t, index.points(), 6)
}

func TestRun_Progress(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPipeline(t, &recordingIndex{}, mock.NewMockEmbedderWithDimensions(4),
		WithBatchSize(2), WithProgress(&buf, 1))

	_, err := p.Run(context.Background(), source.Slice(corpus()...))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Ingested 6 points in 3 batches")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t, &recordingIndex{}, mock.NewMockEmbedderWithDimensions(4))
	_, err := p.Run(ctx, source.Slice(corpus()...))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NilSource(t *testing.T) {
	p := newTestPipeline(t, &recordingIndex{}, mock.NewMockEmbedderWithDimensions(4))
	_, err := p.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSourceRequired)
}

func TestSummaryPrint(t *testing.T) {
	p := newTestPipeline(t, &recordingIndex{}, mock.NewMockEmbedderWithDimensions(4))
	summary, err := p.Run(context.Background(), source.Slice(corpus()...))
	require.NoError(t, err)

	var buf bytes.Buffer
	summary.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "Accepted:    3")
	assert.Contains(t, out, "Skipped:     1")
	assert.Contains(t, out, "SmallMolecule")
	assert.Contains(t, out, "Skip reasons:")
}
