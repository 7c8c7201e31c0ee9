package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"

	"github.com/poiesic/nameres/ai"
	"github.com/poiesic/nameres/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// defaultRequestBatchSize matches langchaingo's own default.
const defaultRequestBatchSize = 512

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder   embeddings.Embedder
	batchSize  int
	model      string
	dimensions int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	)
	if err != nil {
		return nil, err
	}

	batchSize := config.RequestBatchSize
	if batchSize <= 0 {
		batchSize = defaultRequestBatchSize
	}
	// Requests are split here, one limiter token each; langchaingo sees
	// batches that never need splitting again.
	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(batchSize))
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Embedder{
		embedder:   embedder,
		batchSize:  batchSize,
		model:      config.EmbeddingModel,
		dimensions: config.Dimensions,
		limiter:    limiter,
		logger:     slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// Dimensions returns the configured output dimensionality.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Model returns the embedding model identifier.
func (e *Embedder) Model() string {
	return e.model
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in requests of at most RequestBatchSize texts,
// each one paced by the rate limiter. Every returned vector is checked
// against the declared dimensionality.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	e.logger.Debug("generating embeddings for texts", "count", len(texts), "request_size", e.batchSize)

	vectors := make([][]float32, 0, len(texts))
	for chunk := range slices.Chunk(texts, e.batchSize) {
		part, err := e.request(ctx, chunk)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, part...)
	}

	for _, v := range vectors {
		if err := core.CheckDimensions(v, e.dimensions); err != nil {
			return nil, fmt.Errorf("model %s: %w", e.model, err)
		}
	}

	return vectors, nil
}

// request sends one HTTP embedding request, waiting on the rate limiter
// first.
func (e *Embedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ctxErr, err)
		}
		if isTransient(err) {
			return nil, fmt.Errorf("%w: %w", core.ErrUnavailable, err)
		}
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(texts), len(vectors))
	}
	return vectors, nil
}

// transientMarkers match the messages the client produces for timeouts,
// connection failures and retryable HTTP statuses. It does not keep the
// underlying error chain for those.
var transientMarkers = []string{
	"request timeout",
	"network error",
	"status code: 429",
	"status code: 500",
	"status code: 502",
	"status code: 503",
	"status code: 504",
}

// isTransient reports transport-level failures worth retrying.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
