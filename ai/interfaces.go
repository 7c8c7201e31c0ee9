package ai

import "context"

// Embedder turns names into vectors. Implementations are safe for
// concurrent use.
type Embedder interface {
	// EmbedText embeds one string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts embeds texts in order: vector i belongs to texts[i] and has
	// Dimensions() entries. Failures worth retrying wrap core.ErrUnavailable.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int

	// Model names the embedding model. Query vectors are only comparable
	// with an index built by the same model.
	Model() string
}

// AIProvider hands out the embedding service and owns its lifecycle.
type AIProvider interface {
	Embedder() Embedder
	Close() error
}
