// Package mock provides test doubles for the ai interfaces.
//
// The default MockEmbedder hashes each text into a deterministic unit
// vector, so identical strings always embed identically and tests can run
// without an embedding service.
//
//	provider := mock.NewMockProvider()
//	vec, err := provider.Embedder().EmbedText(ctx, "flu")
//
// Behavior can be overridden per test:
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, core.ErrUnavailable
//	}
package mock
