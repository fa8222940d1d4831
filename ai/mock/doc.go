// Package mock provides test doubles for the ai interfaces.
//
// MockEmbedder returns deterministic vectors derived from a hash of the input
// text unless EmbedTextFunc or EmbedTextsFunc is set:
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{1, 0, 0}, nil
//	}
//	count := embedder.CallCount()
package mock
