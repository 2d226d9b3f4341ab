// Package mock provides test doubles for the ai interfaces.
//
// Each mock has function fields that replace its default behavior and an
// atomic call counter, so it can sit behind the concurrent extraction
// executor:
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.6, 0.8}, nil
//	}
//	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockEntityExtractor())
//
// Defaults:
//
//   - MockEmbedder returns a deterministic unit vector derived from the text.
//   - MockEntityExtractor turns every capitalized word into a "concept"
//     entity and relates consecutive ones.
package mock
