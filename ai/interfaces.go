package ai

import (
	"context"

	"github.com/poiesic/kgextract/core"
)

// Embedder generates vector embeddings for text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EntityExtractor extracts entities and relationships from a chunk of text.
// Implementations must be thread-safe for concurrent use.
//
// The method set matches extraction.Extractor, so an EntityExtractor can be
// handed to the extraction executor directly.
type EntityExtractor interface {
	// Extract analyzes the chunk and returns the entities it mentions and
	// the relationships between them. Returns an empty extraction when
	// nothing is found. Errors carry provider details (see APIStatusError).
	Extract(ctx context.Context, chunk core.Chunk) (*core.Extraction, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// EntityExtractor returns the entity extraction service.
	// The returned EntityExtractor is safe for concurrent use.
	EntityExtractor() EntityExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
