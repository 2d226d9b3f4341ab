package extraction

import (
	"context"

	"github.com/poiesic/kgextract/core"
)

// Extractor extracts entities and relationships from one chunk.
// Implementations must be safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, chunk core.Chunk) (*core.Extraction, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error)

// Extract calls f(ctx, chunk).
func (f ExtractorFunc) Extract(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
	return f(ctx, chunk)
}
