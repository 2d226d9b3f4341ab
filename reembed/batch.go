package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/kgextract/ai"
	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/retry"
	"github.com/poiesic/kgextract/storage"
)

// BatchProcessor handles embedding generation for batches of entities.
type BatchProcessor struct {
	repo           storage.EntityRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.EntityRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process generates embeddings for a batch of entities and updates them in the database.
// Vectors are normalized after embedding to ensure compatibility with cosine similarity.
// Only transient provider failures (see ai.IsRetryable) are retried.
func (bp *BatchProcessor) Process(ctx context.Context, entities []*core.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	texts := make([]string, len(entities))
	for i, entity := range entities {
		texts[i] = entity.EmbeddingText()
	}

	// Generate embeddings with retry
	var embeddings [][]float32
	err := retry.WithBackoffIf(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay, ai.IsRetryable)

	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(embeddings) != len(entities) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(entities), len(embeddings))
	}

	// Normalize vectors and assign to entities
	for i := range entities {
		entities[i].Vector = core.NormalizeVector(embeddings[i])
	}

	_, err = bp.repo.UpdateEntities(ctx, entities...)
	if err != nil {
		return fmt.Errorf("failed to update entities: %w", err)
	}

	return nil
}
