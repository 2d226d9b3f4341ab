package openai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/kgextract/ai"
	"github.com/poiesic/kgextract/retry"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// Transient failures are retried with exponential backoff.
type Embedder struct {
	embedder       embeddings.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}
	return newEmbedderWithClient(client, config)
}

// newEmbedderWithClient wraps any langchaingo embedding client.
func newEmbedderWithClient(client embeddings.EmbedderClient, config *ai.Config) (*Embedder, error) {
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:       embedder,
		maxRetries:     config.MaxRetries,
		retryBaseDelay: config.RetryBaseDelay,
		logger:         slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates an embedder for the embedding host and model in config.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in one request. The result has exactly one
// vector per text, in order; any other count is a ProviderError.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings", "count", len(texts))

	var vectors [][]float32
	err := retry.WithBackoffIf(ctx, func() error {
		var err error
		vectors, err = e.embedder.EmbedDocuments(ctx, texts)
		return mapError(err)
	}, e.maxRetries, e.retryBaseDelay, ai.IsRetryable)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, ai.NewProviderError(fmt.Sprintf("embedder returned %d vectors for %d texts", len(vectors), len(texts)))
	}
	return vectors, nil
}
