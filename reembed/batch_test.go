package reembed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/kgextract/ai"
	"github.com/poiesic/kgextract/ai/mock"
	"github.com/poiesic/kgextract/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unnormalizedEmbedder returns vectors of magnitude 3.
func unnormalizedEmbedder() *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		result := make([][]float32, len(texts))
		for i := range texts {
			result[i] = []float32{1.0, 2.0, 2.0}
		}
		return result, nil
	}
	return embedder
}

func magnitude(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return sum
}

func TestBatchProcessor_Process(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	added := seedEntities(t, repo, 2)

	var texts []string
	embedder := unnormalizedEmbedder()
	inner := embedder.EmbedTextsFunc
	embedder.EmbedTextsFunc = func(ctx context.Context, in []string) ([][]float32, error) {
		texts = append(texts, in...)
		return inner(ctx, in)
	}

	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)
	require.NoError(t, processor.Process(ctx, added))

	assert.Equal(t, []string{"ENTITY 0: Description 0", "ENTITY 1: Description 1"}, texts)

	updated, err := repo.GetEntities(ctx, added[0].Id, added[1].Id)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, entity := range updated {
		require.NotEmpty(t, entity.Vector, "should have embedding")
		assert.InDelta(t, 1.0, magnitude(entity.Vector), 0.01, "vector should be normalized")
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	repo := setupTestDB(t)
	embedder := mock.NewMockEmbedder()

	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)
	require.NoError(t, processor.Process(context.Background(), nil))
	assert.Zero(t, embedder.CallCount())
}

func TestBatchProcessor_RetriesTransientErrors(t *testing.T) {
	repo := setupTestDB(t)
	added := seedEntities(t, repo, 1)

	var attempts atomic.Int32
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if attempts.Add(1) < 3 {
			return nil, ai.NewConnectionError(104, "connection reset by peer")
		}
		return [][]float32{{0, 3, 4}}, nil
	}

	processor := NewBatchProcessor(repo, embedder, 3, time.Millisecond)
	require.NoError(t, processor.Process(context.Background(), added))
	assert.Equal(t, int32(3), attempts.Load())
	assert.InDeltaSlice(t, []float32{0, 0.6, 0.8}, added[0].Vector, 1e-6)
}

func TestBatchProcessor_DoesNotRetryAuthFailure(t *testing.T) {
	repo := setupTestDB(t)
	added := seedEntities(t, repo, 1)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, ai.NewAPIStatusError(401, "invalid api key", "", nil)
	}

	processor := NewBatchProcessor(repo, embedder, 5, time.Millisecond)
	err := processor.Process(context.Background(), added)

	require.Error(t, err)
	assert.True(t, ai.IsAuthenticationError(err))
	assert.Equal(t, 1, embedder.CallCount())
}

func TestBatchProcessor_RetriesExhausted(t *testing.T) {
	repo := setupTestDB(t)
	added := seedEntities(t, repo, 1)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, ai.NewAPIStatusError(503, "overloaded", "", nil)
	}

	processor := NewBatchProcessor(repo, embedder, 2, time.Millisecond)
	err := processor.Process(context.Background(), added)

	var serverErr *ai.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, 2, embedder.CallCount())
}

func TestBatchProcessor_CountMismatch(t *testing.T) {
	repo := setupTestDB(t)
	added := seedEntities(t, repo, 2)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}

	processor := NewBatchProcessor(repo, embedder, 1, time.Millisecond)
	err := processor.Process(context.Background(), added)
	assert.ErrorContains(t, err, "embedding count mismatch")
}

func TestBatchProcessor_MissingEntity(t *testing.T) {
	repo := setupTestDB(t)

	processor := NewBatchProcessor(repo, unnormalizedEmbedder(), 1, time.Millisecond)
	err := processor.Process(context.Background(), []*core.Entity{{Id: 42, Name: "Ghost", Type: "concept"}})
	assert.Error(t, err)
}

func TestBatchProcessor_ContextCancelled(t *testing.T) {
	repo := setupTestDB(t)
	added := seedEntities(t, repo, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(repo, unnormalizedEmbedder(), 3, time.Millisecond)
	err := processor.Process(ctx, added)
	assert.True(t, errors.Is(err, context.Canceled))
}
