package reembed

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.EntityRepository {
	t.Helper()
	repo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return repo
}

func seedEntities(t *testing.T, repo *badger.EntityRepository, n int) []*core.Entity {
	t.Helper()
	entities := make([]*core.Entity, n)
	for i := range entities {
		entities[i] = &core.Entity{
			Name:        fmt.Sprintf("Entity %d", i),
			Type:        "concept",
			Description: fmt.Sprintf("Description %d", i),
		}
	}
	added, err := repo.UpsertEntities(context.Background(), entities...)
	require.NoError(t, err)
	return added
}

func TestEntityIterator_Basic(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	seedEntities(t, repo, 3)

	iter := NewEntityIterator(repo, 2)
	var batches []int
	seen := make(map[core.ID]bool)

	err := iter.ForEach(ctx, func(entities []*core.Entity) error {
		batches = append(batches, len(entities))
		for _, e := range entities {
			seen[e.Id] = true
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, batches)
	assert.Len(t, seen, 3, "should visit every entity once")
}

func TestEntityIterator_ExactMultipleOfBatchSize(t *testing.T) {
	repo := setupTestDB(t)
	seedEntities(t, repo, 4)

	var batches []int
	err := NewEntityIterator(repo, 2).ForEach(context.Background(), func(entities []*core.Entity) error {
		batches = append(batches, len(entities))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, batches)
}

func TestEntityIterator_Empty(t *testing.T) {
	repo := setupTestDB(t)

	called := false
	err := NewEntityIterator(repo, 10).ForEach(context.Background(), func(entities []*core.Entity) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.False(t, called)
}

func TestEntityIterator_DefaultBatchSize(t *testing.T) {
	iter := NewEntityIterator(nil, 0)
	assert.Equal(t, DefaultBatchSize, iter.batchSize)
}

func TestEntityIterator_StopsOnError(t *testing.T) {
	repo := setupTestDB(t)
	seedEntities(t, repo, 5)

	calls := 0
	err := NewEntityIterator(repo, 2).ForEach(context.Background(), func(entities []*core.Entity) error {
		calls++
		return fmt.Errorf("stop")
	})

	assert.EqualError(t, err, "stop")
	assert.Equal(t, 1, calls)
}

func TestEntityIterator_ContextCancelled(t *testing.T) {
	repo := setupTestDB(t)
	seedEntities(t, repo, 5)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := NewEntityIterator(repo, 2).ForEach(ctx, func(entities []*core.Entity) error {
		calls++
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
