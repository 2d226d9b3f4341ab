package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/storage"
)

// RelationshipRepository implements storage.RelationshipRepository for BadgerDB.
type RelationshipRepository struct {
	backend *Backend
}

var _ storage.RelationshipRepository = (*RelationshipRepository)(nil)

// NewRelationshipRepository creates a new RelationshipRepository.
func NewRelationshipRepository(backend *Backend) *RelationshipRepository {
	return &RelationshipRepository{
		backend: backend,
	}
}

// Close releases resources. RelationshipRepository has no resources to release.
func (r *RelationshipRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *RelationshipRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertRelationships stores relationships and indexes both endpoints.
func (r *RelationshipRepository) UpsertRelationships(ctx context.Context, relationships ...*core.Relationship) ([]*core.Relationship, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, rel := range relationships {
			if err := core.ValidateRelationship(rel); err != nil {
				return err
			}
			rel.Source = core.NormalizeName(rel.Source)
			rel.Target = core.NormalizeName(rel.Target)
			if rel.SourceId == 0 {
				rel.SourceId = core.EntityID(rel.Source)
			}
			if rel.TargetId == 0 {
				rel.TargetId = core.EntityID(rel.Target)
			}
			if rel.Id == 0 {
				rel.Id = core.RelationshipID(rel.Source, rel.Target)
			}

			key := makeRelationshipKey(rel.Id)
			old, err := readRelationship(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				rel.InsertedAt = old.InsertedAt
			} else if rel.InsertedAt.IsZero() {
				rel.InsertedAt = now
			}
			rel.UpdatedAt = now

			if err := tx.Set(key, storage.MarshalRelationship(rel)); err != nil {
				return err
			}

			// Index both endpoints; the edge is undirected
			if err := tx.Set(makeAdjacencyKey(rel.SourceId, rel.Id), []byte{}); err != nil {
				return err
			}
			if err := tx.Set(makeAdjacencyKey(rel.TargetId, rel.Id), []byte{}); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return relationships, nil
}

// GetRelationship retrieves a single relationship by ID.
func (r *RelationshipRepository) GetRelationship(ctx context.Context, id core.ID) (*core.Relationship, error) {
	var result *core.Relationship
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readRelationship(tx, makeRelationshipKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetRelationshipsByIDs retrieves multiple relationships by their IDs.
func (r *RelationshipRepository) GetRelationshipsByIDs(ctx context.Context, ids ...core.ID) ([]*core.Relationship, error) {
	var result []*core.Relationship
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			rel, err := readRelationship(tx, makeRelationshipKey(id))
			if err != nil {
				return err
			}
			if rel != nil {
				result = append(result, rel)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetRelationships returns every relationship touching entityID, using the
// adjacency index.
func (r *RelationshipRepository) GetRelationships(ctx context.Context, entityID core.ID) ([]*core.Relationship, error) {
	var result []*core.Relationship
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialAdjacencyKey(entityID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var ids []core.ID
		for iter.Rewind(); iter.Valid(); iter.Next() {
			ids = append(ids, relationshipIDFromAdjacencyKey(iter.Item().Key()))
		}

		for _, id := range ids {
			rel, err := readRelationship(tx, makeRelationshipKey(id))
			if err != nil {
				return err
			}
			if rel != nil {
				result = append(result, rel)
			}
		}
		return nil
	}, false)
	return result, err
}

// CountRelationships returns the number of stored relationships.
func (r *RelationshipRepository) CountRelationships(ctx context.Context) (int, error) {
	return r.backend.countPrefix(ctx, relationshipRecordPrefix)
}

// readRelationship reads a relationship from the transaction.
// Returns nil, nil when the key does not exist.
func readRelationship(tx *badger.Txn, key []byte) (*core.Relationship, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var rel *core.Relationship
	err = item.Value(func(val []byte) error {
		var err error
		rel, err = storage.UnmarshalRelationship(val)
		return err
	})
	return rel, err
}
