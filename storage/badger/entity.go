package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/storage"
)

// EntityRepository implements storage.EntityRepository for BadgerDB.
type EntityRepository struct {
	backend *Backend
}

var _ storage.EntityRepository = (*EntityRepository)(nil)

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(backend *Backend) *EntityRepository {
	return &EntityRepository{
		backend: backend,
	}
}

// Close releases resources. EntityRepository has no resources to release.
func (r *EntityRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *EntityRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.EntityMatch, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// WithTransaction delegates to the backend.
func (r *EntityRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertEntities stores entities, replacing stored entities with the same ID.
func (r *EntityRepository) UpsertEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, entity := range entities {
			if err := core.ValidateEntity(entity); err != nil {
				return err
			}
			entity.Name = core.NormalizeName(entity.Name)
			// Use content-based ID if not set
			if entity.Id == 0 {
				entity.Id = core.EntityID(entity.Name)
			}

			key := makeEntityKey(entity.Id)
			old, err := readEntity(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				entity.InsertedAt = old.InsertedAt
				if old.Name != entity.Name {
					if err := tx.Delete(makeEntityNameKey(old.Name)); err != nil {
						return err
					}
				}
			} else if entity.InsertedAt.IsZero() {
				entity.InsertedAt = now
			}
			entity.UpdatedAt = now

			if err := writeEntity(tx, entity); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// UpdateEntities updates existing entities.
func (r *EntityRepository) UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			key := makeEntityKey(entity.Id)

			// Read old entity to detect changes
			old, err := readEntity(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			entity.Name = core.NormalizeName(entity.Name)
			entity.UpdatedAt = time.Now().UTC()

			if old.Name != entity.Name {
				if err := tx.Delete(makeEntityNameKey(old.Name)); err != nil {
					return err
				}
			}
			if err := writeEntity(tx, entity); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// GetEntity retrieves a single entity by ID.
func (r *EntityRepository) GetEntity(ctx context.Context, id core.ID) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readEntity(tx, makeEntityKey(id))
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

// GetEntities retrieves multiple entities by their IDs.
func (r *EntityRepository) GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error) {
	var result []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			entity, err := readEntity(tx, makeEntityKey(id))
			if err != nil {
				return err
			}
			if entity != nil {
				result = append(result, entity)
			}
		}
		return nil
	}, false)
	return result, err
}

// FindEntityByName finds an entity through the name index.
func (r *EntityRepository) FindEntityByName(ctx context.Context, name string) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEntityNameKey(name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		var entityID core.ID
		err = item.Value(func(val []byte) error {
			entityID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		result, err = readEntity(tx, makeEntityKey(entityID))
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

// ListEntities returns a page of entities ordered by ID.
func (r *EntityRepository) ListEntities(ctx context.Context, after core.ID, limit int) ([]*core.Entity, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entityRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		start := makeEntityKey(after)
		for iter.Seek(start); iter.Valid() && len(results) < limit; iter.Next() {
			item := iter.Item()
			if after != 0 && entityIDFromKey(item.Key()) == after {
				continue
			}

			var entity *core.Entity
			err := item.Value(func(val []byte) error {
				var err error
				entity, err = storage.UnmarshalEntity(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, entity)
		}
		return nil
	}, false)

	return results, err
}

// GetAllEntities retrieves all entities from storage, ordered by ID.
func (r *EntityRepository) GetAllEntities(ctx context.Context) ([]*core.Entity, error) {
	var results []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entityRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entity *core.Entity
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entity, err = storage.UnmarshalEntity(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, entity)
		}
		return nil
	}, false)

	return results, err
}

// CountEntities returns the number of stored entities.
func (r *EntityRepository) CountEntities(ctx context.Context) (int, error) {
	return r.backend.countPrefix(ctx, entityRecordPrefix)
}

// Helper methods

// readEntity reads an entity from the transaction.
// Returns nil, nil when the key does not exist.
func readEntity(tx *badger.Txn, key []byte) (*core.Entity, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var entity *core.Entity
	err = item.Value(func(val []byte) error {
		var err error
		entity, err = storage.UnmarshalEntity(val)
		return err
	})
	return entity, err
}

// writeEntity stores the primary record and the name index.
func writeEntity(tx *badger.Txn, entity *core.Entity) error {
	if err := tx.Set(makeEntityKey(entity.Id), storage.MarshalEntity(entity)); err != nil {
		return err
	}
	return tx.Set(makeEntityNameKey(entity.Name), storage.MarshalID(entity.Id))
}
