package badger

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/storage"
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens the graph database at filePath, creating the directory
// when needed. With inMemory set, filePath is ignored and nothing touches
// disk.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	opts := badger.DefaultOptions(filePath)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else if err := os.MkdirAll(filePath, 0o755); err != nil {
		return nil, fmt.Errorf("%s is not a usable directory: %w", filePath, err)
	}

	logger := slog.Default().With("component", "badger")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Backend{db: db, logger: logger}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
// Returns storage.ErrStorageClosed once the backend is closed.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// WithTransaction executes a function within a transaction.
// Implements storage.TransactionManager interface.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		// Execute the callback function
		if err := fn(ctx); err != nil {
			return err
		}
		// Commit the transaction
		return tx.Commit()
	}, true)
}

// FindSimilar scans every stored entity and returns up to limit of those
// whose vector scores at least minSimilarity against vector, best first.
// Vectors are assumed normalized, so the dot product is the cosine
// similarity. Entities without a vector, or with one of a different
// dimension, are skipped.
func (b *Backend) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.EntityMatch, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var (
		results    []*core.EntityMatch
		mismatched int
	)
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entityRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var entity *core.Entity
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entity, err = storage.UnmarshalEntity(val)
				return err
			})
			if err != nil {
				return err
			}
			if entity == nil || !entity.HasVector() {
				continue
			}
			similarity, ok := core.Similarity(vector, entity.Vector)
			if !ok {
				mismatched++
				continue
			}
			if similarity >= minSimilarity {
				results = append(results, &core.EntityMatch{Entity: entity, Score: similarity})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	if mismatched > 0 {
		b.logger.Warn("skipped entities with a different vector dimension; run reembed",
			"count", mismatched, "dimension", len(vector))
	}

	slices.SortFunc(results, func(a, b *core.EntityMatch) int {
		return cmp.Or(cmp.Compare(b.Score, a.Score), cmp.Compare(a.Entity.Name, b.Entity.Name))
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// countPrefix counts the keys starting with prefix without reading values.
func (b *Backend) countPrefix(ctx context.Context, prefix string) (int, error) {
	count := 0
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	}, false)
	return count, err
}
