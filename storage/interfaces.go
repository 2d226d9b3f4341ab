package storage

import (
	"context"

	"github.com/poiesic/kgextract/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// EntityRepository provides operations for managing graph entities.
type EntityRepository interface {
	Repository

	// UpsertEntities stores entities, replacing any stored entity with the
	// same ID. IDs of 0 are derived from the normalized name.
	// InsertedAt is kept from the stored entity when one exists.
	// Returns the entities with IDs and timestamps populated.
	UpsertEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// UpdateEntities updates existing entities.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any entity doesn't exist.
	UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// GetEntity retrieves a single entity by ID.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, id core.ID) (*core.Entity, error)

	// GetEntities retrieves multiple entities by their IDs.
	// Returns only the entities that exist (no error for missing entities).
	GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error)

	// FindEntityByName finds an entity by name. The name is normalized first.
	// Returns ErrNotFound if no matching entity exists.
	FindEntityByName(ctx context.Context, name string) (*core.Entity, error)

	// ListEntities returns up to limit entities with IDs greater than after,
	// ordered by ID. Pass 0 to start from the beginning.
	ListEntities(ctx context.Context, after core.ID, limit int) ([]*core.Entity, error)

	// CountEntities returns the number of stored entities.
	CountEntities(ctx context.Context) (int, error)

	// FindSimilar finds entities similar to the given vector.
	// Returns entities with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.EntityMatch, error)
}

// RelationshipRepository provides operations for managing graph edges.
type RelationshipRepository interface {
	Repository

	// UpsertRelationships stores relationships, replacing any stored
	// relationship with the same ID and indexing both endpoints.
	// IDs of 0 are derived from the endpoint names.
	UpsertRelationships(ctx context.Context, relationships ...*core.Relationship) ([]*core.Relationship, error)

	// GetRelationship retrieves a single relationship by ID.
	// Returns ErrNotFound if the relationship doesn't exist.
	GetRelationship(ctx context.Context, id core.ID) (*core.Relationship, error)

	// GetRelationshipsByIDs retrieves multiple relationships by their IDs.
	// Returns only the relationships that exist.
	GetRelationshipsByIDs(ctx context.Context, ids ...core.ID) ([]*core.Relationship, error)

	// GetRelationships returns every relationship touching entityID.
	GetRelationships(ctx context.Context, entityID core.ID) ([]*core.Relationship, error)

	// CountRelationships returns the number of stored relationships.
	CountRelationships(ctx context.Context) (int, error)
}
