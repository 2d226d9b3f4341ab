// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"

	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/storage"
)

const (
	// DefaultBatchSize is the default number of entities to fetch in each batch
	DefaultBatchSize = 100
)

// EntityIterator pages over all stored entities in ID order.
type EntityIterator struct {
	repo      storage.EntityRepository
	batchSize int
}

// NewEntityIterator creates a new entity iterator.
// batchSize: number of entities to fetch in each batch (must be > 0)
func NewEntityIterator(repo storage.EntityRepository, batchSize int) *EntityIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &EntityIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach iterates over all entities, calling fn for each batch.
// Iteration stops on first error from fn or when all entities are processed.
// Context cancellation is checked between batches.
func (it *EntityIterator) ForEach(ctx context.Context, fn func([]*core.Entity) error) error {
	var after core.ID
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := it.repo.ListEntities(ctx, after, it.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		if len(batch) < it.batchSize {
			return nil
		}
		after = batch[len(batch)-1].Id
	}
}
