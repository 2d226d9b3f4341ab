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


package core

import (
	"fmt"
	"strings"
)

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Content must not be blank
//   - Tokens must not be negative
//
// NOT validated:
//   - DocumentID (chunks may come from ad-hoc text)
//   - Order (any value is accepted)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkID)
	}

	if strings.TrimSpace(chunk.Content) == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidChunk, chunk.ID, ErrEmptyContent)
	}

	if chunk.Tokens < 0 {
		return fmt.Errorf("%w: %s: %w", ErrInvalidChunk, chunk.ID, ErrNegativeTokens)
	}

	return nil
}

// ValidateEntity validates an Entity according to domain rules.
//
// Validation rules:
//   - Name must not be blank
//   - Type must not be blank
//
// NOT validated (populated by the merger):
//   - Vector (can be empty until embedded)
//   - ID (derived from the name when zero)
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if strings.TrimSpace(entity.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyEntityName)
	}

	if strings.TrimSpace(entity.Type) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyEntityType)
	}

	return nil
}

// ValidateRelationship validates a Relationship according to domain rules.
func ValidateRelationship(rel *Relationship) error {
	if rel == nil {
		return fmt.Errorf("%w: relationship is nil", ErrInvalidRelationship)
	}

	if strings.TrimSpace(rel.Source) == "" || strings.TrimSpace(rel.Target) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrEmptyEndpoint)
	}

	if NormalizeName(rel.Source) == NormalizeName(rel.Target) {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRelationship, rel.Source, ErrSelfRelationship)
	}

	return nil
}
