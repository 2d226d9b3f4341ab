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


package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/kgextract/ai"
	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/storage"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is the number of entity texts sent per embedding call.
	DefaultBatchSize = 32

	// DefaultEmbedConcurrency is the number of embedding calls in flight.
	DefaultEmbedConcurrency = 4
)

// MergeStats summarizes one Merge call.
type MergeStats struct {
	Results              int
	EntitiesCreated      int
	EntitiesUpdated      int
	Placeholders         int
	RelationshipsCreated int
	RelationshipsUpdated int
	Embedded             int
}

// Merger merges extraction results into the graph store.
type Merger struct {
	entities         storage.EntityRepository
	relationships    storage.RelationshipRepository
	embedder         ai.Embedder
	batchSize        int
	embedConcurrency int
	logger           *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		m.logger = logger
		return nil
	}
}

// WithBatchSize sets how many texts are embedded per call.
func WithBatchSize(size int) Option {
	return func(m *Merger) error {
		if size <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		m.batchSize = size
		return nil
	}
}

// WithEmbedConcurrency sets how many embedding calls may run at once.
func WithEmbedConcurrency(n int) Option {
	return func(m *Merger) error {
		if n <= 0 {
			return fmt.Errorf("embed concurrency must be positive, got %d", n)
		}
		m.embedConcurrency = n
		return nil
	}
}

// NewMerger creates a Merger writing to the given repositories.
func NewMerger(entities storage.EntityRepository, relationships storage.RelationshipRepository, embedder ai.Embedder, opts ...Option) (*Merger, error) {
	if entities == nil {
		return nil, fmt.Errorf("entity repository is required")
	}
	if relationships == nil {
		return nil, fmt.Errorf("relationship repository is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	m := &Merger{
		entities:         entities,
		relationships:    relationships,
		embedder:         embedder,
		batchSize:        DefaultBatchSize,
		embedConcurrency: DefaultEmbedConcurrency,
		logger:           slog.Default().With("component", "graph-merger"),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// pendingEntity tracks an entity while results are folded into it.
type pendingEntity struct {
	entity     *core.Entity
	created    bool
	changed    bool
	storedText string
	votes      map[string]int
	voteOrder  []string
}

type pendingRelationship struct {
	relationship *core.Relationship
	created      bool
	changed      bool
}

// mergeState is the working set of one Merge call.
type mergeState struct {
	entities      map[string]*pendingEntity
	entityOrder   []string
	relationships map[core.ID]*pendingRelationship
	relOrder      []core.ID
	stats         MergeStats
}

// Merge folds results into the store and returns what changed.
// Entities are processed before relationships so that placeholders are only
// created for endpoints no result describes.
func (m *Merger) Merge(ctx context.Context, results []core.UnitResult) (*MergeStats, error) {
	state := &mergeState{
		entities:      make(map[string]*pendingEntity),
		relationships: make(map[core.ID]*pendingRelationship),
	}
	state.stats.Results = len(results)

	for _, result := range results {
		if result.Value == nil {
			continue
		}
		chunkID := sourceChunk(result)
		for _, extracted := range result.Value.Entities {
			if err := m.mergeEntity(ctx, state, chunkID, extracted); err != nil {
				return nil, err
			}
		}
	}

	for _, result := range results {
		if result.Value == nil {
			continue
		}
		chunkID := sourceChunk(result)
		for _, extracted := range result.Value.Relationships {
			if err := m.mergeRelationship(ctx, state, chunkID, extracted); err != nil {
				return nil, err
			}
		}
	}

	pendingEntities := state.changedEntities()
	relationships := state.changedRelationships()

	embedded, err := m.embedEntities(ctx, pendingEntities)
	if err != nil {
		m.logger.Error("error embedding entities", "err", err)
		return nil, err
	}
	state.stats.Embedded = embedded

	if len(pendingEntities) > 0 {
		entities := make([]*core.Entity, len(pendingEntities))
		for i, pending := range pendingEntities {
			entities[i] = pending.entity
		}
		if _, err := m.entities.UpsertEntities(ctx, entities...); err != nil {
			m.logger.Error("error storing entities", "err", err)
			return nil, err
		}
	}
	if len(relationships) > 0 {
		if _, err := m.relationships.UpsertRelationships(ctx, relationships...); err != nil {
			m.logger.Error("error storing relationships", "err", err)
			return nil, err
		}
	}

	m.logger.Info("merged extraction results",
		"results", state.stats.Results,
		"entities_created", state.stats.EntitiesCreated,
		"entities_updated", state.stats.EntitiesUpdated,
		"placeholders", state.stats.Placeholders,
		"relationships_created", state.stats.RelationshipsCreated,
		"relationships_updated", state.stats.RelationshipsUpdated,
		"embedded", state.stats.Embedded)
	return &state.stats, nil
}

func sourceChunk(result core.UnitResult) string {
	if result.Value.ChunkID != "" {
		return result.Value.ChunkID
	}
	return result.UnitID
}

// loadEntity returns the pending entity for name, reading it from storage
// the first time it is seen. It returns nil when no such entity exists.
func (m *Merger) loadEntity(ctx context.Context, state *mergeState, name string) (*pendingEntity, error) {
	if pending, ok := state.entities[name]; ok {
		return pending, nil
	}
	stored, err := m.entities.FindEntityByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		m.logger.Error("error loading entity", "name", name, "err", err)
		return nil, err
	}
	pending := &pendingEntity{
		entity:     stored,
		storedText: stored.EmbeddingText(),
		votes:      make(map[string]int),
	}
	if stored.Type != core.UnknownEntityType {
		pending.vote(stored.Type, len(stored.SourceChunks))
	}
	state.track(name, pending)
	return pending, nil
}

func (m *Merger) mergeEntity(ctx context.Context, state *mergeState, chunkID string, extracted core.ExtractedEntity) error {
	name := core.NormalizeName(extracted.Name)
	if name == "" {
		return nil
	}
	pending, err := m.loadEntity(ctx, state, name)
	if err != nil {
		return err
	}
	if pending == nil {
		pending = &pendingEntity{
			entity:  &core.Entity{Name: name, Type: core.UnknownEntityType},
			created: true,
			votes:   make(map[string]int),
		}
		state.track(name, pending)
		state.stats.EntitiesCreated++
	}

	entity := pending.entity
	if slices.Contains(entity.SourceChunks, chunkID) {
		return nil
	}
	if !pending.created && !pending.changed {
		state.stats.EntitiesUpdated++
	}
	pending.changed = true

	entity.Description = core.MergeDescriptions(entity.Description, extracted.Description)
	entity.SourceChunks = core.UnionStrings(entity.SourceChunks, chunkID)
	if typ := strings.ToLower(strings.TrimSpace(extracted.Type)); typ != "" && typ != strings.ToLower(core.UnknownEntityType) {
		pending.vote(typ, 1)
	}
	entity.Type = pending.majority()
	return nil
}

func (m *Merger) mergeRelationship(ctx context.Context, state *mergeState, chunkID string, extracted core.ExtractedRelationship) error {
	source := core.NormalizeName(extracted.Source)
	target := core.NormalizeName(extracted.Target)
	if source == "" || target == "" || source == target {
		return nil
	}

	for _, endpoint := range []string{source, target} {
		if err := m.ensureEndpoint(ctx, state, chunkID, endpoint, extracted.Description); err != nil {
			return err
		}
	}

	id := core.RelationshipID(source, target)
	pending, ok := state.relationships[id]
	if !ok {
		stored, err := m.relationships.GetRelationship(ctx, id)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			pending = &pendingRelationship{
				relationship: &core.Relationship{
					Id:       id,
					SourceId: core.EntityID(source),
					TargetId: core.EntityID(target),
					Source:   source,
					Target:   target,
				},
				created: true,
			}
			state.stats.RelationshipsCreated++
		case err != nil:
			m.logger.Error("error loading relationship", "source", source, "target", target, "err", err)
			return err
		default:
			pending = &pendingRelationship{relationship: stored}
		}
		state.relationships[id] = pending
		state.relOrder = append(state.relOrder, id)
	}

	rel := pending.relationship
	if slices.Contains(rel.SourceChunks, chunkID) {
		return nil
	}
	if !pending.created && !pending.changed {
		state.stats.RelationshipsUpdated++
	}
	pending.changed = true

	weight := extracted.Weight
	if weight <= 0 {
		weight = 1.0
	}
	rel.Weight += weight
	rel.Description = core.MergeDescriptions(rel.Description, extracted.Description)
	for _, kw := range extracted.Keywords {
		rel.Keywords = core.UnionStrings(rel.Keywords, strings.ToLower(strings.TrimSpace(kw)))
	}
	rel.SourceChunks = core.UnionStrings(rel.SourceChunks, chunkID)
	return nil
}

// ensureEndpoint creates a placeholder entity for a relationship endpoint
// that neither storage nor the current results know about.
func (m *Merger) ensureEndpoint(ctx context.Context, state *mergeState, chunkID, name, description string) error {
	pending, err := m.loadEntity(ctx, state, name)
	if err != nil || pending != nil {
		return err
	}
	state.track(name, &pendingEntity{
		entity: &core.Entity{
			Name:         name,
			Type:         core.UnknownEntityType,
			Description:  core.MergeDescriptions(description),
			SourceChunks: []string{chunkID},
		},
		created: true,
		changed: true,
		votes:   make(map[string]int),
	})
	state.stats.Placeholders++
	return nil
}

// embedEntities embeds every entity whose embedding text changed or that
// has no vector yet. Batches run concurrently up to embedConcurrency.
func (m *Merger) embedEntities(ctx context.Context, pending []*pendingEntity) (int, error) {
	var stale []*core.Entity
	for _, p := range pending {
		if len(p.entity.Vector) == 0 || p.entity.EmbeddingText() != p.storedText {
			stale = append(stale, p.entity)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.embedConcurrency)
	for start := 0; start < len(stale); start += m.batchSize {
		batch := stale[start:min(start+m.batchSize, len(stale))]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, entity := range batch {
				texts[i] = entity.EmbeddingText()
			}
			m.logger.Debug("embedding entity batch", "size", len(texts))
			vectors, err := m.embedder.EmbedTexts(gctx, texts)
			if err != nil {
				return err
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(vectors))
			}
			for i, entity := range batch {
				entity.Vector = core.NormalizeVector(vectors[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(stale), nil
}

func (s *mergeState) track(name string, pending *pendingEntity) {
	s.entities[name] = pending
	s.entityOrder = append(s.entityOrder, name)
}

func (s *mergeState) changedEntities() []*pendingEntity {
	var out []*pendingEntity
	for _, name := range s.entityOrder {
		if pending := s.entities[name]; pending.changed {
			out = append(out, pending)
		}
	}
	return out
}

func (s *mergeState) changedRelationships() []*core.Relationship {
	var out []*core.Relationship
	for _, id := range s.relOrder {
		if pending := s.relationships[id]; pending.changed {
			out = append(out, pending.relationship)
		}
	}
	return out
}

func (p *pendingEntity) vote(typ string, weight int) {
	if weight <= 0 {
		weight = 1
	}
	if _, seen := p.votes[typ]; !seen {
		p.voteOrder = append(p.voteOrder, typ)
	}
	p.votes[typ] += weight
}

// majority returns the most voted type, the earliest on a tie, or
// core.UnknownEntityType when nobody voted.
func (p *pendingEntity) majority() string {
	best, bestVotes := core.UnknownEntityType, 0
	for _, typ := range p.voteOrder {
		if p.votes[typ] > bestVotes {
			best, bestVotes = typ, p.votes[typ]
		}
	}
	return best
}
