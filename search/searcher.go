package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/kgextract/ai"
	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/storage"
)

// DefaultMinSimilarity is the cosine similarity below which semantic
// matches are ignored.
const DefaultMinSimilarity float32 = 0.60

// Searcher provides hybrid semantic and name search over graph entities.
type Searcher struct {
	entityRepository       storage.EntityRepository
	relationshipRepository storage.RelationshipRepository
	embedder               ai.Embedder
	minSimilarity          float32
	logger                 *slog.Logger
}

// Neighbor is an entity one relationship away from another.
type Neighbor struct {
	Entity       *core.Entity
	Relationship *core.Relationship
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the semantic match threshold.
func WithMinSimilarity(threshold float32) Option {
	return func(s *Searcher) error {
		s.minSimilarity = threshold
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	entityRepository storage.EntityRepository,
	relationshipRepository storage.RelationshipRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if entityRepository == nil {
		return nil, ErrEntityRepositoryRequired
	}
	if relationshipRepository == nil {
		return nil, ErrRelationshipRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		entityRepository:       entityRepository,
		relationshipRepository: relationshipRepository,
		embedder:               provider.Embedder(),
		minSimilarity:          DefaultMinSimilarity,
		logger:                 slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FindEntities searches for entities related to the query.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindEntities(ctx context.Context, query string, maxHits int) ([]*core.EntityMatch, error) {
	return s.FindEntitiesWithMonitor(ctx, query, maxHits, nil)
}

// FindEntitiesWithMonitor searches for entities related to the query with monitoring.
// The monitor receives callbacks at each stage of the search process.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindEntitiesWithMonitor(ctx context.Context, query string, maxHits int, monitor SearchMonitor) ([]*core.EntityMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	// 1. Perform semantic search
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	matches, err := s.entityRepository.FindSimilar(ctx, core.NormalizeVector(embedding), s.minSimilarity, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar entities", "err", err)
		return nil, err
	}

	candidates := make(map[core.ID]*core.Entity, len(matches)+1)
	order := make([]core.ID, 0, len(matches)+1)
	semanticScores := make(map[core.ID]float32, len(matches))
	semanticIds := make([]core.ID, 0, len(matches))
	for _, match := range matches {
		id := match.Entity.Id
		candidates[id] = match.Entity
		order = append(order, id)
		semanticScores[id] = match.Score
		semanticIds = append(semanticIds, id)
	}
	monitor.AfterSemanticSearch(semanticIds)

	// 2. Look the query up as an entity name
	var named core.ID
	entity, err := s.entityRepository.FindEntityByName(ctx, query)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Debug("query is not an entity name", "query", query)
	case err != nil:
		s.logger.Error("error looking up entity by name", "query", query, "err", err)
		return nil, err
	default:
		named = entity.Id
		if _, ok := candidates[named]; !ok {
			candidates[named] = entity
			order = append(order, named)
		}
	}
	monitor.AfterNameLookup(entity)

	if len(candidates) == 0 {
		monitor.Finish(nil)
		return []*core.EntityMatch{}, nil
	}

	// 3. Score and build results
	results := make([]*core.EntityMatch, 0, len(candidates))
	for _, id := range order {
		candidate := candidates[id]
		similarityScore, inSemantic := semanticScores[id]
		byName := named != 0 && id == named

		var score float32
		switch {
		case inSemantic && byName:
			// In both: boost by 1.5x, weighted by similarity score
			score = 1.5 * similarityScore
			monitor.SemanticAndNameHit(candidate)
		case byName:
			score = 1.2
			monitor.NameHit(candidate)
		default:
			score = similarityScore
			monitor.SemanticHit(candidate)
		}

		// Apply verbatim match boost
		if nameContainsQuery(candidate.Name, query) {
			score += 0.3
		}

		results = append(results, &core.EntityMatch{
			Entity: candidate,
			Score:  score,
		})
	}

	// Sort by score descending
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	return results, nil
}

// Neighbors returns the entities directly related to the named entity,
// strongest relationship first.
// Returns storage.ErrNotFound if no entity has that name.
func (s *Searcher) Neighbors(ctx context.Context, name string) ([]*Neighbor, error) {
	entity, err := s.entityRepository.FindEntityByName(ctx, name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("error looking up entity by name", "name", name, "err", err)
		}
		return nil, err
	}

	relationships, err := s.relationshipRepository.GetRelationships(ctx, entity.Id)
	if err != nil {
		s.logger.Error("error retrieving relationships", "entity", entity.Name, "err", err)
		return nil, err
	}

	ids := make([]core.ID, 0, len(relationships))
	for _, rel := range relationships {
		other := rel.TargetId
		if other == entity.Id {
			other = rel.SourceId
		}
		ids = append(ids, other)
	}

	others, err := s.entityRepository.GetEntities(ctx, ids...)
	if err != nil {
		s.logger.Error("error retrieving neighbor entities", "count", len(ids), "err", err)
		return nil, err
	}
	byID := make(map[core.ID]*core.Entity, len(others))
	for _, other := range others {
		byID[other.Id] = other
	}

	neighbors := make([]*Neighbor, 0, len(relationships))
	for i, rel := range relationships {
		other, ok := byID[ids[i]]
		if !ok {
			s.logger.Warn("relationship endpoint missing", "relationship", rel.Id, "entity", ids[i])
			continue
		}
		neighbors = append(neighbors, &Neighbor{Entity: other, Relationship: rel})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Relationship.Weight > neighbors[j].Relationship.Weight
	})
	return neighbors, nil
}
