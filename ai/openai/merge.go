package openai

import (
	"slices"
	"strings"

	"github.com/poiesic/kgextract/core"
)

// accumulator merges the results of the first pass and the gleaning rounds.
// Entities are keyed by normalized name and relationships by their unordered
// endpoint pair. The longer description wins.
type accumulator struct {
	entities      map[string]*core.ExtractedEntity
	entityOrder   []string
	relationships map[string]*core.ExtractedRelationship
	relOrder      []string
}

func newAccumulator() *accumulator {
	return &accumulator{
		entities:      make(map[string]*core.ExtractedEntity),
		relationships: make(map[string]*core.ExtractedRelationship),
	}
}

func (a *accumulator) add(r *extractionResponse) {
	for _, ent := range r.Entities {
		a.addEntity(ent)
	}
	for _, rel := range r.Relationships {
		a.addRelationship(rel)
	}
}

func (a *accumulator) addEntity(ent core.ExtractedEntity) {
	name := core.NormalizeName(ent.Name)
	if name == "" {
		return
	}
	entityType := normalizeType(ent.Type)
	if entityType == "" {
		entityType = core.UnknownEntityType
	}
	description := strings.TrimSpace(ent.Description)

	existing, ok := a.entities[name]
	if !ok {
		a.entities[name] = &core.ExtractedEntity{Name: name, Type: entityType, Description: description}
		a.entityOrder = append(a.entityOrder, name)
		return
	}
	if existing.Type == core.UnknownEntityType {
		existing.Type = entityType
	}
	if len(description) > len(existing.Description) {
		existing.Description = description
	}
}

func (a *accumulator) addRelationship(rel relationshipPayload) {
	source := core.NormalizeName(rel.Source)
	target := core.NormalizeName(rel.Target)
	if source == "" || target == "" || source == target {
		return
	}
	key := relationshipKey(source, target)
	description := strings.TrimSpace(rel.Description)
	weight := rel.Weight
	if weight <= 0 {
		weight = 1.0
	}

	existing, ok := a.relationships[key]
	if !ok {
		a.relationships[key] = &core.ExtractedRelationship{
			Source:      source,
			Target:      target,
			Keywords:    unionKeywords(nil, rel.Keywords),
			Description: description,
			Weight:      weight,
		}
		a.relOrder = append(a.relOrder, key)
		return
	}
	existing.Keywords = unionKeywords(existing.Keywords, rel.Keywords)
	if len(description) > len(existing.Description) {
		existing.Description = description
	}
	existing.Weight = max(existing.Weight, weight)
}

func (a *accumulator) extraction(chunkID string) *core.Extraction {
	out := &core.Extraction{
		ChunkID:       chunkID,
		Entities:      make([]core.ExtractedEntity, 0, len(a.entityOrder)),
		Relationships: make([]core.ExtractedRelationship, 0, len(a.relOrder)),
	}
	for _, name := range a.entityOrder {
		out.Entities = append(out.Entities, *a.entities[name])
	}
	for _, key := range a.relOrder {
		out.Relationships = append(out.Relationships, *a.relationships[key])
	}
	return out
}

func relationshipKey(source, target string) string {
	if source > target {
		source, target = target, source
	}
	return source + "\x00" + target
}

func unionKeywords(have []string, add []string) []string {
	for _, kw := range add {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && !slices.Contains(have, kw) {
			have = append(have, kw)
		}
	}
	return have
}
