package mock

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/poiesic/kgextract/core"
)

// MockEntityExtractor is a test double for ai.EntityExtractor.
// It allows custom behavior injection via function fields.
type MockEntityExtractor struct {
	// ExtractFunc is called by Extract if set.
	// If nil, uses default capitalized-word extraction.
	ExtractFunc func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error)

	callCount atomic.Int64
}

// NewMockEntityExtractor creates a mock entity extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockEntityExtractor() *MockEntityExtractor {
	return &MockEntityExtractor{}
}

// Extract returns mock entities for the chunk.
// Default behavior: every capitalized word becomes a "concept" entity, and
// consecutive entities are related.
func (m *MockEntityExtractor) Extract(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
	m.callCount.Add(1)

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, chunk)
	}

	result := &core.Extraction{ChunkID: chunk.ID}
	seen := make(map[string]bool)
	var names []string
	for _, word := range strings.Fields(chunk.Content) {
		word = strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if word == "" || !unicode.IsUpper([]rune(word)[0]) {
			continue
		}
		name := core.NormalizeName(word)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		result.Entities = append(result.Entities, core.ExtractedEntity{
			Name:        name,
			Type:        "concept",
			Description: word + " is mentioned in " + chunk.ID + ".",
		})
	}

	for i := 1; i < len(names); i++ {
		result.Relationships = append(result.Relationships, core.ExtractedRelationship{
			Source:      names[i-1],
			Target:      names[i],
			Keywords:    []string{"co-occurrence"},
			Description: names[i-1] + " appears near " + names[i] + ".",
			Weight:      1.0,
		})
	}

	return result, nil
}

// CallCount returns the number of times Extract was called.
func (m *MockEntityExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockEntityExtractor) Reset() {
	m.callCount.Store(0)
	m.ExtractFunc = nil
}
