package core

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// DescriptionSeparator joins descriptions of the same entity or
// relationship gathered from different chunks.
const DescriptionSeparator = "<SEP>"

// UnknownEntityType is assigned to entities that only appear as a
// relationship endpoint.
const UnknownEntityType = "UNKNOWN"

// ID is a unique identifier for stored graph elements.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives a stable chunk identifier from chunk content.
func ChunkID(content string) string {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(content))
	return "chunk-" + hex.EncodeToString(h.Sum(nil))
}

// NormalizeName canonicalizes an entity name for identity comparisons.
// Entity names are case-insensitive and whitespace-collapsed.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// EntityID returns the content-based ID of the entity with the given name.
func EntityID(name string) ID {
	return IDFromContent(NormalizeName(name))
}

// RelationshipID returns the content-based ID of the undirected relationship
// between two entity names.
func RelationshipID(source, target string) ID {
	a, b := NormalizeName(source), NormalizeName(target)
	if b < a {
		a, b = b, a
	}
	return IDFromContent("(" + a + "," + b + ")")
}

// Chunk is one independent unit of extraction work.
type Chunk struct {
	ID         string
	Content    string
	Tokens     int
	DocumentID string
	Order      int // position of the chunk within its document
}

// ExtractedEntity is an entity reported by an extractor for a single chunk.
type ExtractedEntity struct {
	Name        string `json:"entity_name"`
	Type        string `json:"entity_type"`
	Description string `json:"entity_description"`
}

// ExtractedRelationship is a relationship reported by an extractor for a single chunk.
type ExtractedRelationship struct {
	Source      string   `json:"source_entity"`
	Target      string   `json:"target_entity"`
	Keywords    []string `json:"relationship_keywords"`
	Description string   `json:"relationship_description"`
	Weight      float64  `json:"relationship_strength"`
}

// Extraction is the output of extracting one chunk.
type Extraction struct {
	ChunkID       string
	Entities      []ExtractedEntity
	Relationships []ExtractedRelationship
}

// UnitResult pairs a successful extraction with the unit that produced it.
type UnitResult struct {
	UnitID string
	Value  *Extraction
}

// Entity is a node of the knowledge graph.
type Entity struct {
	Id           ID
	Name         string
	Type         string
	Description  string
	SourceChunks []string  // chunks the entity was extracted from
	Vector       []float32 // embedding of the description (populated by the merger)
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// EmbeddingText returns the text used to embed the entity.
func (e *Entity) EmbeddingText() string {
	return e.Name + ": " + e.Description
}

// Relationship is an undirected edge of the knowledge graph.
type Relationship struct {
	Id           ID
	SourceId     ID
	TargetId     ID
	Source       string
	Target       string
	Keywords     []string
	Description  string
	Weight       float64
	SourceChunks []string
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// Involves reports whether the relationship touches the given entity.
func (r *Relationship) Involves(id ID) bool {
	return r.SourceId == id || r.TargetId == id
}

// EntityMatch represents an entity found by vector similarity search.
type EntityMatch struct {
	Entity *Entity
	Score  float32
}
