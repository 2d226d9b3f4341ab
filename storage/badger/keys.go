package badger

import (
	"encoding/binary"

	"github.com/poiesic/kgextract/core"
)

// Key prefixes for different data types
const (
	entityRecordPrefix       = "entrec:"
	entityNamePrefix         = "entnam:"
	relationshipRecordPrefix = "relrec:"
	relationshipAdjPrefix    = "reladj:"
)

// makeIDKey generates prefix followed by the big-endian ID so keys sort by ID.
func makeIDKey(prefix string, id core.ID) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeEntityKey generates a key for an entity by ID.
func makeEntityKey(id core.ID) []byte {
	return makeIDKey(entityRecordPrefix, id)
}

// entityIDFromKey extracts the ID from an entity record key.
func entityIDFromKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(entityRecordPrefix):]))
}

// makeEntityNameKey generates the name index key for an entity.
// Format: prefix:normalizedName
func makeEntityNameKey(name string) []byte {
	return []byte(entityNamePrefix + core.NormalizeName(name))
}

// makeRelationshipKey generates a key for a relationship by ID.
func makeRelationshipKey(id core.ID) []byte {
	return makeIDKey(relationshipRecordPrefix, id)
}

// makeAdjacencyKey generates a composite key for the adjacency index.
// Format: prefix:entityID:relationshipID
func makeAdjacencyKey(entityID, relID core.ID) []byte {
	buf := make([]byte, len(relationshipAdjPrefix)+16)
	offset := copy(buf, relationshipAdjPrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(entityID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(relID))
	return buf
}

// makePartialAdjacencyKey generates a partial key for adjacency queries.
// Format: prefix:entityID
func makePartialAdjacencyKey(entityID core.ID) []byte {
	return makeIDKey(relationshipAdjPrefix, entityID)
}

// relationshipIDFromAdjacencyKey extracts the relationship ID from an adjacency key.
func relationshipIDFromAdjacencyKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(relationshipAdjPrefix)+8:]))
}
