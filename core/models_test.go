package core

import (
	"strings"
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestChunkID(t *testing.T) {
	id := ChunkID("Alice met Bob in Paris.")

	if !strings.HasPrefix(id, "chunk-") {
		t.Errorf("ChunkID() = %q, want chunk- prefix", id)
	}
	if len(id) != len("chunk-")+16 {
		t.Errorf("ChunkID() = %q, want 16 hex digits", id)
	}
	if id != ChunkID("Alice met Bob in Paris.") {
		t.Errorf("ChunkID() is not deterministic")
	}
	if id == ChunkID("Alice met Carol in Paris.") {
		t.Errorf("ChunkID() collided for different content")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Alice", "ALICE"},
		{"  eiffel   tower ", "EIFFEL TOWER"},
		{"New\tYork", "NEW YORK"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEntityID_CaseInsensitive(t *testing.T) {
	if EntityID("Eiffel Tower") != EntityID("eiffel  tower") {
		t.Errorf("EntityID() should ignore case and spacing")
	}
}

func TestRelationshipID_Undirected(t *testing.T) {
	if RelationshipID("Alice", "Bob") != RelationshipID("bob", "ALICE") {
		t.Errorf("RelationshipID() should not depend on endpoint order")
	}
	if RelationshipID("Alice", "Bob") == RelationshipID("Alice", "Carol") {
		t.Errorf("RelationshipID() collided for different endpoints")
	}
}

func TestEntity_EmbeddingText(t *testing.T) {
	e := Entity{Name: "Paris", Description: "Capital of France"}
	if got := e.EmbeddingText(); got != "Paris: Capital of France" {
		t.Errorf("EmbeddingText() = %q", got)
	}
}

func TestRelationship_Involves(t *testing.T) {
	r := Relationship{SourceId: 1, TargetId: 2}
	if !r.Involves(1) || !r.Involves(2) {
		t.Errorf("Involves() should match both endpoints")
	}
	if r.Involves(3) {
		t.Errorf("Involves() matched an unrelated entity")
	}
}
