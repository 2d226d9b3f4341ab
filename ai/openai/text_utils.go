package openai

import "strings"

// normalizeType lowercases an entity type and joins its words with
// underscores.
func normalizeType(t string) string {
	return strings.Join(strings.Fields(strings.ToLower(t)), "_")
}
