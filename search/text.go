package search

import (
	"strings"
	"unicode"
)

// stopWords never count toward a verbatim name match.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "be": {}, "is": {}, "are": {},
	"was": {}, "to": {}, "of": {}, "and": {}, "in": {}, "that": {},
	"have": {}, "it": {}, "for": {}, "not": {}, "on": {}, "with": {},
	"as": {}, "you": {}, "do": {}, "at": {}, "this": {}, "but": {},
	"by": {}, "from": {}, "who": {}, "what": {}, "where": {},
}

// nameWords lowercases s, splits it on anything that is not a letter or
// digit and drops stop words.
func nameWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; !stop {
			words = append(words, f)
		}
	}
	return words
}

// nameContainsQuery reports whether every significant query word is a word
// of the entity name. A query made only of stop words never matches.
func nameContainsQuery(name, query string) bool {
	queryWords := nameWords(query)
	if len(queryWords) == 0 {
		return false
	}

	names := make(map[string]struct{})
	for _, w := range nameWords(name) {
		names[w] = struct{}{}
	}
	for _, w := range queryWords {
		if _, ok := names[w]; !ok {
			return false
		}
	}
	return true
}
