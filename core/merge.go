package core

import (
	"slices"
	"strings"
)

// MergeDescriptions joins descriptions with DescriptionSeparator. Each input
// may itself be a joined description; fragments are trimmed, blanks dropped
// and duplicates removed, keeping first-seen order.
func MergeDescriptions(descriptions ...string) string {
	var parts []string
	for _, d := range descriptions {
		for _, part := range strings.Split(d, DescriptionSeparator) {
			part = strings.TrimSpace(part)
			if part != "" && !slices.Contains(parts, part) {
				parts = append(parts, part)
			}
		}
	}
	return strings.Join(parts, DescriptionSeparator)
}

// UnionStrings appends the values of add missing from have, keeping order.
// Empty strings are skipped.
func UnionStrings(have []string, add ...string) []string {
	for _, v := range add {
		if v != "" && !slices.Contains(have, v) {
			have = append(have, v)
		}
	}
	return have
}
