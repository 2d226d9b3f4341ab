package openai

import (
	"strings"
	"unicode"
)

// repairJSON fixes the malformations local models most often produce in
// extraction output:
//
//   - object keys missing their opening quote (`, entity_type":`) or both
//     quotes (`{entity_type: "x"}`);
//   - a trailing comma before a closing brace or bracket.
//
// String contents are never modified.
func repairJSON(s string) string {
	in := []rune(s)
	var out strings.Builder
	out.Grow(len(s) + 16)

	inString := false
	for i := 0; i < len(in); i++ {
		ch := in[i]

		if inString {
			out.WriteRune(ch)
			switch ch {
			case '\\':
				if i+1 < len(in) {
					i++
					out.WriteRune(in[i])
				}
			case '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			out.WriteRune(ch)
		case ',':
			next := skipSpace(in, i+1)
			if next < len(in) && (in[next] == '}' || in[next] == ']') {
				continue
			}
			out.WriteRune(ch)
			i = repairKey(in, i+1, &out) - 1
		case '{':
			out.WriteRune(ch)
			i = repairKey(in, i+1, &out) - 1
		default:
			out.WriteRune(ch)
		}
	}
	return out.String()
}

// repairKey copies the whitespace at in[start:] and, if an unquoted object
// key follows, writes it quoted. It returns the index of the first rune not
// consumed.
func repairKey(in []rune, start int, out *strings.Builder) int {
	i := skipSpace(in, start)
	out.WriteString(string(in[start:i]))

	end := i
	for end < len(in) && isKeyRune(in[end]) {
		end++
	}
	if end == i || !unicode.IsLetter(in[i]) && in[i] != '_' {
		return i
	}
	key := string(in[i:end])

	// key": is missing only its opening quote
	if end+1 < len(in) && in[end] == '"' && in[end+1] == ':' {
		out.WriteString(`"` + key + `"`)
		return end + 1
	}
	// key: is missing both quotes
	if colon := skipSpace(in, end); colon < len(in) && in[colon] == ':' {
		out.WriteString(`"` + key + `"`)
		return end
	}
	// a bare literal such as true or null in an array
	return i
}

func skipSpace(in []rune, i int) int {
	for i < len(in) && unicode.IsSpace(in[i]) {
		i++
	}
	return i
}

func isKeyRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
