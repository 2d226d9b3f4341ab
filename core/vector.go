package core

import "math"

// NormalizeVector returns a unit-length copy of v. A zero vector comes back
// as zeros of the same length, an empty one unchanged.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sumSquares == 0 {
		return out
	}
	scale := 1 / math.Sqrt(sumSquares)
	for i, x := range v {
		out[i] = float32(float64(x) * scale)
	}
	return out
}

// Similarity is the dot product of two unit vectors, their cosine
// similarity. It reports false when the dimensions differ or either vector
// is empty, as happens when entities were embedded by another model.
func Similarity(a, b []float32) (float32, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum, true
}

// HasVector reports whether the entity has been embedded.
func (e *Entity) HasVector() bool {
	return len(e.Vector) > 0
}
