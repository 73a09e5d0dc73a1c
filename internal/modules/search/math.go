package search

import (
	"errors"
	"math"
)

var errEmptyEmbedding = errors.New("embedding service returned an empty vector")

// cosine returns the cosine similarity of a and b clamped to [0,1]. The
// second return is false when similarity is undefined: mismatched lengths
// or a zero-magnitude vector.
func cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0, true
	}
	if sim > 1 {
		return 1, true
	}
	return sim, true
}
