// Package vecmath provides the small vector operations the retrieval
// engine needs: cosine similarity, dot products and L2 normalization.
//
// All stored and query embeddings are L2-normalized before use. Under
// unit vectors, L2 distance ordering equals cosine ordering, which is
// what keeps the native and fallback vector backends interchangeable.
package vecmath

import (
	"math"

	"github.com/loci-labs/loci/internal/core/domain"
)

// Cosine computes cosine similarity between two vectors of equal
// length. Mismatched lengths are a *domain.DimensionMismatchError.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &domain.DimensionMismatchError{Want: len(a), Got: len(b)}
	}
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	den := math.Sqrt(na) * math.Sqrt(nb)
	if den == 0 {
		return 0, nil
	}
	return dot / den, nil
}

// Dot computes the dot product of two vectors of equal length. For
// unit vectors this equals their cosine similarity.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &domain.DimensionMismatchError{Want: len(a), Got: len(b)}
	}
	var dot float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// NormalizeL2 returns a new vector normalized to unit L2 norm. The
// zero vector is returned as a copy unchanged.
func NormalizeL2(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	n := math.Sqrt(sum)
	out := make([]float32, len(v))
	if n == 0 {
		copy(out, v)
		return out
	}
	inv := float32(1.0 / n)
	for i := range v {
		out[i] = v[i] * inv
	}
	return out
}

// SimilarityFromL2 converts an L2 distance between unit vectors into
// cosine similarity. For unit vectors d^2 = 2 - 2*cos, so
// cos = 1 - d^2/2.
func SimilarityFromL2(dist float64) float64 {
	return 1 - (dist*dist)/2
}
