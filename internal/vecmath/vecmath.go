// Package vecmath holds the numeric primitives behind similarity search.
// Vectors are float32; accumulation happens in float64.
package vecmath

import (
	"math"

	"semsearch/internal/domain"
)

// Dot returns the sum of elementwise products.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.DimensionMismatch("dot", len(a), len(b))
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum, nil
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns dot(a,b) / (|a| |b|).
// A zero vector on either side is orthogonal to everything and scores 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.DimensionMismatch("cosine_similarity", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push parallel vectors slightly past 1.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}

// Normalize returns v scaled to unit length. ok is false for a zero vector,
// which cannot be normalized.
func Normalize(v []float32) (out []float32, ok bool) {
	norm := Magnitude(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, false
	}
	out = make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, true
}

// MeanPool averages vectors elementwise.
func MeanPool(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	dim := len(vectors[0])
	acc := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, domain.DimensionMismatch("mean_pool", dim, len(v))
		}
		for i, x := range v {
			acc[i] += float64(x)
		}
	}

	out := make([]float32, dim)
	n := float64(len(vectors))
	for i := range acc {
		out[i] = float32(acc[i] / n)
	}
	return out, nil
}

// IsFinite reports whether v contains no NaN or infinite components.
func IsFinite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
