package vecmath

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"semsearch/internal/domain"
)

func randomVector(r *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(r.NormFloat64())
	}
	return v
}

func TestDot(t *testing.T) {
	got, err := Dot([]float32{1, 2, 3}, []float32{4, 5, 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 32 {
		t.Errorf("expected 32, got %f", got)
	}
}

func TestDot_DimensionMismatch(t *testing.T) {
	_, err := Dot([]float32{1, 2}, []float32{1, 2, 3})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected DimensionMismatch, got %v", err)
	}
}

func TestMagnitude(t *testing.T) {
	if got := Magnitude([]float32{3, 4}); got != 5 {
		t.Errorf("expected 5, got %f", got)
	}
	if got := Magnitude(nil); got != 0 {
		t.Errorf("expected 0 for empty vector, got %f", got)
	}
}

func TestCosineSimilarity_Self(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		a := randomVector(r, 16)
		sim, err := CosineSimilarity(a, a)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(sim-1) > 1e-6 {
			t.Errorf("expected self-similarity 1, got %f", sim)
		}
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		a, b := randomVector(r, 8), randomVector(r, 8)
		ab, _ := CosineSimilarity(a, b)
		ba, _ := CosineSimilarity(b, a)
		if ab != ba {
			t.Errorf("expected symmetry, got %v vs %v", ab, ba)
		}
		if ab < -1 || ab > 1 {
			t.Errorf("similarity %f out of range", ab)
		}
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	tests := [][2][]float32{
		{zero, {1, 2, 3}},
		{{1, 2, 3}, zero},
		{zero, zero},
	}
	for _, tt := range tests {
		sim, err := CosineSimilarity(tt[0], tt[1])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sim != 0 || math.IsNaN(sim) {
			t.Errorf("expected 0 for zero vector, got %f", sim)
		}
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1}, []float32{1, 0})
	if domain.KindOf(err) != domain.KindDimensionMismatch {
		t.Fatalf("expected DimensionMismatch, got %v", err)
	}
}

func TestCosineSimilarity_Scenario(t *testing.T) {
	query, ok := Normalize([]float32{0.9, 0.1, 0})
	if !ok {
		t.Fatal("expected normalizable query")
	}

	cat, _ := CosineSimilarity(query, []float32{1, 0, 0})
	dog, _ := CosineSimilarity(query, []float32{0, 1, 0})

	if math.Abs(cat-0.9938837347) > 1e-6 {
		t.Errorf("expected cat similarity 0.993884, got %f", cat)
	}
	if math.Abs(dog-0.1104315261) > 1e-6 {
		t.Errorf("expected dog similarity 0.110432, got %f", dog)
	}
}

func TestNormalize(t *testing.T) {
	v, ok := Normalize([]float32{3, 4})
	if !ok {
		t.Fatal("expected ok")
	}
	if math.Abs(Magnitude(v)-1) > 1e-6 {
		t.Errorf("expected unit norm, got %f", Magnitude(v))
	}
	if _, ok := Normalize([]float32{0, 0}); ok {
		t.Error("zero vector must not normalize")
	}
}

func TestMeanPool(t *testing.T) {
	got, err := MeanPool([][]float32{{1, 2}, {3, 6}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 2 || got[1] != 4 {
		t.Errorf("expected [2 4], got %v", got)
	}

	if _, err := MeanPool([][]float32{{1}, {1, 2}}); domain.KindOf(err) != domain.KindDimensionMismatch {
		t.Errorf("expected DimensionMismatch, got %v", err)
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite([]float32{1, -2}) {
		t.Error("expected finite")
	}
	if IsFinite([]float32{1, float32(math.NaN())}) {
		t.Error("NaN must not be finite")
	}
	if IsFinite([]float32{float32(math.Inf(1))}) {
		t.Error("Inf must not be finite")
	}
}
