package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"semsearch/internal/port"
	"semsearch/internal/vecmath"
)

// HashingModelName identifies the built-in offline model.
const HashingModelName = "hashing-v1"

const (
	wordWeight    = 1.0
	trigramWeight = 0.5
)

// Hashing is an offline embedding model. Each token is projected into a
// D-dimensional signed feature-hash space (the word plus its character
// trigrams), and the token vectors are mean-pooled. Output is deterministic
// and unnormalized; Serial normalizes it.
type Hashing struct {
	dim int
}

var _ port.Embedder = (*Hashing)(nil)

// NewHashing creates a hashing model with the given dimension.
func NewHashing(dim int) (*Hashing, error) {
	if dim < 8 {
		return nil, fmt.Errorf("hashing model needs at least 8 dimensions, got %d", dim)
	}
	return &Hashing{dim: dim}, nil
}

func (h *Hashing) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		// Only stopwords or punctuation; fall back to the raw text.
		raw := strings.ToLower(strings.TrimSpace(text))
		if raw == "" {
			return nil, ErrEmptyInput
		}
		tokens = []string{raw}
	}

	vectors := make([][]float32, len(tokens))
	for i, tok := range tokens {
		vectors[i] = h.tokenVector(tok)
	}
	return vecmath.MeanPool(vectors)
}

func (h *Hashing) Dimension() int {
	return h.dim
}

func (h *Hashing) ModelName() string {
	return HashingModelName
}

func (h *Hashing) tokenVector(tok string) []float32 {
	v := make([]float32, h.dim)
	h.add(v, "w:"+tok, wordWeight)

	runes := []rune("<" + tok + ">")
	for i := 0; i+3 <= len(runes); i++ {
		h.add(v, "g:"+string(runes[i:i+3]), trigramWeight)
	}
	return v
}

func (h *Hashing) add(v []float32, feature string, weight float32) {
	sum := xxhash.Sum64String(feature)
	idx := sum % uint64(len(v))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}
