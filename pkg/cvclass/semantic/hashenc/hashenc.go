// Package hashenc is an offline sentence encoder based on feature hashing.
// It needs no model files or network access, which makes it the encoder of
// choice for tests and air-gapped training runs.
package hashenc

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Encoder hashes unigrams and bigrams into a fixed number of signed buckets
// and L2-normalizes the result.
type Encoder struct {
	dim int
}

// New returns an encoder of width dim.
func New(dim int) *Encoder {
	if dim <= 0 {
		dim = 384
	}
	return &Encoder{dim: dim}
}

// Dim returns the output width.
func (e *Encoder) Dim() int { return e.dim }

// ModelID identifies the hashing scheme and width.
func (e *Encoder) ModelID() string { return fmt.Sprintf("hashenc-xxh64-%d", e.dim) }

// Encode embeds each text.
func (e *Encoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.encode(t)
	}
	return out, nil
}

func (e *Encoder) encode(text string) []float32 {
	vec := make([]float64, e.dim)
	tokens := strings.Fields(strings.ToLower(text))
	for i, tok := range tokens {
		e.add(vec, tok, 1)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	out := make([]float32, e.dim)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range vec {
		out[i] = float32(x / norm)
	}
	return out
}

func (e *Encoder) add(vec []float64, term string, weight float64) {
	h := xxhash.Sum64String(term)
	bucket := h % uint64(e.dim)
	if h>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}
