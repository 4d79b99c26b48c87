package lexical

import "math"

// Vector is a sparse row over a fixed vocabulary. Indices are strictly
// increasing.
type Vector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// Dense expands the vector to a slice of length Dim.
func (v Vector) Dense() []float64 {
	out := make([]float64, v.Dim)
	v.AddTo(out)
	return out
}

// AddTo writes the non-zero entries into dst, which must have length >= Dim.
func (v Vector) AddTo(dst []float64) {
	for i, idx := range v.Indices {
		dst[idx] = v.Values[i]
	}
}

// NNZ returns the number of stored entries.
func (v Vector) NNZ() int { return len(v.Indices) }

// Norm returns the Euclidean norm.
func (v Vector) Norm() float64 {
	var s float64
	for _, x := range v.Values {
		s += x * x
	}
	return math.Sqrt(s)
}
