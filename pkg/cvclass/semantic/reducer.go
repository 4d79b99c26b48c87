package semantic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

// Reducer projects E-wide embeddings onto R principal components learned
// from the training embeddings. It is never refit after FitReducer.
type Reducer struct {
	InputDim   int         `json:"input_dim"`  // E
	OutputDim  int         `json:"output_dim"` // R
	Mean       []float64   `json:"mean"`
	Components [][]float64 `json:"components"` // fitted components, at most R rows of width E
}

// FitReducer learns the PCA basis. When the corpus supports fewer than r
// components (fewer than r+1 rows, or E < r) the missing output columns are
// always zero, so the output width is r regardless of corpus size.
//
// Each component's sign is fixed so that its largest-magnitude loading is
// positive, making the basis reproducible.
func FitReducer(embeddings [][]float64, r int) (*Reducer, error) {
	if r <= 0 {
		return nil, fmt.Errorf("reducer: output width %d: %w", r, internalerr.ErrInvalidConfig)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("reducer: no embeddings: %w", internalerr.ErrInvalidInput)
	}
	e := len(embeddings[0])
	if e == 0 {
		return nil, fmt.Errorf("reducer: zero-width embeddings: %w", internalerr.ErrInvalidInput)
	}

	n := len(embeddings)
	data := mat.NewDense(n, e, nil)
	mean := make([]float64, e)
	for i, row := range embeddings {
		if len(row) != e {
			return nil, fmt.Errorf("reducer: row %d width %d, want %d: %w", i, len(row), e, internalerr.ErrShapeMismatch)
		}
		data.SetRow(i, row)
		for j, x := range row {
			mean[j] += x
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	red := &Reducer{InputDim: e, OutputDim: r, Mean: mean}

	k := min(r, n-1, e)
	if k <= 0 {
		return red, nil
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, fmt.Errorf("reducer: decomposition failed: %w", internalerr.ErrInvalidInput)
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	_, cols := vecs.Dims()
	for c := 0; c < cols && len(red.Components) < k; c++ {
		if c < len(vars) && vars[c] <= 1e-12 {
			break
		}
		comp := make([]float64, e)
		mat.Col(comp, c, &vecs)
		flipSign(comp)
		red.Components = append(red.Components, comp)
	}
	return red, nil
}

// Reduce projects each embedding. Input width must equal the fitted E.
func (r *Reducer) Reduce(embeddings [][]float64) ([][]float64, error) {
	out := make([][]float64, len(embeddings))
	for i, v := range embeddings {
		red, err := r.ReduceOne(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = red
	}
	return out, nil
}

// ReduceOne projects a single embedding to width OutputDim.
func (r *Reducer) ReduceOne(v []float64) ([]float64, error) {
	if len(v) != r.InputDim {
		return nil, fmt.Errorf("reducer fitted on width %d, got %d: %w", r.InputDim, len(v), internalerr.ErrIncompatibleArtifacts)
	}
	out := make([]float64, r.OutputDim)
	for c, comp := range r.Components {
		var s float64
		for j, x := range v {
			s += (x - r.Mean[j]) * comp[j]
		}
		out[c] = s
	}
	return out, nil
}

// Validate checks the internal widths of a decoded reducer.
func (r *Reducer) Validate() error {
	if r.InputDim <= 0 || r.OutputDim <= 0 || len(r.Mean) != r.InputDim || len(r.Components) > r.OutputDim {
		return fmt.Errorf("reducer: inconsistent widths: %w", internalerr.ErrIncompatibleArtifacts)
	}
	for i, c := range r.Components {
		if len(c) != r.InputDim {
			return fmt.Errorf("reducer: component %d width %d: %w", i, len(c), internalerr.ErrIncompatibleArtifacts)
		}
	}
	return nil
}

func flipSign(v []float64) {
	best := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[best]) {
			best = i
		}
	}
	if v[best] < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
}
