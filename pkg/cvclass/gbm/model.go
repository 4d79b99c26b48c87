package gbm

import (
	"fmt"
	"math"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

// Node is a tree node. Internal nodes send rows with
// value[Feature] <= Threshold to Left.
type Node struct {
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"v,omitempty"`
}

// Tree is one regression tree contributing to one class margin.
type Tree struct {
	Class int    `json:"class"` // index into Model.Classes
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(row []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Model is a trained multiclass softmax booster. It is read-only after
// training and safe for concurrent use.
type Model struct {
	NumFeature int       `json:"num_feature"`
	Classes    []int     `json:"classes"` // category codes, one per output column
	Trees      []Tree    `json:"trees"`
	Importance []float64 `json:"importance"` // normalized mean split gain per feature
	Params     Params    `json:"params"`
}

// NumClass returns the number of output classes.
func (m *Model) NumClass() int { return len(m.Classes) }

// Importances returns a copy of the per-feature gain importances.
func (m *Model) Importances() []float64 {
	out := make([]float64, len(m.Importance))
	copy(out, m.Importance)
	return out
}

// PredictProbaOne returns class probabilities for one row, in Classes order.
func (m *Model) PredictProbaOne(row []float64) ([]float64, error) {
	if len(row) != m.NumFeature {
		return nil, fmt.Errorf("model expects %d features, got %d: %w", m.NumFeature, len(row), internalerr.ErrShapeMismatch)
	}
	margins := make([]float64, len(m.Classes))
	for i := range m.Trees {
		t := &m.Trees[i]
		margins[t.Class] += t.predict(row)
	}
	softmax(margins)
	return margins, nil
}

// PredictProba returns one probability row per input row. Each output row
// sums to 1.
func (m *Model) PredictProba(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		p, err := m.PredictProbaOne(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Predict returns the most probable category code per row. Ties go to the
// lower class index.
func (m *Model) Predict(rows [][]float64) ([]int, error) {
	probs, err := m.PredictProba(rows)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(rows))
	for i, p := range probs {
		best := 0
		for k := range p {
			if p[k] > p[best] {
				best = k
			}
		}
		out[i] = m.Classes[best]
	}
	return out, nil
}

// Validate checks the structure of a decoded model.
func (m *Model) Validate() error {
	if m.NumFeature <= 0 || m.NumClass() == 0 {
		return fmt.Errorf("model: %d features, %d classes: %w", m.NumFeature, m.NumClass(), internalerr.ErrIncompatibleArtifacts)
	}
	if len(m.Importance) != 0 && len(m.Importance) != m.NumFeature {
		return fmt.Errorf("model: %d importances for %d features: %w", len(m.Importance), m.NumFeature, internalerr.ErrIncompatibleArtifacts)
	}
	for ti, t := range m.Trees {
		if t.Class < 0 || t.Class >= m.NumClass() || len(t.Nodes) == 0 {
			return fmt.Errorf("model: tree %d malformed: %w", ti, internalerr.ErrIncompatibleArtifacts)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= m.NumFeature ||
				n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("model: tree %d node %d malformed: %w", ti, ni, internalerr.ErrIncompatibleArtifacts)
			}
		}
	}
	return nil
}

func softmax(x []float64) {
	maxv := math.Inf(-1)
	for _, v := range x {
		maxv = math.Max(maxv, v)
	}
	var sum float64
	for i, v := range x {
		x[i] = math.Exp(v - maxv)
		sum += x[i]
	}
	for i := range x {
		x[i] /= sum
	}
}
