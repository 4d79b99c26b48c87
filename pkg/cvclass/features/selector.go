package features

import (
	"fmt"
	"sort"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

// Selector is the ordered list of feature columns kept for the classifier.
// The order is part of the artifact: column j of a selected row is always
// column Indices[j] of the full row.
type Selector struct {
	Indices []int `json:"indices"`
	Width   int   `json:"width"` // feature width the indices were chosen against
}

// FitSelector keeps the k columns with the highest importance, ties broken
// by ascending column index. k larger than width keeps every column.
func FitSelector(width int, importances []float64, k int) (*Selector, error) {
	if width <= 0 || len(importances) != width {
		return nil, fmt.Errorf("selector: %d importances for width %d: %w", len(importances), width, internalerr.ErrShapeMismatch)
	}
	if k <= 0 {
		return nil, fmt.Errorf("selector: k = %d: %w", k, internalerr.ErrInvalidConfig)
	}
	k = min(k, width)

	order := RankByImportance(importances)
	idx := make([]int, k)
	copy(idx, order[:k])
	return &Selector{Indices: idx, Width: width}, nil
}

// RankByImportance returns all column indices ordered by importance
// descending, ties by index ascending.
func RankByImportance(importances []float64) []int {
	order := make([]int, len(importances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return importances[order[a]] > importances[order[b]]
	})
	return order
}

// K returns the number of selected columns.
func (s *Selector) K() int { return len(s.Indices) }

// TransformOne projects row onto the selected columns.
func (s *Selector) TransformOne(row []float64) ([]float64, error) {
	out := make([]float64, len(s.Indices))
	for j, idx := range s.Indices {
		if idx < 0 || idx >= len(row) {
			return nil, fmt.Errorf("column %d of row width %d: %w", idx, len(row), internalerr.ErrIndexOutOfRange)
		}
		out[j] = row[idx]
	}
	return out, nil
}

// Transform projects every row.
func (s *Selector) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		sel, err := s.TransformOne(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = sel
	}
	return out, nil
}

// Validate checks the indices against the recorded width.
func (s *Selector) Validate() error {
	if len(s.Indices) == 0 {
		return fmt.Errorf("selector: no indices: %w", internalerr.ErrIncompatibleArtifacts)
	}
	seen := make(map[int]struct{}, len(s.Indices))
	for _, idx := range s.Indices {
		if idx < 0 || idx >= s.Width {
			return fmt.Errorf("selector: index %d outside width %d: %w", idx, s.Width, internalerr.ErrIndexOutOfRange)
		}
		if _, dup := seen[idx]; dup {
			return fmt.Errorf("selector: duplicate index %d: %w", idx, internalerr.ErrIncompatibleArtifacts)
		}
		seen[idx] = struct{}{}
	}
	return nil
}
