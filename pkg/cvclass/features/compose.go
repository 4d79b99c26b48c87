// Package features assembles the fixed-width feature matrix and projects it
// onto the columns chosen at training time.
package features

import (
	"fmt"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/lexical"
)

// Layout records the widths of the two feature blocks. Lexical columns
// always come first.
type Layout struct {
	Lexical  int `json:"lexical"`  // V
	Semantic int `json:"semantic"` // R
}

// Width returns V+R.
func (l Layout) Width() int { return l.Lexical + l.Semantic }

// Compose concatenates lexical and reduced semantic rows into dense rows of
// width layout.Width().
func Compose(layout Layout, lex []lexical.Vector, sem [][]float64) ([][]float64, error) {
	if len(lex) != len(sem) {
		return nil, fmt.Errorf("compose: %d lexical rows vs %d semantic rows: %w", len(lex), len(sem), internalerr.ErrShapeMismatch)
	}
	out := make([][]float64, len(lex))
	for i := range lex {
		row, err := ComposeOne(layout, lex[i], sem[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = row
	}
	return out, nil
}

// ComposeOne builds a single feature row.
func ComposeOne(layout Layout, lex lexical.Vector, sem []float64) ([]float64, error) {
	if lex.Dim != layout.Lexical {
		return nil, fmt.Errorf("compose: lexical width %d, want %d: %w", lex.Dim, layout.Lexical, internalerr.ErrShapeMismatch)
	}
	if len(sem) != layout.Semantic {
		return nil, fmt.Errorf("compose: semantic width %d, want %d: %w", len(sem), layout.Semantic, internalerr.ErrShapeMismatch)
	}
	row := make([]float64, layout.Width())
	lex.AddTo(row[:layout.Lexical])
	copy(row[layout.Lexical:], sem)
	return row, nil
}
