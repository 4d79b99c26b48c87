package features

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/lexical"
)

func TestComposeOrderAndWidth(t *testing.T) {
	layout := Layout{Lexical: 4, Semantic: 2}
	lex := []lexical.Vector{
		{Dim: 4, Indices: []int{1, 3}, Values: []float64{0.6, 0.8}},
		{Dim: 4},
	}
	sem := [][]float64{{9, 8}, {7, 6}}

	rows, err := Compose(layout, lex, sem)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	want := [][]float64{
		{0, 0.6, 0, 0.8, 9, 8},
		{0, 0, 0, 0, 7, 6},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("Compose = %v, want %v", rows, want)
	}
	for _, r := range rows {
		if len(r) != layout.Width() {
			t.Errorf("row width %d, want %d", len(r), layout.Width())
		}
	}
}

func TestComposeShapeMismatch(t *testing.T) {
	layout := Layout{Lexical: 2, Semantic: 2}
	cases := map[string]struct {
		lex []lexical.Vector
		sem [][]float64
	}{
		"row counts":     {[]lexical.Vector{{Dim: 2}}, nil},
		"lexical width":  {[]lexical.Vector{{Dim: 3}}, [][]float64{{1, 2}}},
		"semantic width": {[]lexical.Vector{{Dim: 2}}, [][]float64{{1}}},
	}
	for name, c := range cases {
		if _, err := Compose(layout, c.lex, c.sem); !errors.Is(err, internalerr.ErrShapeMismatch) {
			t.Errorf("%s: expected ErrShapeMismatch, got %v", name, err)
		}
	}
}

func TestFitSelectorOrder(t *testing.T) {
	imp := []float64{0.1, 0.5, 0.0, 0.5, 0.3}
	sel, err := FitSelector(5, imp, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sel.Indices, []int{1, 3, 4}) {
		t.Errorf("Indices = %v", sel.Indices)
	}

	all, err := FitSelector(5, imp, 10)
	if err != nil {
		t.Fatal(err)
	}
	if all.K() != 5 {
		t.Errorf("k above width should keep all columns, got %d", all.K())
	}
}

func TestSelectorTransform(t *testing.T) {
	sel := &Selector{Indices: []int{4, 0, 2}, Width: 5}
	if err := sel.Validate(); err != nil {
		t.Fatal(err)
	}
	got, err := sel.TransformOne([]float64{10, 11, 12, 13, 14})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []float64{14, 10, 12}) {
		t.Errorf("TransformOne = %v", got)
	}

	rows, err := sel.Transform([][]float64{{0, 1, 2, 3, 4}, {5, 6, 7, 8, 9}})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if len(r) != sel.K() {
			t.Errorf("selected width %d, want %d", len(r), sel.K())
		}
	}
}

func TestSelectorIndexOutOfRange(t *testing.T) {
	sel := &Selector{Indices: []int{0, 7}, Width: 8}
	_, err := sel.TransformOne(make([]float64, 5))
	if !errors.Is(err, internalerr.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}

	bad := &Selector{Indices: []int{0, 9}, Width: 8}
	if err := bad.Validate(); !errors.Is(err, internalerr.ErrIndexOutOfRange) {
		t.Errorf("Validate: expected ErrIndexOutOfRange, got %v", err)
	}
	dup := &Selector{Indices: []int{1, 1}, Width: 8}
	if err := dup.Validate(); !errors.Is(err, internalerr.ErrIncompatibleArtifacts) {
		t.Errorf("Validate: expected ErrIncompatibleArtifacts, got %v", err)
	}
}

func TestFitSelectorErrors(t *testing.T) {
	if _, err := FitSelector(3, []float64{1, 2}, 1); !errors.Is(err, internalerr.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := FitSelector(2, []float64{1, 2}, 0); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
