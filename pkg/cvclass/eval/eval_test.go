package eval

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/cvclass/pkg/cvclass/category"
	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

func TestStratifiedSplit(t *testing.T) {
	labels := make([]int, 0, 50)
	for i := 0; i < 40; i++ {
		labels = append(labels, 0)
	}
	for i := 0; i < 10; i++ {
		labels = append(labels, 1)
	}
	labels = append(labels, 2) // singleton

	train, test, err := StratifiedSplit(labels, 0.2, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(train)+len(test) != len(labels) {
		t.Fatalf("split lost rows: %d + %d", len(train), len(test))
	}

	count := func(idx []int, label int) int {
		n := 0
		for _, i := range idx {
			if labels[i] == label {
				n++
			}
		}
		return n
	}
	if count(test, 0) != 8 || count(test, 1) != 2 || count(test, 2) != 0 {
		t.Errorf("unexpected test composition: %d/%d/%d", count(test, 0), count(test, 1), count(test, 2))
	}

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, train...), test...) {
		if seen[i] {
			t.Fatalf("index %d in both sets", i)
		}
		seen[i] = true
	}

	train2, test2, _ := StratifiedSplit(labels, 0.2, 42)
	if !reflect.DeepEqual(train, train2) || !reflect.DeepEqual(test, test2) {
		t.Error("same seed should give the same split")
	}
	_, test3, _ := StratifiedSplit(labels, 0.2, 7)
	if reflect.DeepEqual(test, test3) {
		t.Error("different seeds should usually give different splits")
	}
}

func TestStratifiedSplitErrors(t *testing.T) {
	if _, _, err := StratifiedSplit([]int{1, 2}, 0, 1); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("ratio 0: %v", err)
	}
	if _, _, err := StratifiedSplit(nil, 0.2, 1); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("empty: %v", err)
	}
}

func TestTake(t *testing.T) {
	got := Take([]string{"a", "b", "c", "d"}, []int{3, 1})
	if !reflect.DeepEqual(got, []string{"d", "b"}) {
		t.Errorf("Take = %v", got)
	}
}

type fixedPredictor []int

func (f fixedPredictor) Predict(rows [][]float64) ([]int, error) { return f, nil }

func TestEvaluate(t *testing.T) {
	set, err := category.FromLabels([]string{"Accountant", "Designer", "Engineer"})
	if err != nil {
		t.Fatal(err)
	}
	truth := []int{0, 0, 1, 1, 2}
	pred := fixedPredictor{0, 1, 1, 1, 1}

	r, err := Evaluate(pred, make([][]float64, 5), truth, set)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r.Accuracy-0.6) > 1e-9 {
		t.Errorf("accuracy = %f", r.Accuracy)
	}
	if len(r.Classes) != 3 {
		t.Fatalf("expected 3 classes, got %d", len(r.Classes))
	}

	acc := r.Classes[0]
	if acc.Precision != 1 || acc.Recall != 0.5 || acc.Support != 2 {
		t.Errorf("Accountant metrics %+v", acc)
	}
	eng := r.Classes[2]
	// never predicted: precision falls back to 1, recall is 0
	if eng.Precision != 1 || eng.Recall != 0 || eng.F1 != 0 {
		t.Errorf("Engineer metrics %+v", eng)
	}
	des := r.Classes[1]
	if des.Precision != 0.5 || des.Recall != 1 {
		t.Errorf("Designer metrics %+v", des)
	}

	wantMacroP := (1 + 0.5 + 1) / 3.0
	if math.Abs(r.MacroAvg.Precision-wantMacroP) > 1e-9 {
		t.Errorf("macro precision = %f, want %f", r.MacroAvg.Precision, wantMacroP)
	}
	wantWeightedR := (2*0.5 + 2*1 + 1*0) / 5.0
	if math.Abs(r.WeightedAvg.Recall-wantWeightedR) > 1e-9 {
		t.Errorf("weighted recall = %f, want %f", r.WeightedAvg.Recall, wantWeightedR)
	}

	text := r.String()
	for _, want := range []string{"precision", "Accountant", "accuracy", "macro avg", "weighted avg", "0.60"} {
		if !strings.Contains(text, want) {
			t.Errorf("report text missing %q:\n%s", want, text)
		}
	}
}

func TestScoreUnknownCode(t *testing.T) {
	set, _ := category.FromLabels([]string{"A"})
	if _, err := Score([]int{0}, []int{3}, set); !errors.Is(err, internalerr.ErrUnknownCategoryCode) {
		t.Errorf("expected ErrUnknownCategoryCode, got %v", err)
	}
}
