package semantic

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

func randomEmbeddings(n, e int, seed uint64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, seed))
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, e)
		for j := range out[i] {
			out[i][j] = rng.NormFloat64()
		}
	}
	return out
}

func TestFitReducerWidth(t *testing.T) {
	emb := randomEmbeddings(40, 12, 1)
	red, err := FitReducer(emb, 5)
	if err != nil {
		t.Fatalf("FitReducer: %v", err)
	}
	out, err := red.Reduce(emb)
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range out {
		if len(row) != 5 {
			t.Fatalf("row %d width %d", i, len(row))
		}
	}

	// Components are orthonormal.
	for a := range red.Components {
		for b := range red.Components {
			var dot float64
			for j := range red.Components[a] {
				dot += red.Components[a][j] * red.Components[b][j]
			}
			want := 0.0
			if a == b {
				want = 1
			}
			if math.Abs(dot-want) > 1e-9 {
				t.Errorf("components %d,%d dot %f", a, b, dot)
			}
		}
	}
}

func TestFitReducerPadsSmallCorpus(t *testing.T) {
	emb := randomEmbeddings(4, 10, 2)
	red, err := FitReducer(emb, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(red.Components) > 3 {
		t.Errorf("4 rows support at most 3 components, got %d", len(red.Components))
	}
	out, err := red.ReduceOne(randomEmbeddings(1, 10, 3)[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 8 {
		t.Fatalf("output width %d, want 8", len(out))
	}
	for j := len(red.Components); j < 8; j++ {
		if out[j] != 0 {
			t.Errorf("padded column %d should be zero", j)
		}
	}

	single, err := FitReducer(emb[:1], 3)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := single.ReduceOne(emb[0]); len(got) != 3 {
		t.Errorf("single-row reducer width %d", len(got))
	}
}

func TestFitReducerDeterministic(t *testing.T) {
	emb := randomEmbeddings(30, 8, 4)
	a, err := FitReducer(emb, 4)
	if err != nil {
		t.Fatal(err)
	}
	b, err := FitReducer(emb, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("repeated fits differ")
	}
	for i, c := range a.Components {
		best := 0
		for j := range c {
			if math.Abs(c[j]) > math.Abs(c[best]) {
				best = j
			}
		}
		if c[best] < 0 {
			t.Errorf("component %d largest loading is negative", i)
		}
	}
}

func TestReduceRejectsOtherWidth(t *testing.T) {
	red, err := FitReducer(randomEmbeddings(10, 6, 5), 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := red.ReduceOne(make([]float64, 7)); !errors.Is(err, internalerr.ErrIncompatibleArtifacts) {
		t.Errorf("expected ErrIncompatibleArtifacts, got %v", err)
	}
}

func TestFitReducerErrors(t *testing.T) {
	if _, err := FitReducer(nil, 2); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("empty: %v", err)
	}
	if _, err := FitReducer(randomEmbeddings(3, 3, 6), 0); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("zero width: %v", err)
	}
	ragged := [][]float64{{1, 2}, {1}}
	if _, err := FitReducer(ragged, 1); !errors.Is(err, internalerr.ErrShapeMismatch) {
		t.Errorf("ragged: %v", err)
	}
}

func TestReducerJSONRoundTrip(t *testing.T) {
	emb := randomEmbeddings(20, 6, 7)
	red, err := FitReducer(emb, 3)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(red)
	if err != nil {
		t.Fatal(err)
	}
	var restored Reducer
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatal(err)
	}
	if err := restored.Validate(); err != nil {
		t.Fatal(err)
	}
	want, _ := red.ReduceOne(emb[0])
	got, _ := restored.ReduceOne(emb[0])
	if !reflect.DeepEqual(want, got) {
		t.Error("restored reducer projects differently")
	}

	restored.Mean = restored.Mean[:2]
	if err := restored.Validate(); !errors.Is(err, internalerr.ErrIncompatibleArtifacts) {
		t.Errorf("expected ErrIncompatibleArtifacts, got %v", err)
	}
}
