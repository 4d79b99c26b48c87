package predict

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/cognicore/cvclass/pkg/cvclass/artifact"
	"github.com/cognicore/cvclass/pkg/cvclass/features"
	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/normalize"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic/hashenc"
	"github.com/cognicore/cvclass/pkg/cvclass/store/sqlite"
	"github.com/cognicore/cvclass/pkg/cvclass/train"
	"github.com/cognicore/cvclass/pkg/cvclass/train/traintest"
)

func newEmbedder(t *testing.T, dim int) *semantic.Embedder {
	t.Helper()
	emb, err := semantic.NewEmbedder(hashenc.New(dim), semantic.DefaultEmbedderConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return emb
}

var trainOnce = sync.OnceValues(func() (*artifact.Set, error) {
	emb, err := semantic.NewEmbedder(hashenc.New(32), semantic.DefaultEmbedderConfig(), nil)
	if err != nil {
		return nil, err
	}
	tr, err := train.New(normalize.New(), emb, nil, traintest.Config())
	if err != nil {
		return nil, err
	}
	res, err := tr.Run(context.Background(), traintest.Resumes(12, 5))
	if err != nil {
		return nil, err
	}
	return res.Set, nil
})

func trainedSet(t *testing.T) *artifact.Set {
	t.Helper()
	set, err := trainOnce()
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	return set
}

func newService(t *testing.T, set *artifact.Set) *Service {
	t.Helper()
	c, err := NewContext(set, normalize.New(), newEmbedder(t, 32))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	s, err := NewService(c)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPythonDeveloperRanksSoftwareEngineer(t *testing.T) {
	s := newService(t, trainedSet(t))
	got, err := s.PredictTopN(context.Background(), "Experienced Python developer with 5 years building REST APIs", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %+v", got)
	}
	found := false
	for _, r := range got {
		if r.Category == "Software Engineer" {
			found = true
			if r.Confidence <= 0 || r.Confidence >= 100 {
				t.Errorf("confidence %.2f outside (0, 100)", r.Confidence)
			}
		}
	}
	if !found {
		t.Fatalf("Software Engineer not in top 3: %+v", got)
	}
	for i := 1; i < len(got); i++ {
		a, b := got[i-1], got[i]
		if a.Confidence < b.Confidence || (a.Confidence == b.Confidence && a.Code > b.Code) {
			t.Errorf("ranking invariant broken at %d: %+v", i, got)
		}
	}
}

func TestEmptyInputIsNotAnError(t *testing.T) {
	s := newService(t, trainedSet(t))
	for _, raw := range []string{"", "   ", "1234 !!! ...", "the and of"} {
		got, err := s.Classify(context.Background(), raw, 3)
		if err != nil {
			t.Fatalf("%q: %v", raw, err)
		}
		if len(got) != 3 {
			t.Fatalf("%q: expected 3 entries, got %+v", raw, got)
		}
		for _, r := range got {
			if r.Category == "" || len(r.Confidence) < 5 || r.Confidence[len(r.Confidence)-1] != '%' {
				t.Errorf("%q: malformed result %+v", raw, r)
			}
		}
	}
}

func TestEqualNormalizationEqualPrediction(t *testing.T) {
	s := newService(t, trainedSet(t))
	a, b := "Registered NURSE: patient care!!", "registered   nurse patient care 2024"
	c := s.Current()
	if c.Normalize(a) != c.Normalize(b) {
		t.Fatalf("fixture texts normalize differently: %q vs %q", c.Normalize(a), c.Normalize(b))
	}
	pa, err := s.PredictTopN(context.Background(), a, 5)
	if err != nil {
		t.Fatal(err)
	}
	pb, err := s.PredictTopN(context.Background(), b, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(pa, pb) {
		t.Fatalf("predictions differ:\n%+v\n%+v", pa, pb)
	}
}

func TestProbabilitiesSumToOne(t *testing.T) {
	s := newService(t, trainedSet(t))
	probs, err := s.Current().Probabilities(context.Background(), "ledger audit and payroll reconciliation")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %v", sum)
	}
	if len(probs) != len(s.Current().Classes()) {
		t.Fatalf("%d probabilities for %d classes", len(probs), len(s.Current().Classes()))
	}
}

func TestSelectorDriftIsIndexOutOfRange(t *testing.T) {
	set := *trainedSet(t)
	sel := &features.Selector{Indices: append([]int(nil), set.Selector.Indices...), Width: set.Selector.Width}
	sel.Indices[0] = set.Manifest.Layout.Width() + 10
	set.Selector = sel

	if _, err := NewContext(&set, normalize.New(), newEmbedder(t, 32)); !errors.Is(err, internalerr.ErrIndexOutOfRange) {
		t.Fatalf("NewContext: expected ErrIndexOutOfRange, got %v", err)
	}

	// A context that skipped validation still refuses to guess.
	c := &Context{set: &set, normalizer: normalize.New(), embedder: newEmbedder(t, 32)}
	s, err := NewService(c)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.PredictTopN(context.Background(), "python developer", 3); !errors.Is(err, internalerr.ErrIndexOutOfRange) {
		t.Fatalf("PredictTopN: expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestEncoderMismatchIsIncompatible(t *testing.T) {
	_, err := NewContext(trainedSet(t), normalize.New(), newEmbedder(t, 64))
	if !errors.Is(err, internalerr.ErrIncompatibleArtifacts) {
		t.Fatalf("expected ErrIncompatibleArtifacts, got %v", err)
	}
}

func TestSwapUnderLoad(t *testing.T) {
	set := trainedSet(t)
	s := newService(t, set)
	first := s.Current()

	next, err := NewContext(set, normalize.New(), newEmbedder(t, 32))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				if _, err := s.PredictTopN(context.Background(), "sales quota and client revenue", 3); err != nil {
					errs <- err
				}
			}
		}()
	}
	old, err := s.Swap(next)
	if err != nil {
		t.Fatal(err)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("prediction during swap: %v", err)
	}
	if old != first || s.Current() != next {
		t.Fatal("swap did not replace the context")
	}
	if _, err := s.Swap(nil); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for nil swap, got %v", err)
	}
}

func TestSQLiteRoundTripPredictsIdentically(t *testing.T) {
	ctx := context.Background()
	st, err := sqlite.OpenSQLite(ctx, filepath.Join(t.TempDir(), "cvclass.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	set := *trainedSet(t)
	set.Manifest.ID = ""
	if _, err := artifact.Save(ctx, st, &set); err != nil {
		t.Fatal(err)
	}
	loaded, err := artifact.LoadLatest(ctx, st)
	if err != nil {
		t.Fatal(err)
	}

	mem := newService(t, &set)
	disk := newService(t, loaded)
	for _, text := range []string{
		"Experienced Python developer with 5 years building REST APIs",
		"clinical triage on the hospital ward",
		"",
	} {
		a, err := mem.PredictTopN(ctx, text, 5)
		if err != nil {
			t.Fatal(err)
		}
		b, err := disk.PredictTopN(ctx, text, 5)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%q: stored set predicts differently:\n%+v\n%+v", text, a, b)
		}
	}
}
