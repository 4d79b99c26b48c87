package hashenc

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func TestEncodeDeterministic(t *testing.T) {
	enc := New(64)
	texts := []string{"python developer", "hr manager", ""}

	a, err := enc.Encode(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := enc.Encode(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("encoding should be deterministic")
	}

	for i, v := range a {
		if len(v) != 64 {
			t.Errorf("vector %d width %d", i, len(v))
		}
	}

	var norm float64
	for _, x := range a[0] {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("expected unit norm, got %f", norm)
	}
	for _, x := range a[2] {
		if x != 0 {
			t.Fatal("empty text should encode to zeros")
		}
	}
}

func TestEncodeSimilarity(t *testing.T) {
	enc := New(256)
	vecs, err := enc.Encode(context.Background(), []string{
		"python developer django api",
		"python developer flask api",
		"payroll recruitment onboarding",
	})
	if err != nil {
		t.Fatal(err)
	}
	dot := func(a, b []float32) float64 {
		var s float64
		for i := range a {
			s += float64(a[i]) * float64(b[i])
		}
		return s
	}
	if dot(vecs[0], vecs[1]) <= dot(vecs[0], vecs[2]) {
		t.Error("texts sharing terms should be closer than unrelated texts")
	}
}

func TestEncodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(8).Encode(ctx, []string{"a"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestModelID(t *testing.T) {
	if New(0).Dim() != 384 {
		t.Error("default width should be 384")
	}
	if New(16).ModelID() == New(32).ModelID() {
		t.Error("model id should include the width")
	}
}
