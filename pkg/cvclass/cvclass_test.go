package cvclass

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic/hashenc"
	"github.com/cognicore/cvclass/pkg/cvclass/store/memstore"
	"github.com/cognicore/cvclass/pkg/cvclass/train/traintest"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Options{
		Store:    memstore.New(),
		Encoder:  hashenc.New(32),
		Embedder: semantic.DefaultEmbedderConfig(),
		Train:    traintest.Config(),
		TopN:     2,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngineLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	if _, err := e.Classify(ctx, "python developer", 3); !errors.Is(err, internalerr.ErrMissingArtifact) {
		t.Fatalf("classify before training: expected ErrMissingArtifact, got %v", err)
	}
	if _, err := e.Reload(ctx, "latest"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("reload on empty store: expected ErrNotFound, got %v", err)
	}

	res, err := e.Train(ctx, traintest.Resumes(8, 11))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	id := res.Set.Manifest.ID
	if e.SetID() != id {
		t.Fatalf("serving %q, trained %q", e.SetID(), id)
	}

	got, err := e.Classify(ctx, "hospital ward patient care and medication", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("default top n not applied: %+v", got)
	}

	reloaded, err := e.Reload(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if reloaded != id {
		t.Errorf("reloaded %q, want %q", reloaded, id)
	}

	rep, m, err := e.Report(ctx, "latest")
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != id || rep.Accuracy != res.Report.Accuracy {
		t.Errorf("report mismatch: manifest %s, accuracy %v vs %v", m.ID, rep.Accuracy, res.Report.Accuracy)
	}

	sets, err := e.Sets(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 1 || sets[0].ID != id {
		t.Errorf("unexpected sets %+v", sets)
	}
}

func TestNewRequiresStoreAndEncoder(t *testing.T) {
	if _, err := New(Options{Encoder: hashenc.New(8)}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewEncoder(t *testing.T) {
	ctx := context.Background()
	enc, err := NewEncoder(ctx, EncoderConfig{Dim: 16})
	if err != nil {
		t.Fatal(err)
	}
	if enc.Dim() != 16 || enc.ModelID() != hashenc.New(16).ModelID() {
		t.Errorf("unexpected default encoder %s/%d", enc.ModelID(), enc.Dim())
	}
	if _, err := NewEncoder(ctx, EncoderConfig{Provider: "word2vec"}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("unknown provider: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewEncoder(ctx, EncoderConfig{Provider: ProviderVoyage}); err == nil {
		t.Error("voyage without api key: expected error")
	}
	if _, err := NewEncoder(ctx, EncoderConfig{Provider: ProviderONNX}); err == nil {
		t.Error("onnx without model paths: expected error")
	}
}

type countingProvider struct {
	noop.TracerProvider
	tracers atomic.Int32
}

func (p *countingProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	p.tracers.Add(1)
	return p.TracerProvider.Tracer(name, opts...)
}

func TestEngineUsesTracerProvider(t *testing.T) {
	ctx := context.Background()
	tp := &countingProvider{}
	e, err := New(Options{
		Store:          memstore.New(),
		Encoder:        hashenc.New(32),
		Train:          traintest.Config(),
		TracerProvider: tp,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if _, err := e.Train(ctx, traintest.Resumes(6, 3)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Classify(ctx, "python developer", 1); err != nil {
		t.Fatal(err)
	}
	if tp.tracers.Load() == 0 {
		t.Error("prediction service did not use the configured tracer provider")
	}
}
