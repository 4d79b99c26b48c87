package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cognicore/cvclass/pkg/cvclass"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic"
	"github.com/cognicore/cvclass/pkg/cvclass/train/traintest"
)

const testConfig = `
features:
  max_lexical: 200
  reduced_dim: 8
  selected: 60
encoder:
  provider: hash
  dim: 32
train:
  workers: 2
  params:
    n_estimators: 20
    max_depth: 2
    learning_rate: 0.1
  preliminary_params:
    n_estimators: 10
    max_depth: 3
predict:
  top_n: 3
`

func writeFixtures(t *testing.T) (cfgPath, corpusPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "cvclass.yaml")
	if err := os.WriteFile(cfgPath, []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	corpusPath = filepath.Join(dir, "resumes.csv")
	f, err := os.Create(corpusPath)
	if err != nil {
		t.Fatal(err)
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{"ID", "Resume_str", "Category"})
	for _, ex := range traintest.Resumes(8, 3).Examples {
		_ = w.Write([]string{ex.ID, ex.Text, ex.Label})
	}
	_ = w.Write([]string{"bad", "", "Nurse"})
	w.Flush()
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return cfgPath, corpusPath, filepath.Join(dir, "cvclass.db")
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("cvclass %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestTrainClassifyReport(t *testing.T) {
	cfgPath, corpusPath, dbPath := writeFixtures(t)
	common := []string{"--config", cfgPath, "--store", dbPath}

	out := run(t, append([]string{"train", "--corpus", corpusPath}, common...)...)
	if !strings.Contains(out, "artifact set ") || !strings.Contains(out, "accuracy") {
		t.Fatalf("unexpected train output:\n%s", out)
	}
	if !strings.Contains(out, "1 excluded") {
		t.Errorf("excluded row not reported:\n%s", out)
	}

	out = run(t, append([]string{"classify", "Experienced Python developer with 5 years building REST APIs"}, common...)...)
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 3 {
		t.Fatalf("expected 3 result lines, got:\n%s", out)
	}
	if !strings.Contains(out, "%") {
		t.Errorf("confidences not formatted:\n%s", out)
	}

	cvPath := filepath.Join(t.TempDir(), "cv.html")
	if err := os.WriteFile(cvPath, []byte("<p>Registered nurse, <b>patient care</b> on the hospital ward</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	out = run(t, append([]string{"classify", "--file", cvPath, "--json-output", "-n", "1"}, common...)...)
	if !strings.Contains(out, `"category"`) || !strings.Contains(out, `"confidence"`) {
		t.Errorf("unexpected json output:\n%s", out)
	}

	out = run(t, append([]string{"report"}, common...)...)
	if !strings.Contains(out, "macro avg") {
		t.Errorf("unexpected report:\n%s", out)
	}

	out = run(t, append([]string{"artifacts", "list"}, common...)...)
	if !strings.Contains(out, "hashenc-xxh64-32") {
		t.Errorf("unexpected listing:\n%s", out)
	}
}

func TestStopwordsCommand(t *testing.T) {
	cfgPath, corpusPath, _ := writeFixtures(t)
	out := run(t, "stopwords", "--config", cfgPath, "--corpus", corpusPath, "--min-df", "50")
	if !strings.HasPrefix(out, "terms:") {
		t.Fatalf("expected a stoplist fragment, got:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	if out := run(t, "version"); !strings.Contains(out, "cvclass version") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestBuildEngineRejectsUnknownEncoder(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("encoder.provider", "word2vec")
	v.Set("store.path", filepath.Join(t.TempDir(), "x.db"))
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := buildEngine(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown encoder provider")
	}
}

type closingEncoder struct {
	closed int
}

func (e *closingEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}
func (e *closingEncoder) Dim() int        { return 4 }
func (e *closingEncoder) ModelID() string { return "closing@4" }
func (e *closingEncoder) Close() error    { e.closed++; return nil }

func TestBuildEngineClosesEncoderOnStoreFailure(t *testing.T) {
	enc := &closingEncoder{}
	orig := newEncoder
	newEncoder = func(context.Context, cvclass.EncoderConfig) (semantic.Encoder, error) { return enc, nil }
	t.Cleanup(func() { newEncoder = orig })

	v := viper.New()
	setDefaults(v)
	v.Set("store.path", filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := buildEngine(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for a store in a missing directory")
	}
	if enc.closed != 1 {
		t.Errorf("encoder closed %d times, want 1", enc.closed)
	}
}

func TestTrainConfigOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("train.params", map[string]any{"n_estimators": "40", "colsample_bytree": 0.5})
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatal(err)
	}
	tc, err := cfg.trainConfig()
	if err != nil {
		t.Fatal(err)
	}
	if tc.Params.NEstimators != 40 || tc.Params.ColsampleByTree != 0.5 || tc.Params.MaxDepth != 5 {
		t.Errorf("overrides not applied: %+v", tc.Params)
	}

	v.Set("train.params", map[string]any{"n_trees": 10})
	cfg, _ = loadConfig(v)
	if _, err := cfg.trainConfig(); err == nil {
		t.Error("expected error for unknown parameter")
	}
}
