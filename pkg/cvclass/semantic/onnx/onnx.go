// Package onnx runs a local sentence-transformer (e.g. all-MiniLM-L6-v2)
// exported to ONNX, with a HuggingFace tokenizer.json for tokenization and
// attention-masked mean pooling over the last hidden state.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Config locates the runtime library, model and tokenizer.
type Config struct {
	LibraryPath   string // onnxruntime shared library
	ModelPath     string // model.onnx
	TokenizerPath string // tokenizer.json
	Dim           int    // hidden size, 384 for MiniLM-L6
	MaxSeqLen     int    // tokens per text including special tokens
	Normalize     bool   // L2-normalize pooled vectors; MiniLM pooling leaves them unnormalized
}

var (
	envOnce sync.Once
	envErr  error
)

func initEnvironment(lib string) error {
	envOnce.Do(func() {
		if lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if !ort.IsInitialized() {
			envErr = ort.InitializeEnvironment()
		}
	})
	return envErr
}

// Encoder embeds texts one at a time through a shared session.
type Encoder struct {
	cfg     Config
	tk      *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
	modelID string

	mu sync.Mutex // serializes session runs
}

// New loads the tokenizer and creates an inference session.
func New(cfg Config) (*Encoder, error) {
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, errors.New("onnx encoder: model and tokenizer paths are required")
	}
	if cfg.Dim <= 0 {
		cfg.Dim = 384
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 256
	}

	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("init onnxruntime: %w", err)
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", cfg.TokenizerPath, err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"}, nil)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	name := filepath.Base(filepath.Dir(cfg.ModelPath))
	return &Encoder{
		cfg:     cfg,
		tk:      tk,
		session: session,
		modelID: modelID(name, cfg.Dim, cfg.Normalize),
	}, nil
}

// Dim returns the hidden size.
func (e *Encoder) Dim() int { return e.cfg.Dim }

// ModelID returns "onnx/<model dir>@<dim>", with a "+l2" suffix when the
// pooled vectors are normalized.
func (e *Encoder) ModelID() string { return e.modelID }

func modelID(name string, dim int, normalize bool) string {
	id := fmt.Sprintf("onnx/%s@%d", name, dim)
	if normalize {
		id += "+l2"
	}
	return id
}

// Close releases the session.
func (e *Encoder) Close() error {
	return e.session.Destroy()
}

// Encode embeds each text. Cancellation is checked between texts.
func (e *Encoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.encodeOne(t)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (e *Encoder) encodeOne(text string) ([]float32, error) {
	enc, err := e.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	ids, typeIDs, mask := truncate(enc.Ids, e.cfg.MaxSeqLen), truncate(enc.TypeIds, e.cfg.MaxSeqLen), truncate(enc.AttentionMask, e.cfg.MaxSeqLen)
	n := int64(len(ids))
	if n == 0 {
		return make([]float32, e.cfg.Dim), nil
	}

	shape := ort.NewShape(1, n)
	idsT, err := ort.NewTensor(shape, toInt64(ids))
	if err != nil {
		return nil, err
	}
	defer idsT.Destroy()
	maskT, err := ort.NewTensor(shape, toInt64(mask))
	if err != nil {
		return nil, err
	}
	defer maskT.Destroy()
	typeT, err := ort.NewTensor(shape, toInt64(typeIDs))
	if err != nil {
		return nil, err
	}
	defer typeT.Destroy()
	hidden, err := ort.NewEmptyTensor[float32](ort.NewShape(1, n, int64(e.cfg.Dim)))
	if err != nil {
		return nil, err
	}
	defer hidden.Destroy()

	e.mu.Lock()
	err = e.session.Run([]ort.Value{idsT, maskT, typeT}, []ort.Value{hidden})
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	return meanPool(hidden.GetData(), mask, e.cfg.Dim, e.cfg.Normalize), nil
}

// meanPool averages token vectors where mask is 1.
func meanPool(hidden []float32, mask []int, dim int, normalize bool) []float32 {
	out := make([]float32, dim)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for j, x := range row {
			out[j] += x
		}
		count++
	}
	if count == 0 {
		return out
	}
	var norm float64
	for j := range out {
		out[j] /= count
		norm += float64(out[j]) * float64(out[j])
	}
	if normalize && norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for j := range out {
			out[j] *= inv
		}
	}
	return out
}

// truncate keeps the first limit-1 entries and the final one, so a
// trailing [SEP] survives.
func truncate(v []int, limit int) []int {
	if len(v) <= limit {
		return v
	}
	out := make([]int, 0, limit)
	out = append(out, v[:limit-1]...)
	return append(out, v[len(v)-1])
}

func toInt64(v []int) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(x)
	}
	return out
}
