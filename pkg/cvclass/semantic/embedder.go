package semantic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cognicore/cvclass/internal/par"
	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

// EmbedderConfig controls batching and call limits.
type EmbedderConfig struct {
	BatchSize int           // texts per encoder call, default 100
	Workers   int           // concurrent encoder calls, default 1
	Timeout   time.Duration // per call; 0 disables
	Rate      float64       // encoder calls per second; 0 disables
	CacheSize int           // cached embeddings; 0 disables
}

// DefaultEmbedderConfig returns batches of 100 on a single worker.
func DefaultEmbedderConfig() EmbedderConfig {
	return EmbedderConfig{BatchSize: 100, Workers: 1}
}

// Embedder batches texts through an Encoder. Batch size and worker count
// affect throughput only, never the returned values.
type Embedder struct {
	enc     Encoder
	cfg     EmbedderConfig
	limiter *rate.Limiter
	cache   *lru.Cache[uint64, []float32]
	logger  *zap.Logger
}

// NewEmbedder wraps enc.
func NewEmbedder(enc Encoder, cfg EmbedderConfig, logger *zap.Logger) (*Embedder, error) {
	if enc == nil {
		return nil, fmt.Errorf("embedder: nil encoder: %w", internalerr.ErrInvalidConfig)
	}
	if enc.Dim() <= 0 {
		return nil, fmt.Errorf("embedder: encoder %s reports width %d: %w", enc.ModelID(), enc.Dim(), internalerr.ErrInvalidConfig)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbedderConfig().BatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Embedder{enc: enc, cfg: cfg, logger: logger}
	if cfg.Rate > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[uint64, []float32](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("embedder cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Dim returns the encoder width E.
func (e *Embedder) Dim() int { return e.enc.Dim() }

// ModelID returns the wrapped encoder's model id.
func (e *Embedder) ModelID() string { return e.enc.ModelID() }

// Embed encodes texts and returns index-aligned float64 vectors of width
// Dim(). A call that exceeds the configured timeout fails with
// ErrEncodingTimeout; it is not retried.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))

	var missing []int
	for i, t := range texts {
		if v, ok := e.cached(t); ok {
			out[i] = widen(v)
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	batches := par.Chunk(missing, e.cfg.BatchSize)
	start := time.Now()
	results, err := par.Map(ctx, batches, e.cfg.Workers, func(ctx context.Context, b int, idx []int) ([][]float32, error) {
		batch := make([]string, len(idx))
		for j, i := range idx {
			batch[j] = texts[i]
		}
		return e.encodeBatch(ctx, b, batch)
	})
	if err != nil {
		return nil, err
	}

	for b, idx := range batches {
		for j, i := range idx {
			v := results[b][j]
			e.store(texts[i], v)
			out[i] = widen(v)
		}
	}
	e.logger.Debug("embedded texts",
		zap.String("model", e.enc.ModelID()),
		zap.Int("texts", len(texts)),
		zap.Int("encoded", len(missing)),
		zap.Int("batches", len(batches)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// EmbedOne encodes a single text.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float64, error) {
	out, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *Embedder) encodeBatch(ctx context.Context, b int, batch []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("encoder rate limit: %w", err)
		}
	}

	callCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	vecs, err := e.enc.Encode(callCtx, batch)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("batch %d (%d texts) after %s: %w", b, len(batch), e.cfg.Timeout, internalerr.ErrEncodingTimeout)
		}
		return nil, fmt.Errorf("encode batch %d: %w", b, err)
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("encode batch %d: %d vectors for %d texts: %w", b, len(vecs), len(batch), internalerr.ErrShapeMismatch)
	}
	for j, v := range vecs {
		if len(v) != e.enc.Dim() {
			return nil, fmt.Errorf("encode batch %d item %d: width %d, want %d: %w", b, j, len(v), e.enc.Dim(), internalerr.ErrShapeMismatch)
		}
	}
	return vecs, nil
}

func (e *Embedder) key(text string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(e.enc.ModelID())
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(text)
	return d.Sum64()
}

func (e *Embedder) cached(text string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(e.key(text))
}

func (e *Embedder) store(text string, v []float32) {
	if e.cache != nil {
		e.cache.Add(e.key(text), v)
	}
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
