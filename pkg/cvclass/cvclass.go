// Package cvclass classifies résumé text into professional categories.
//
// An Engine ties together the text normalizer, the sentence embedder and
// an artifact store. Train fits a new artifact set from a labeled corpus;
// Classify serves the currently loaded set, which Reload or Train replace
// without interrupting requests in flight.
package cvclass

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cognicore/cvclass/internal/logger"
	"github.com/cognicore/cvclass/pkg/cvclass/artifact"
	"github.com/cognicore/cvclass/pkg/cvclass/category"
	"github.com/cognicore/cvclass/pkg/cvclass/eval"
	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/normalize"
	"github.com/cognicore/cvclass/pkg/cvclass/predict"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic"
	"github.com/cognicore/cvclass/pkg/cvclass/store"
	"github.com/cognicore/cvclass/pkg/cvclass/train"
)

// Engine is the classifier facade.
type Engine struct {
	store      store.Store
	normalizer *normalize.Normalizer
	embedder   *semantic.Embedder
	encoder    semantic.Encoder
	categories *category.Set
	trainCfg   train.Config
	topN       int
	logger     *zap.Logger
	tracer     trace.TracerProvider

	mu  sync.Mutex // guards creation of svc
	svc *predict.Service
}

// Options configures an Engine.
type Options struct {
	Store      store.Store
	Normalizer *normalize.Normalizer // default: normalize.New()
	Encoder    semantic.Encoder
	Embedder   semantic.EmbedderConfig
	Categories *category.Set // optional fixed category enumeration
	Train      train.Config // zero value: train.DefaultConfig()
	TopN       int
	Logger     *zap.Logger

	// TracerProvider receives the prediction spans; nil uses the global one.
	TracerProvider trace.TracerProvider
}

// New creates an Engine. No artifact set is loaded; call Reload or Train.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil || opts.Encoder == nil {
		return nil, fmt.Errorf("engine: store and encoder are required: %w", internalerr.ErrInvalidConfig)
	}
	log := logger.OrNop(opts.Logger)
	emb, err := semantic.NewEmbedder(opts.Encoder, opts.Embedder, log.Named("embed"))
	if err != nil {
		return nil, err
	}
	n := opts.Normalizer
	if n == nil {
		n = normalize.New()
	}
	cfg := opts.Train
	if cfg.ReducedDim == 0 && cfg.Selected == 0 {
		cfg = train.DefaultConfig()
	}
	return &Engine{
		store:      opts.Store,
		normalizer: n,
		embedder:   emb,
		encoder:    opts.Encoder,
		categories: opts.Categories,
		trainCfg:   cfg,
		topN:       opts.TopN,
		logger:     log,
		tracer:     opts.TracerProvider,
	}, nil
}

// Close releases the store and the encoder when it holds resources.
func (e *Engine) Close() error {
	var errs []error
	if c, ok := e.encoder.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, e.store.Close())
	return errors.Join(errs...)
}

// Reload loads set id ("" or "latest" for the newest) and serves it.
func (e *Engine) Reload(ctx context.Context, id string) (string, error) {
	set, err := artifact.Resolve(ctx, e.store, id)
	if err != nil {
		return "", err
	}
	return set.Manifest.ID, e.install(set)
}

// Train fits a new set from corpus, stores it and serves it.
func (e *Engine) Train(ctx context.Context, corpus *train.Corpus) (*train.Result, error) {
	var opts []train.Option
	opts = append(opts, train.WithLogger(e.logger.Named("train")))
	if e.categories != nil {
		opts = append(opts, train.WithCategories(e.categories))
	}
	tr, err := train.New(e.normalizer, e.embedder, e.store, e.trainCfg, opts...)
	if err != nil {
		return nil, err
	}
	res, err := tr.Run(ctx, corpus)
	if err != nil {
		return nil, err
	}
	if err := e.install(res.Set); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) install(set *artifact.Set) error {
	c, err := predict.NewContext(set, e.normalizer, e.embedder)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.svc == nil {
		e.svc, err = predict.NewService(c,
			predict.WithLogger(e.logger.Named("predict")),
			predict.WithTracerProvider(e.tracer))
		return err
	}
	_, err = e.svc.Swap(c)
	return err
}

func (e *Engine) service() (*predict.Service, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.svc == nil {
		return nil, fmt.Errorf("no artifact set loaded: %w", internalerr.ErrMissingArtifact)
	}
	return e.svc, nil
}

// SetID returns the id of the set being served, or "" when none is.
func (e *Engine) SetID() string {
	svc, err := e.service()
	if err != nil {
		return ""
	}
	return svc.Current().SetID()
}

// PredictTopN returns the n most likely categories for text. n <= 0 uses
// the configured default.
func (e *Engine) PredictTopN(ctx context.Context, text string, n int) ([]predict.Ranked, error) {
	svc, err := e.service()
	if err != nil {
		return nil, err
	}
	return svc.PredictTopN(ctx, text, e.n(n))
}

// Classify returns the n most likely categories in the serving form.
func (e *Engine) Classify(ctx context.Context, text string, n int) ([]predict.Result, error) {
	svc, err := e.service()
	if err != nil {
		return nil, err
	}
	return svc.Classify(ctx, text, e.n(n))
}

// Report returns the stored evaluation report of set id ("" or "latest"
// for the newest) with the set manifest.
func (e *Engine) Report(ctx context.Context, id string) (*eval.Report, artifact.Manifest, error) {
	if id == "" || id == "latest" {
		latest, err := e.store.LatestID(ctx)
		if err != nil {
			return nil, artifact.Manifest{}, err
		}
		id = latest
	}
	m, err := artifact.Describe(ctx, e.store, id)
	if err != nil {
		return nil, artifact.Manifest{}, err
	}
	r, err := artifact.LoadReport(ctx, e.store, id)
	if err != nil {
		return nil, m, err
	}
	return r, m, nil
}

// Sets lists stored sets, newest first.
func (e *Engine) Sets(ctx context.Context, limit int) ([]artifact.Manifest, error) {
	return artifact.List(ctx, e.store, limit)
}

func (e *Engine) n(n int) int {
	if n > 0 {
		return n
	}
	if e.topN > 0 {
		return e.topN
	}
	return predict.DefaultTopN
}
