// Package train runs the offline training pipeline: it turns a labeled
// corpus into a validated artifact set and an evaluation report.
package train

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/cvclass/pkg/cvclass/artifact"
	"github.com/cognicore/cvclass/pkg/cvclass/category"
	"github.com/cognicore/cvclass/pkg/cvclass/eval"
	"github.com/cognicore/cvclass/pkg/cvclass/features"
	"github.com/cognicore/cvclass/pkg/cvclass/gbm"
	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/lexical"
	"github.com/cognicore/cvclass/pkg/cvclass/normalize"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic"
	"github.com/cognicore/cvclass/pkg/cvclass/store"
)

// Config holds the pipeline settings.
type Config struct {
	Lexical           lexical.Config
	ReducedDim        int     // R
	Selected          int     // K
	TestRatio         float64 // held-out share per category
	Seed              uint64  // split seed
	Workers           int     // normalization and split-search workers
	Params            gbm.Params
	PreliminaryParams gbm.Params
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Lexical:           lexical.DefaultConfig(),
		ReducedDim:        256,
		Selected:          2000,
		TestRatio:         0.2,
		Seed:              42,
		Workers:           4,
		Params:            gbm.DefaultParams(),
		PreliminaryParams: gbm.PreliminaryParams(),
	}
}

func (c Config) validate() error {
	switch {
	case c.ReducedDim <= 0:
		return fmt.Errorf("reduced dim %d: %w", c.ReducedDim, internalerr.ErrInvalidConfig)
	case c.Selected <= 0:
		return fmt.Errorf("selected %d: %w", c.Selected, internalerr.ErrInvalidConfig)
	case c.TestRatio <= 0 || c.TestRatio >= 1:
		return fmt.Errorf("test ratio %g: %w", c.TestRatio, internalerr.ErrInvalidConfig)
	}
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	if err := c.PreliminaryParams.Validate(); err != nil {
		return fmt.Errorf("preliminary params: %w", err)
	}
	return nil
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Trainer) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithCategories fixes the category enumeration. Without it, codes are
// assigned to the sorted unique corpus labels.
func WithCategories(set *category.Set) Option {
	return func(t *Trainer) { t.categories = set }
}

// Trainer wires the featurizers, the boosters and the artifact store.
type Trainer struct {
	normalizer *normalize.Normalizer
	embedder   *semantic.Embedder
	store      store.Store
	categories *category.Set
	cfg        Config
	logger     *zap.Logger
}

// New creates a Trainer. The store may be nil, in which case Run returns
// the set without persisting it.
func New(n *normalize.Normalizer, emb *semantic.Embedder, st store.Store, cfg Config, opts ...Option) (*Trainer, error) {
	if n == nil || emb == nil {
		return nil, fmt.Errorf("trainer: normalizer and embedder are required: %w", internalerr.ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	t := &Trainer{normalizer: n, embedder: emb, store: st, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Result is the outcome of one training run.
type Result struct {
	Set    *artifact.Set
	Report *eval.Report
	Issues []RowIssue // corpus rows left out, with reasons
}

// Run trains on corpus. Rows with reader issues or labels outside the
// configured categories are excluded and reported, never silently dropped.
func (t *Trainer) Run(ctx context.Context, corpus *Corpus) (*Result, error) {
	start := time.Now()
	issues := append([]RowIssue(nil), corpus.Issues...)

	cats := t.categories
	if cats == nil {
		labels := make([]string, len(corpus.Examples))
		for i, ex := range corpus.Examples {
			labels[i] = ex.Label
		}
		var err error
		if cats, err = category.FromLabels(labels); err != nil {
			return nil, fmt.Errorf("derive categories: %w", err)
		}
	}

	var (
		docs   []normalize.Document
		codes  []int
		counts = make(map[string]int)
	)
	for _, ex := range corpus.Examples {
		code, ok := cats.Code(ex.Label)
		if !ok {
			issues = append(issues, RowIssue{Line: ex.Line, Reason: IssueUnknownLabel})
			continue
		}
		docs = append(docs, normalize.Document{ID: ex.ID, Text: ex.Text})
		codes = append(codes, code)
		counts[ex.Label]++
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Line < issues[j].Line })

	t.logger.Info("corpus loaded",
		zap.Int("included", len(docs)),
		zap.Int("excluded", len(issues)),
		zap.Int("categories", len(counts)))
	for _, c := range cats.Categories() {
		t.logger.Debug("label inventory", zap.String("label", c.Label), zap.Int("code", c.Code), zap.Int("rows", counts[c.Label]))
	}
	if len(docs) < 2 || len(counts) < 2 {
		return nil, fmt.Errorf("train: %d usable rows over %d categories: %w", len(docs), len(counts), internalerr.ErrInvalidInput)
	}

	texts, err := t.normalizer.NormalizeAll(ctx, docs, t.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	vec, err := lexical.Fit(texts, t.cfg.Lexical)
	if err != nil {
		return nil, err
	}
	lex := vec.Transform(texts)
	t.logger.Info("lexical features fitted", zap.Int("vocabulary", vec.Dim()))

	emb, err := t.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	reducer, err := semantic.FitReducer(emb, t.cfg.ReducedDim)
	if err != nil {
		return nil, err
	}
	sem, err := reducer.Reduce(emb)
	if err != nil {
		return nil, err
	}
	t.logger.Info("semantic features fitted",
		zap.String("encoder", t.embedder.ModelID()),
		zap.Int("components", len(reducer.Components)),
		zap.Int("width", reducer.OutputDim))

	layout := features.Layout{Lexical: vec.Dim(), Semantic: reducer.OutputDim}
	rows, err := features.Compose(layout, lex, sem)
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := eval.StratifiedSplit(codes, t.cfg.TestRatio, t.cfg.Seed)
	if err != nil {
		return nil, err
	}
	trainRows, trainLabels := eval.Take(rows, trainIdx), eval.Take(codes, trainIdx)
	testRows, testLabels := eval.Take(rows, testIdx), eval.Take(codes, testIdx)
	classes := uniqueSorted(trainLabels)
	t.logger.Info("split", zap.Int("train", len(trainIdx)), zap.Int("test", len(testIdx)), zap.Int("classes", len(classes)))

	prelim := t.withWorkers(t.cfg.PreliminaryParams)
	importances, err := RankImportances(ctx, trainRows, trainLabels, classes, prelim, gbm.WithLogger(t.logger.Named("preliminary")))
	if err != nil {
		return nil, err
	}
	sel, err := features.FitSelector(layout.Width(), importances, t.cfg.Selected)
	if err != nil {
		return nil, err
	}
	selTrain, err := sel.Transform(trainRows)
	if err != nil {
		return nil, err
	}

	params := t.withWorkers(t.cfg.Params)
	model, err := gbm.Train(ctx, selTrain, trainLabels, classes, params, gbm.WithLogger(t.logger.Named("final")))
	if err != nil {
		return nil, fmt.Errorf("final model: %w", err)
	}

	report := &eval.Report{}
	if len(testRows) > 0 {
		selTest, err := sel.Transform(testRows)
		if err != nil {
			return nil, err
		}
		if report, err = eval.Evaluate(model, selTest, testLabels, cats); err != nil {
			return nil, err
		}
	}
	t.logger.Info("evaluation", zap.Float64("accuracy", report.Accuracy), zap.Float64("macro_f1", report.MacroAvg.F1))

	set := &artifact.Set{
		Manifest: artifact.Manifest{
			Encoder:           artifact.EncoderInfo{ModelID: t.embedder.ModelID(), Dim: t.embedder.Dim()},
			Layout:            layout,
			Categories:        cats.Categories(),
			Selected:          sel.K(),
			Params:            params,
			PreliminaryParams: prelim,
			TrainRows:         len(trainIdx),
			TestRows:          len(testIdx),
			ExcludedRows:      len(issues),
			LabelCounts:       counts,
			Accuracy:          report.Accuracy,
		},
		Vectorizer: vec,
		Reducer:    reducer,
		Selector:   sel,
		Model:      model,
		Categories: cats,
	}

	if t.store != nil {
		id, err := artifact.Save(ctx, t.store, set)
		if err != nil {
			return nil, err
		}
		if err := artifact.SaveReport(ctx, t.store, id, report); err != nil {
			return nil, err
		}
		t.logger.Info("artifact set stored", zap.String("id", id), zap.Duration("elapsed", time.Since(start)))
	} else if err := set.Validate(); err != nil {
		return nil, err
	}

	return &Result{Set: set, Report: report, Issues: issues}, nil
}

func (t *Trainer) withWorkers(p gbm.Params) gbm.Params {
	if p.Workers <= 0 {
		p.Workers = t.cfg.Workers
	}
	return p
}

func uniqueSorted(codes []int) []int {
	seen := make(map[int]struct{}, len(codes))
	var out []int
	for _, c := range codes {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Ints(out)
	return out
}
