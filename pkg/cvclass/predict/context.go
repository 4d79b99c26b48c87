// Package predict serves category predictions from a trained artifact set.
package predict

import (
	"context"
	"fmt"

	"github.com/cognicore/cvclass/pkg/cvclass/artifact"
	"github.com/cognicore/cvclass/pkg/cvclass/category"
	"github.com/cognicore/cvclass/pkg/cvclass/features"
	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/normalize"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic"
)

// Context is everything one prediction needs: the artifact set and the
// normalizer and embedder it was trained with. It is immutable and shared
// by concurrent requests without locking.
type Context struct {
	set        *artifact.Set
	normalizer *normalize.Normalizer
	embedder   *semantic.Embedder
}

// NewContext validates set and checks that emb is the encoder the set was
// trained with. A different encoder, even one of the same width, is an
// incompatibility: the reducer and model must be retrained for it.
func NewContext(set *artifact.Set, n *normalize.Normalizer, emb *semantic.Embedder) (*Context, error) {
	if set == nil || n == nil || emb == nil {
		return nil, fmt.Errorf("predict context: set, normalizer and embedder are required: %w", internalerr.ErrInvalidConfig)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	want := set.Manifest.Encoder
	if emb.ModelID() != want.ModelID || emb.Dim() != want.Dim {
		return nil, fmt.Errorf("set %s trained with encoder %s (dim %d), got %s (dim %d): %w",
			set.Manifest.ID, want.ModelID, want.Dim, emb.ModelID(), emb.Dim(), internalerr.ErrIncompatibleArtifacts)
	}
	return &Context{set: set, normalizer: n, embedder: emb}, nil
}

// SetID returns the id of the artifact set.
func (c *Context) SetID() string { return c.set.Manifest.ID }

// Manifest returns the artifact set manifest.
func (c *Context) Manifest() artifact.Manifest { return c.set.Manifest }

// Categories returns the category mapping of the set.
func (c *Context) Categories() *category.Set { return c.set.Categories }

// Normalize applies the normalizer the set was trained with.
func (c *Context) Normalize(raw string) string { return c.normalizer.Normalize(raw) }

// Features returns the selected feature row for normalized text: the
// same chain the training pipeline ran, without refitting anything.
func (c *Context) Features(ctx context.Context, normalized string) ([]float64, error) {
	lex := c.set.Vectorizer.TransformOne(normalized)
	emb, err := c.embedder.EmbedOne(ctx, normalized)
	if err != nil {
		return nil, err
	}
	sem, err := c.set.Reducer.ReduceOne(emb)
	if err != nil {
		return nil, err
	}
	row, err := features.ComposeOne(c.set.Manifest.Layout, lex, sem)
	if err != nil {
		return nil, err
	}
	return c.set.Selector.TransformOne(row)
}

// Probabilities returns one probability per model class for raw text,
// aligned with Classes.
func (c *Context) Probabilities(ctx context.Context, raw string) ([]float64, error) {
	row, err := c.Features(ctx, c.Normalize(raw))
	if err != nil {
		return nil, err
	}
	return c.set.Model.PredictProbaOne(row)
}

// Classes returns the category codes of the model outputs.
func (c *Context) Classes() []int {
	return append([]int(nil), c.set.Model.Classes...)
}
