// Package artifact bundles everything inference needs into one versioned
// set: the vectorizer, the semantic reducer, the selected column indices,
// the trained model and the category mapping it was trained against.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cognicore/cvclass/pkg/cvclass/category"
	"github.com/cognicore/cvclass/pkg/cvclass/features"
	"github.com/cognicore/cvclass/pkg/cvclass/gbm"
	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/lexical"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic"
	"github.com/cognicore/cvclass/pkg/cvclass/store"
)

// Blob kinds.
const (
	KindVectorizer = "vectorizer"
	KindReducer    = "reducer"
	KindSelector   = "selector"
	KindModel      = "model"
)

var requiredKinds = []string{KindVectorizer, KindReducer, KindSelector, KindModel}

// EncoderInfo identifies the sentence encoder the set was trained with.
type EncoderInfo struct {
	ModelID string `json:"model_id"`
	Dim     int    `json:"dim"`
}

// Manifest describes a set. It is stored as the set header.
type Manifest struct {
	ID                string              `json:"id"`
	CreatedAt         time.Time           `json:"created_at"`
	Encoder           EncoderInfo         `json:"encoder"`
	Layout            features.Layout     `json:"layout"`
	Selected          int                 `json:"selected"` // K
	Categories        []category.Category `json:"categories"`
	Params            gbm.Params          `json:"params"`
	PreliminaryParams gbm.Params          `json:"preliminary_params"`
	TrainRows         int                 `json:"train_rows"`
	TestRows          int                 `json:"test_rows"`
	ExcludedRows      int                 `json:"excluded_rows"`
	LabelCounts       map[string]int      `json:"label_counts,omitempty"`
	Accuracy          float64             `json:"accuracy"`
}

// Set is a loaded, validated artifact set. It is never modified after
// Validate succeeds.
type Set struct {
	Manifest   Manifest
	Vectorizer *lexical.Vectorizer
	Reducer    *semantic.Reducer
	Selector   *features.Selector
	Model      *gbm.Model
	Categories *category.Set
}

// Validate checks that the artifacts fit together: widths chain from the
// encoder through the layout and selector to the model, and every model
// class is a known category.
func (s *Set) Validate() error {
	switch {
	case s.Vectorizer == nil:
		return fmt.Errorf("set %s: %s: %w", s.Manifest.ID, KindVectorizer, internalerr.ErrMissingArtifact)
	case s.Reducer == nil:
		return fmt.Errorf("set %s: %s: %w", s.Manifest.ID, KindReducer, internalerr.ErrMissingArtifact)
	case s.Selector == nil:
		return fmt.Errorf("set %s: %s: %w", s.Manifest.ID, KindSelector, internalerr.ErrMissingArtifact)
	case s.Model == nil:
		return fmt.Errorf("set %s: %s: %w", s.Manifest.ID, KindModel, internalerr.ErrMissingArtifact)
	case s.Categories == nil:
		return fmt.Errorf("set %s: categories: %w", s.Manifest.ID, internalerr.ErrMissingArtifact)
	}

	m := s.Manifest
	mismatch := func(what string, got, want int) error {
		return fmt.Errorf("set %s: %s is %d, want %d: %w", m.ID, what, got, want, internalerr.ErrIncompatibleArtifacts)
	}
	if err := s.Reducer.Validate(); err != nil {
		return err
	}
	if s.Vectorizer.Dim() != m.Layout.Lexical {
		return mismatch("vocabulary size", s.Vectorizer.Dim(), m.Layout.Lexical)
	}
	if s.Reducer.OutputDim != m.Layout.Semantic {
		return mismatch("reduced width", s.Reducer.OutputDim, m.Layout.Semantic)
	}
	if s.Reducer.InputDim != m.Encoder.Dim {
		return mismatch("reducer input width", s.Reducer.InputDim, m.Encoder.Dim)
	}
	if s.Selector.Width != m.Layout.Width() {
		return mismatch("selector width", s.Selector.Width, m.Layout.Width())
	}
	if err := s.Selector.Validate(); err != nil {
		return fmt.Errorf("set %s: %w", m.ID, err)
	}
	if s.Selector.K() != m.Selected {
		return mismatch("selected columns", s.Selector.K(), m.Selected)
	}
	if err := s.Model.Validate(); err != nil {
		return fmt.Errorf("set %s: %w", m.ID, err)
	}
	if s.Model.NumFeature != s.Selector.K() {
		return mismatch("model features", s.Model.NumFeature, s.Selector.K())
	}
	if len(m.Categories) > 0 {
		recorded, err := category.NewSet(m.Categories)
		if err != nil || !recorded.Equal(s.Categories) {
			return fmt.Errorf("set %s: manifest categories differ from the category set: %w", m.ID, internalerr.ErrIncompatibleArtifacts)
		}
	}
	for _, code := range s.Model.Classes {
		if _, err := s.Categories.Label(code); err != nil {
			return fmt.Errorf("set %s: model class: %v: %w", m.ID, err, internalerr.ErrIncompatibleArtifacts)
		}
	}
	return nil
}

// Save validates s, assigns an id when it has none and writes the set.
func Save(ctx context.Context, st store.Store, s *Set) (string, error) {
	if s.Manifest.CreatedAt.IsZero() {
		s.Manifest.CreatedAt = time.Now().UTC()
	}
	if s.Manifest.ID == "" {
		s.Manifest.ID = NewID(s.Manifest.CreatedAt)
	}
	if s.Categories != nil {
		s.Manifest.Categories = s.Categories.Categories()
	}
	if err := s.Validate(); err != nil {
		return "", err
	}

	header, err := json.Marshal(s.Manifest)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	blobs := make([]store.Blob, 0, len(requiredKinds))
	for _, item := range []struct {
		kind string
		v    any
	}{
		{KindVectorizer, s.Vectorizer},
		{KindReducer, s.Reducer},
		{KindSelector, s.Selector},
		{KindModel, s.Model},
	} {
		b, err := encodeBlob(item.kind, item.v)
		if err != nil {
			return "", err
		}
		blobs = append(blobs, b)
	}

	rec := store.SetRecord{ID: s.Manifest.ID, CreatedAt: s.Manifest.CreatedAt, Manifest: header}
	if err := st.PutSet(ctx, rec, blobs); err != nil {
		return "", fmt.Errorf("store set %s: %w", s.Manifest.ID, err)
	}
	return s.Manifest.ID, nil
}

// Load reads and validates a set. A set with any blob missing is refused.
func Load(ctx context.Context, st store.Store, id string) (*Set, error) {
	rec, err := st.GetSet(ctx, id)
	if err != nil {
		return nil, err
	}
	manifest, err := decodeManifest(rec)
	if err != nil {
		return nil, err
	}
	blobs, err := st.GetBlobs(ctx, id)
	if err != nil {
		return nil, err
	}
	byKind := make(map[string]store.Blob, len(blobs))
	for _, b := range blobs {
		byKind[b.Kind] = b
	}
	for _, kind := range requiredKinds {
		if _, ok := byKind[kind]; !ok {
			return nil, fmt.Errorf("set %s: %s: %w", id, kind, internalerr.ErrMissingArtifact)
		}
	}

	s := &Set{
		Manifest:   manifest,
		Vectorizer: &lexical.Vectorizer{},
		Reducer:    &semantic.Reducer{},
		Selector:   &features.Selector{},
		Model:      &gbm.Model{},
	}
	if err := decodeBlob(byKind[KindVectorizer], s.Vectorizer); err != nil {
		return nil, err
	}
	if err := decodeBlob(byKind[KindReducer], s.Reducer); err != nil {
		return nil, err
	}
	if err := decodeBlob(byKind[KindSelector], s.Selector); err != nil {
		return nil, err
	}
	if err := decodeBlob(byKind[KindModel], s.Model); err != nil {
		return nil, err
	}
	s.Categories, err = category.NewSet(manifest.Categories)
	if err != nil {
		return nil, fmt.Errorf("set %s: %v: %w", id, err, internalerr.ErrIncompatibleArtifacts)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadLatest loads the newest set.
func LoadLatest(ctx context.Context, st store.Store) (*Set, error) {
	id, err := st.LatestID(ctx)
	if err != nil {
		return nil, err
	}
	return Load(ctx, st, id)
}

// List returns the manifests of up to limit sets, newest first.
func List(ctx context.Context, st store.Store, limit int) ([]Manifest, error) {
	recs, err := st.ListSets(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Manifest, 0, len(recs))
	for _, rec := range recs {
		m, err := decodeManifest(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Resolve loads id, or the newest set when id is empty or "latest".
func Resolve(ctx context.Context, st store.Store, id string) (*Set, error) {
	if id == "" || id == "latest" {
		s, err := LoadLatest(ctx, st)
		if errors.Is(err, internalerr.ErrNotFound) {
			return nil, fmt.Errorf("no trained artifact set: %w", err)
		}
		return s, err
	}
	return Load(ctx, st, id)
}

// Describe returns the manifest of set id without loading its blobs.
func Describe(ctx context.Context, st store.Store, id string) (Manifest, error) {
	rec, err := st.GetSet(ctx, id)
	if err != nil {
		return Manifest{}, err
	}
	return decodeManifest(rec)
}

func decodeManifest(rec store.SetRecord) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(rec.Manifest, &m); err != nil {
		return Manifest{}, fmt.Errorf("set %s: manifest: %v: %w", rec.ID, err, internalerr.ErrIncompatibleArtifacts)
	}
	m.ID = rec.ID
	return m, nil
}
