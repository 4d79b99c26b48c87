// Package lexical builds TF-IDF vectors over a fixed unigram and bigram
// vocabulary learned from normalized training text.
package lexical

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

// Config controls vocabulary construction.
type Config struct {
	MaxFeatures int `json:"max_features"` // V
	NGramMax    int `json:"ngram_max"`    // 1 = unigrams, 2 = unigrams + bigrams
	MinTokenLen int `json:"min_token_len"`
}

// DefaultConfig returns V=5000 over unigrams and bigrams.
func DefaultConfig() Config {
	return Config{MaxFeatures: 5000, NGramMax: 2, MinTokenLen: 2}
}

// Vectorizer maps normalized text to TF-IDF vectors. It is immutable after
// Fit and safe for concurrent use.
type Vectorizer struct {
	cfg   Config
	vocab []string
	idf   []float64
	index map[string]int
}

// Fit learns the vocabulary from a normalized corpus. Terms are ranked by
// document frequency (ties lexicographic) and the top MaxFeatures become
// columns in rank order.
func Fit(corpus []string, cfg Config) (*Vectorizer, error) {
	if cfg.MaxFeatures <= 0 {
		return nil, fmt.Errorf("lexical: max features %d: %w", cfg.MaxFeatures, internalerr.ErrInvalidConfig)
	}
	if cfg.NGramMax <= 0 {
		cfg.NGramMax = 1
	}
	if len(corpus) == 0 {
		return nil, fmt.Errorf("lexical: empty corpus: %w", internalerr.ErrInvalidInput)
	}

	counter := NewCounter()
	for _, doc := range corpus {
		counter.AddDocument(terms(doc, cfg))
	}
	vocab := counter.Ranked(cfg.MaxFeatures)
	if len(vocab) == 0 {
		return nil, fmt.Errorf("lexical: empty vocabulary: %w", internalerr.ErrInvalidInput)
	}

	n := float64(counter.TotalDocs())
	idf := make([]float64, len(vocab))
	for i, t := range vocab {
		idf[i] = math.Log((1+n)/(1+float64(counter.GetTermCount(t)))) + 1
	}
	return newVectorizer(cfg, vocab, idf), nil
}

func newVectorizer(cfg Config, vocab []string, idf []float64) *Vectorizer {
	index := make(map[string]int, len(vocab))
	for i, t := range vocab {
		index[t] = i
	}
	return &Vectorizer{cfg: cfg, vocab: vocab, idf: idf, index: index}
}

// Dim returns the vocabulary size.
func (v *Vectorizer) Dim() int { return len(v.vocab) }

// Config returns the configuration the vectorizer was fit with.
func (v *Vectorizer) Config() Config { return v.cfg }

// Vocabulary returns the terms in column order.
func (v *Vectorizer) Vocabulary() []string {
	out := make([]string, len(v.vocab))
	copy(out, v.vocab)
	return out
}

// TransformOne maps one normalized text to an L2-normalized TF-IDF vector.
// Out-of-vocabulary terms are dropped; empty text gives an empty vector.
func (v *Vectorizer) TransformOne(text string) Vector {
	tf := make(map[int]float64)
	for _, t := range terms(text, v.cfg) {
		if idx, ok := v.index[t]; ok {
			tf[idx]++
		}
	}

	vec := Vector{Dim: len(v.vocab), Indices: make([]int, 0, len(tf)), Values: make([]float64, 0, len(tf))}
	for idx := range tf {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)

	var norm float64
	for _, idx := range vec.Indices {
		w := tf[idx] * v.idf[idx]
		vec.Values = append(vec.Values, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec.Values {
			vec.Values[i] /= norm
		}
	}
	return vec
}

// Transform maps each text with TransformOne.
func (v *Vectorizer) Transform(texts []string) []Vector {
	out := make([]Vector, len(texts))
	for i, t := range texts {
		out[i] = v.TransformOne(t)
	}
	return out
}

func terms(text string, cfg Config) []string {
	var tokens []string
	for _, tok := range strings.Fields(text) {
		if len(tok) >= cfg.MinTokenLen {
			tokens = append(tokens, tok)
		}
	}
	out := make([]string, 0, len(tokens)*cfg.NGramMax)
	for n := 1; n <= cfg.NGramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

type vectorizerState struct {
	Config     Config    `json:"config"`
	Vocabulary []string  `json:"vocabulary"`
	IDF        []float64 `json:"idf"`
}

// MarshalJSON encodes the fitted state.
func (v *Vectorizer) MarshalJSON() ([]byte, error) {
	return json.Marshal(vectorizerState{Config: v.cfg, Vocabulary: v.vocab, IDF: v.idf})
}

// UnmarshalJSON restores a fitted vectorizer.
func (v *Vectorizer) UnmarshalJSON(data []byte) error {
	var st vectorizerState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	if len(st.Vocabulary) != len(st.IDF) {
		return fmt.Errorf("lexical: vocabulary %d vs idf %d: %w", len(st.Vocabulary), len(st.IDF), internalerr.ErrIncompatibleArtifacts)
	}
	*v = *newVectorizer(st.Config, st.Vocabulary, st.IDF)
	return nil
}
