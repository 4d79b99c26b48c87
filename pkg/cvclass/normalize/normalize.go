// Package normalize turns raw résumé text into the canonical token string
// consumed by both feature extractors. Training and prediction share the
// same Normalizer, so equal input always yields equal output.
package normalize

import (
	"context"
	"iter"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/cvclass/internal/par"
	"github.com/cognicore/cvclass/pkg/cvclass/lexicon"
	"github.com/cognicore/cvclass/pkg/cvclass/stoplist"
)

// Document is one raw input text.
type Document struct {
	ID   string
	Text string
}

// Normalizer applies the fixed cleaning pipeline:
//
//  1. lowercase (NFKC first)
//  2. collapse whitespace
//  3. remove digits
//  4. remove punctuation and symbols
//  5. replace non-ASCII runs with a space
//  6. expand contractions
//  7. remove stopwords
//  8. lemmatize
//
// A Normalizer is read-only after New and safe for concurrent use.
type Normalizer struct {
	stops        *stoplist.Manager
	lex          *lexicon.Lexicon
	contractions map[string][]string
}

// Option configures a Normalizer.
type Option func(*normalizerConfig)

type normalizerConfig struct {
	stopwords    []string
	lex          *lexicon.Lexicon
	contractions map[string]string
}

// WithStopwords replaces the default English stopword list.
func WithStopwords(words []string) Option {
	return func(c *normalizerConfig) { c.stopwords = words }
}

// WithLexicon sets the lemma table consulted before the suffix rules.
func WithLexicon(lex *lexicon.Lexicon) Option {
	return func(c *normalizerConfig) { c.lex = lex }
}

// WithContractions replaces the default contraction table. Keys and
// expansions may be written with apostrophes; they are cleaned the same
// way input text is.
func WithContractions(table map[string]string) Option {
	return func(c *normalizerConfig) { c.contractions = table }
}

// New builds a Normalizer. Without options it uses the English stopword
// list, the built-in contraction table and no lemma table.
func New(opts ...Option) *Normalizer {
	cfg := normalizerConfig{
		stopwords:    stoplist.English,
		contractions: defaultContractions,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	n := &Normalizer{
		lex:          cfg.lex,
		contractions: make(map[string][]string, len(cfg.contractions)),
	}

	stops := make([]string, 0, len(cfg.stopwords))
	for _, w := range cfg.stopwords {
		stops = append(stops, strings.Fields(clean(w))...)
	}
	n.stops = stoplist.NewManager(stops)

	for k, v := range cfg.contractions {
		key := strings.ReplaceAll(clean(k), " ", "")
		if key == "" {
			continue
		}
		n.contractions[key] = strings.Fields(clean(v))
	}
	if n.lex == nil {
		n.lex = lexicon.New()
	}
	return n
}

// Normalize returns the canonical form of raw: lowercase ASCII tokens
// separated by single spaces. Empty output is valid.
func (n *Normalizer) Normalize(raw string) string {
	tokens := strings.Fields(clean(raw))

	// 6. contractions
	expanded := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if exp, ok := n.contractions[tok]; ok {
			expanded = append(expanded, exp...)
			continue
		}
		expanded = append(expanded, tok)
	}

	out := make([]string, 0, len(expanded))
	for _, tok := range expanded {
		// 7. stopwords
		if n.stops.IsStop(tok) {
			continue
		}
		// 8. lemmas
		lemma := n.lemmatize(tok)
		if n.stops.IsStop(lemma) || n.isContraction(lemma) || n.isContraction(tok) {
			continue
		}
		out = append(out, lemma)
	}
	return strings.Join(out, " ")
}

// Stream lazily normalizes docs in order, yielding (index, text) pairs.
func (n *Normalizer) Stream(docs []Document) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i, d := range docs {
			if !yield(i, n.Normalize(d.Text)) {
				return
			}
		}
	}
}

// NormalizeAll normalizes docs on up to workers goroutines. The result is
// index-aligned with docs.
func (n *Normalizer) NormalizeAll(ctx context.Context, docs []Document, workers int) ([]string, error) {
	return par.Map(ctx, docs, workers, func(ctx context.Context, _ int, d Document) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return n.Normalize(d.Text), nil
	})
}

// IsStopword reports whether token is removed by this Normalizer.
func (n *Normalizer) IsStopword(token string) bool {
	return n.stops.IsStop(token)
}

func (n *Normalizer) isContraction(tok string) bool {
	_, ok := n.contractions[tok]
	return ok
}

// lemmatize maps a token to its lemma. Every lemma it returns maps to
// itself, which keeps Normalize idempotent.
func (n *Normalizer) lemmatize(tok string) string {
	if lemma, ok := n.lex.Lookup(tok); ok {
		if isCanonical(lemma) {
			return lemma
		}
		return tok
	}
	stem := stripSuffix(tok)
	if lemma, ok := n.lex.Lookup(stem); ok {
		if isCanonical(lemma) {
			return lemma
		}
	}
	return stem
}

// stripSuffix reduces regular English plurals. Its output is a fixed point:
// stripSuffix(stripSuffix(w)) == stripSuffix(w).
func stripSuffix(w string) string {
	switch {
	case strings.HasSuffix(w, "sses"):
		return w[:len(w)-2]
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 3 && strings.HasSuffix(w, "s") &&
		!strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us") && !strings.HasSuffix(w, "is"):
		return w[:len(w)-1]
	}
	return w
}

// clean runs steps 1 to 5 and returns space-separated tokens.
func clean(raw string) string {
	// 1. lowercase
	s := cases.Lower(language.Und).String(norm.NFKC.String(raw))
	// 2. whitespace
	s = strings.Join(strings.Fields(s), " ")
	// 3. digits
	s = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, s)
	// 4. punctuation and symbols
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsSpace(r) || r == '_' {
			return r
		}
		return -1
	}, s)
	// 5. non-ASCII
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if r > unicode.MaxASCII {
			if !inRun {
				b.WriteByte(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

func isCanonical(tok string) bool {
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if (c < 'a' || c > 'z') && c != '_' {
			return false
		}
	}
	return true
}
