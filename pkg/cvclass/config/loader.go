package config

import (
	"fmt"

	"github.com/cognicore/cvclass/pkg/cvclass/category"
	"github.com/cognicore/cvclass/pkg/cvclass/lexicon"
	"github.com/cognicore/cvclass/pkg/cvclass/normalize"
	"github.com/cognicore/cvclass/pkg/cvclass/stoplist"
)

// Loader loads all resource files and constructs components
type Loader struct {
	StoplistPath     string
	LemmasPath       string
	ContractionsPath string
	CategoriesPath   string
}

// Components holds all loaded configuration components
type Components struct {
	Normalizer *normalize.Normalizer
	Lexicon    *lexicon.Lexicon
	Stopwords  []string
	Categories *category.Set // nil when no categories file is configured
}

// Load reads all resource files and returns initialized components.
// Missing paths fall back to the built-in English resources.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}
	var opts []normalize.Option

	// Load stoplist
	if l.StoplistPath != "" {
		sl, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Stopwords = sl.Words()
	} else {
		comp.Stopwords = stoplist.ForLanguage("en")
	}
	opts = append(opts, normalize.WithStopwords(comp.Stopwords))

	// Load lemma lexicon
	if l.LemmasPath != "" {
		lex, err := lexicon.LoadFromYAML(l.LemmasPath)
		if err != nil {
			return nil, fmt.Errorf("load lemmas: %w", err)
		}
		comp.Lexicon = lex
	} else {
		comp.Lexicon = lexicon.New()
	}
	opts = append(opts, normalize.WithLexicon(comp.Lexicon))

	// Load contractions
	if l.ContractionsPath != "" {
		c, err := LoadContractions(l.ContractionsPath)
		if err != nil {
			return nil, fmt.Errorf("load contractions: %w", err)
		}
		opts = append(opts, normalize.WithContractions(c.Contractions))
	}

	// Load categories
	if l.CategoriesPath != "" {
		set, err := LoadCategories(l.CategoriesPath)
		if err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
		comp.Categories = set
	}

	comp.Normalizer = normalize.New(opts...)
	return comp, nil
}
