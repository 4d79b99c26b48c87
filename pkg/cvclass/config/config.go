package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/cvclass/pkg/cvclass/category"
	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/stoplist"
)

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Language string   `yaml:"language"` // built-in base list, e.g. "en"; empty for none
	Terms    []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	var sl Stoplist
	if err := readYAML(path, &sl); err != nil {
		return nil, err
	}
	if sl.Language != "" && stoplist.ForLanguage(sl.Language) == nil {
		return nil, fmt.Errorf("stoplist %s: unknown language %q: %w", path, sl.Language, internalerr.ErrInvalidConfig)
	}
	return &sl, nil
}

// Words returns the base language list followed by the extra terms.
func (s *Stoplist) Words() []string {
	words := stoplist.ForLanguage(s.Language)
	if s.Language == "" {
		words = nil
	}
	return append(words, s.Terms...)
}

// Contractions maps contraction forms to their expansions.
type Contractions struct {
	Contractions map[string]string `yaml:"contractions"`
}

// LoadContractions loads a contraction table from a YAML file.
//
// Expected format:
//
//	contractions:
//	  "don't": do not
//	  "i'm": i am
func LoadContractions(path string) (*Contractions, error) {
	var c Contractions
	if err := readYAML(path, &c); err != nil {
		return nil, err
	}
	for k, v := range c.Contractions {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("contractions %s: empty entry %q: %w", path, k, internalerr.ErrInvalidConfig)
		}
	}
	return &c, nil
}

// Categories is the persisted code -> label enumeration.
type Categories struct {
	Categories []category.Category `yaml:"categories"`
}

// LoadCategories loads and validates a category enumeration.
//
// Expected format:
//
//	categories:
//	  - code: 0
//	    label: Accountant
//	  - code: 1
//	    label: Python Developer
func LoadCategories(path string) (*category.Set, error) {
	var c Categories
	if err := readYAML(path, &c); err != nil {
		return nil, err
	}
	set, err := category.NewSet(c.Categories)
	if err != nil {
		return nil, fmt.Errorf("categories %s: %w", path, err)
	}
	return set, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
