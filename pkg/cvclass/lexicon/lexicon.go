package lexicon

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon stores lemma groups: a canonical lemma and the inflected forms
// that reduce to it.
//
//	build    <- builds, building, built
//	analyze  <- analyzes, analyzing, analysis
//
// Normalize is a closed mapping: the canonical form of every group maps to
// itself, and chains (a -> b, b -> c) are resolved when groups are added,
// so applying Normalize twice never changes the result.
type Lexicon struct {
	// canonical -> all variants (including canonical itself)
	groups map[string][]string

	// variant -> canonical
	reverseIndex map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		groups:       make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// LoadFromYAML loads lemma groups from a YAML file.
//
// Expected format:
//
//	lemmas:
//	  - lemma: build
//	    forms: [builds, building, built]
//	  - lemma: manage
//	    forms: [manages, managing, managed]
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes lemma groups from YAML bytes.
func Parse(data []byte) (*Lexicon, error) {
	var config struct {
		Lemmas []struct {
			Lemma string   `yaml:"lemma"`
			Forms []string `yaml:"forms"`
		} `yaml:"lemmas"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	lex := New()
	for _, entry := range config.Lemmas {
		lex.AddGroup(entry.Lemma, entry.Forms)
	}
	return lex, nil
}

// AddGroup adds a lemma with its inflected forms. If the lemma is itself a
// form of an existing group, the new forms are attached to that group's
// lemma instead, keeping the mapping closed.
func (l *Lexicon) AddGroup(lemma string, forms []string) {
	lemma = strings.ToLower(strings.TrimSpace(lemma))
	if lemma == "" {
		return
	}
	if existing, ok := l.reverseIndex[lemma]; ok {
		lemma = existing
	}

	variants := l.groups[lemma]
	if len(variants) == 0 {
		variants = []string{lemma}
		l.reverseIndex[lemma] = lemma
	}
	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		seen[v] = true
	}

	for _, f := range forms {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		// A form that used to be a lemma folds its whole group into this one.
		if old, ok := l.groups[f]; ok && f != lemma {
			delete(l.groups, f)
			for _, v := range old {
				if !seen[v] {
					seen[v] = true
					variants = append(variants, v)
				}
				l.reverseIndex[v] = lemma
			}
		}
		variants = append(variants, f)
		l.reverseIndex[f] = lemma
	}

	l.groups[lemma] = variants
}

// Lookup reports whether the token is a known lemma or form.
func (l *Lexicon) Lookup(token string) (string, bool) {
	if l == nil {
		return "", false
	}
	lemma, ok := l.reverseIndex[token]
	return lemma, ok
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() Stats {
	total := 0
	for _, v := range l.groups {
		total += len(v)
	}
	return Stats{Groups: len(l.groups), Forms: total}
}

// Stats holds statistics about lexicon contents.
type Stats struct {
	Groups int // number of lemmas
	Forms  int // number of forms across all groups, lemmas included
}
