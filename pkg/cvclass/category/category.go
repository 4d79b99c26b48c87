// Package category holds the closed enumeration of résumé categories.
package category

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

// Category pairs a classifier class code with its display label.
type Category struct {
	Code  int    `json:"code" yaml:"code"`
	Label string `json:"label" yaml:"label"`
}

// Set is a closed code <-> label mapping. It is immutable once built.
type Set struct {
	byCode  map[int]string
	byLabel map[string]int
	cats    []Category // sorted by code
}

// NewSet validates cats and builds a Set. Codes must be non-negative and
// unique, labels non-empty and unique.
func NewSet(cats []Category) (*Set, error) {
	if len(cats) == 0 {
		return nil, fmt.Errorf("category set: empty: %w", internalerr.ErrInvalidConfig)
	}
	s := &Set{
		byCode:  make(map[int]string, len(cats)),
		byLabel: make(map[string]int, len(cats)),
		cats:    make([]Category, 0, len(cats)),
	}
	for _, c := range cats {
		label := strings.TrimSpace(c.Label)
		if label == "" {
			return nil, fmt.Errorf("category %d: empty label: %w", c.Code, internalerr.ErrInvalidConfig)
		}
		if c.Code < 0 {
			return nil, fmt.Errorf("category %q: negative code %d: %w", label, c.Code, internalerr.ErrInvalidConfig)
		}
		if _, dup := s.byCode[c.Code]; dup {
			return nil, fmt.Errorf("category code %d: duplicate: %w", c.Code, internalerr.ErrInvalidConfig)
		}
		if _, dup := s.byLabel[label]; dup {
			return nil, fmt.Errorf("category %q: duplicate label: %w", label, internalerr.ErrInvalidConfig)
		}
		s.byCode[c.Code] = label
		s.byLabel[label] = c.Code
		s.cats = append(s.cats, Category{Code: c.Code, Label: label})
	}
	sort.Slice(s.cats, func(i, j int) bool { return s.cats[i].Code < s.cats[j].Code })
	return s, nil
}

// FromLabels assigns codes 0..n-1 to the sorted unique non-empty labels.
func FromLabels(labels []string) (*Set, error) {
	uniq := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l != "" {
			uniq[l] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(uniq))
	for l := range uniq {
		sorted = append(sorted, l)
	}
	sort.Strings(sorted)

	cats := make([]Category, len(sorted))
	for i, l := range sorted {
		cats[i] = Category{Code: i, Label: l}
	}
	return NewSet(cats)
}

// Label returns the label for code. Codes outside the set are an error,
// never a silent fallback.
func (s *Set) Label(code int) (string, error) {
	label, ok := s.byCode[code]
	if !ok {
		return "", fmt.Errorf("code %d: %w", code, internalerr.ErrUnknownCategoryCode)
	}
	return label, nil
}

// Code returns the code for a label.
func (s *Set) Code(label string) (int, bool) {
	code, ok := s.byLabel[strings.TrimSpace(label)]
	return code, ok
}

// Categories returns the categories ordered by code.
func (s *Set) Categories() []Category {
	out := make([]Category, len(s.cats))
	copy(out, s.cats)
	return out
}

// Len returns the number of categories.
func (s *Set) Len() int { return len(s.cats) }

// Equal reports whether both sets map the same codes to the same labels.
func (s *Set) Equal(o *Set) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.cats) != len(o.cats) {
		return false
	}
	for i := range s.cats {
		if s.cats[i] != o.cats[i] {
			return false
		}
	}
	return true
}
