package predict

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/cvclass/pkg/cvclass/category"
	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

// DefaultTopN is the number of categories returned when n <= 0.
const DefaultTopN = 3

// Ranked is one ranked category. Confidence is a percentage rounded to two
// decimals.
type Ranked struct {
	Code       int     `json:"code"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Result is the serving form of a Ranked entry.
type Result struct {
	Category   string `json:"category"`
	Confidence string `json:"confidence"` // e.g. "87.25%"
}

// Rank converts probabilities to rounded percentages and returns the n
// best, ordered by confidence descending with ties by ascending code.
// Every code must be in set.
func Rank(probs []float64, classes []int, set *category.Set, n int) ([]Ranked, error) {
	if len(probs) != len(classes) {
		return nil, fmt.Errorf("rank: %d probabilities for %d classes: %w", len(probs), len(classes), internalerr.ErrShapeMismatch)
	}
	if n <= 0 {
		n = DefaultTopN
	}

	all := make([]Ranked, len(probs))
	for i, p := range probs {
		all[i] = Ranked{Code: classes[i], Confidence: roundPercent(p)}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Confidence != all[j].Confidence {
			return all[i].Confidence > all[j].Confidence
		}
		return all[i].Code < all[j].Code
	})
	if len(all) > n {
		all = all[:n]
	}
	for i := range all {
		label, err := set.Label(all[i].Code)
		if err != nil {
			return nil, err
		}
		all[i].Category = label
	}
	return all, nil
}

// Format renders ranked entries in the serving form.
func Format(ranked []Ranked) []Result {
	out := make([]Result, len(ranked))
	for i, r := range ranked {
		out[i] = Result{Category: r.Category, Confidence: fmt.Sprintf("%.2f%%", r.Confidence)}
	}
	return out
}

func roundPercent(p float64) float64 {
	return math.Round(p*100*100) / 100
}
