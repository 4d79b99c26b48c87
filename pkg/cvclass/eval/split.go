// Package eval splits labeled data for validation and scores classifiers.
package eval

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

// StratifiedSplit partitions row indices into train and test sets so that
// every label keeps roughly its share in both. Each label contributes
// round(count*testRatio) rows to test, but never its last row; labels with
// a single row stay in train. Both index lists are ascending.
func StratifiedSplit(labels []int, testRatio float64, seed uint64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio %g: %w", testRatio, internalerr.ErrInvalidConfig)
	}
	if len(labels) == 0 {
		return nil, nil, fmt.Errorf("split: no rows: %w", internalerr.ErrInvalidInput)
	}

	byLabel := make(map[int][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}
	keys := make([]int, 0, len(byLabel))
	for l := range byLabel {
		keys = append(keys, l)
	}
	sort.Ints(keys)

	rng := rand.New(rand.NewPCG(seed, seed))
	for _, l := range keys {
		idx := byLabel[l]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(math.Round(float64(len(idx)) * testRatio))
		nTest = min(nTest, len(idx)-1)
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// Take returns the elements of items at the given indices.
func Take[T any](items []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}
