package gbm

import (
	"sort"
)

// column is a feature in sparse form: rows whose value is non-zero, with
// their histogram bins. Rows not listed hold zero, which falls in zeroBin.
type column struct {
	cuts    []float64 // ascending upper bounds; bin b holds v <= cuts[b]
	rows    []int32
	bins    []uint8
	zeroBin int
}

// cutPoints returns at most maxBins ascending bounds. Features with few
// distinct values get one bin per value, others use quantiles. The last
// bound is always the maximum.
func cutPoints(sorted []float64, maxBins int) []float64 {
	if len(sorted) == 0 {
		return nil
	}
	distinct := make([]float64, 0, min(len(sorted), maxBins+1))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
			if len(distinct) > maxBins {
				break
			}
		}
	}
	if len(distinct) <= maxBins {
		return distinct
	}

	n := len(sorted)
	cuts := make([]float64, 0, maxBins)
	for b := 1; b <= maxBins; b++ {
		q := sorted[min(n-1, b*n/maxBins-1)]
		if len(cuts) == 0 || q > cuts[len(cuts)-1] {
			cuts = append(cuts, q)
		}
	}
	return cuts
}

func binOf(cuts []float64, v float64) int {
	b := sort.SearchFloat64s(cuts, v)
	if b >= len(cuts) {
		b = len(cuts) - 1
	}
	return b
}

// buildColumns bins every feature of rows.
func buildColumns(rows [][]float64, width, maxBins int) []column {
	cols := make([]column, width)
	vals := make([]float64, len(rows))
	for f := 0; f < width; f++ {
		nnz := 0
		for r, row := range rows {
			vals[r] = row[f]
			if row[f] != 0 {
				nnz++
			}
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)

		c := column{cuts: cutPoints(sorted, maxBins)}
		c.zeroBin = binOf(c.cuts, 0)
		c.rows = make([]int32, 0, nnz)
		c.bins = make([]uint8, 0, nnz)
		for r, v := range vals {
			if v == 0 {
				continue
			}
			c.rows = append(c.rows, int32(r))
			c.bins = append(c.bins, uint8(binOf(c.cuts, v)))
		}
		cols[f] = c
	}
	return cols
}
