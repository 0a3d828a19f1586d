package domain

import (
	"math"
	"sort"
)

// missingScore stands in for NaN cells when comparing against a threshold, so
// a missing value never passes a non-negative minimum.
const missingScore = -1.0

// Thresholds maps a score column to its minimum passing score.
type Thresholds map[string]float64

// Columns returns the thresholded columns in sorted order.
func (t Thresholds) Columns() []string {
	out := make([]string, 0, len(t))
	for c := range t {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Passes reports whether row i of table meets every threshold. A column absent
// from the table counts as missing in every row.
func (t Thresholds) Passes(table *Table, i int) bool {
	for col, floor := range t {
		v := table.Value(i, col)
		if math.IsNaN(v) {
			v = missingScore
		}
		if v < floor {
			return false
		}
	}
	return true
}

// Filter returns a copy of table with a passes column that is 1 where a row
// meets every threshold and NaN otherwise. An empty threshold set passes every
// row. The input table is never modified.
func Filter(table *Table, thresholds Thresholds) *Table {
	passes := make([]float64, table.Len())
	for i := range passes {
		if thresholds.Passes(table, i) {
			passes[i] = 1
		} else {
			passes[i] = math.NaN()
		}
	}
	out, _ := table.WithColumn(ColumnPasses, passes)
	return out
}
