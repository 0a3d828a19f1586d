package domain

import (
	"fmt"
	"math"
)

// AllowList restricts the displayed counties. A nil AllowList allows every county.
type AllowList map[string]struct{}

// NewAllowList builds an allow-list from county identifiers, normalizing each.
func NewAllowList(ids ...string) (AllowList, error) {
	out := make(AllowList, len(ids))
	for _, id := range ids {
		f, err := NormalizeFIPS(id)
		if err != nil {
			return nil, err
		}
		out[f] = struct{}{}
	}
	return out, nil
}

// Allows reports whether fips is shown. A nil list allows everything.
func (a AllowList) Allows(fips string) bool {
	if a == nil {
		return true
	}
	_, ok := a[fips]
	return ok
}

// Project returns a copy of a filtered table with a color_val column equal to
// the priority column times passes. Counties outside a non-nil allow-list are
// NaN regardless of score. The table must already carry the passes column.
func Project(table *Table, priority string, allow AllowList) (*Table, error) {
	scores, ok := table.Column(priority)
	if !ok {
		return nil, fmt.Errorf("%w: priority column %q", ErrUnknownColumn, priority)
	}
	passes, ok := table.Column(ColumnPasses)
	if !ok {
		return nil, fmt.Errorf("%w: %q, run Filter first", ErrMissingColumn, ColumnPasses)
	}

	color := make([]float64, table.Len())
	for i := range color {
		if !allow.Allows(table.FIPSAt(i)) {
			color[i] = math.NaN()
			continue
		}
		color[i] = scores[i] * passes[i]
	}
	return table.WithColumn(ColumnColorVal, color)
}
