package domain

import (
	"fmt"
	"math"
	"sort"
)

// Table is a column-oriented county table keyed by 5-digit FIPS. Cells are
// float64 and NaN marks a missing value.
//
// A Table handed to callers is treated as immutable: every derivation
// (WithColumn, Rename, FillMissing, Filter, Project) returns a new Table and
// leaves the receiver untouched. Only AddColumn mutates, and it is meant for
// loaders assembling a fresh table.
type Table struct {
	fips  []string
	names []string
	cols  map[string][]float64
}

// NewTable creates a table with one row per identifier. Identifiers are
// normalized to 5-digit FIPS; duplicates are allowed until AggregateByFIPS.
func NewTable(ids []string) (*Table, error) {
	fips := make([]string, len(ids))
	for i, id := range ids {
		f, err := NormalizeFIPS(id)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		fips[i] = f
	}
	return &Table{fips: fips, cols: make(map[string][]float64)}, nil
}

// AddColumn appends a column in place. The slice is copied.
func (t *Table) AddColumn(name string, values []float64) error {
	if len(values) != len(t.fips) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.fips))
	}
	if name == ColumnFIPS {
		return fmt.Errorf("column %q is reserved", name)
	}
	if _, ok := t.cols[name]; ok {
		return fmt.Errorf("column %q already present", name)
	}
	t.names = append(t.names, name)
	t.cols[name] = append([]float64(nil), values...)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.fips) }

// FIPS returns a copy of the row identifiers.
func (t *Table) FIPS() []string { return append([]string(nil), t.fips...) }

// FIPSAt returns the identifier of row i.
func (t *Table) FIPSAt(i int) string { return t.fips[i] }

// Columns returns the value column names in insertion order.
func (t *Table) Columns() []string { return append([]string(nil), t.names...) }

// HasColumn reports whether the table carries col.
func (t *Table) HasColumn(col string) bool {
	_, ok := t.cols[col]
	return ok
}

// Column returns a copy of col's values.
func (t *Table) Column(col string) ([]float64, bool) {
	v, ok := t.cols[col]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), v...), true
}

// Value returns the cell at row i of col, or NaN when the column is absent.
func (t *Table) Value(i int, col string) float64 {
	v, ok := t.cols[col]
	if !ok {
		return math.NaN()
	}
	return v[i]
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{
		fips:  append([]string(nil), t.fips...),
		names: append([]string(nil), t.names...),
		cols:  make(map[string][]float64, len(t.cols)),
	}
	for k, v := range t.cols {
		out.cols[k] = append([]float64(nil), v...)
	}
	return out
}

// WithColumn returns a copy with col set to values, replacing any existing column.
func (t *Table) WithColumn(col string, values []float64) (*Table, error) {
	if len(values) != len(t.fips) {
		return nil, fmt.Errorf("column %q has %d values for %d rows", col, len(values), len(t.fips))
	}
	out := t.Clone()
	if _, ok := out.cols[col]; !ok {
		out.names = append(out.names, col)
	}
	out.cols[col] = append([]float64(nil), values...)
	return out, nil
}

// Select returns a copy reduced to cols. A missing column is ErrMissingColumn.
func (t *Table) Select(cols ...string) (*Table, error) {
	out := &Table{
		fips: append([]string(nil), t.fips...),
		cols: make(map[string][]float64, len(cols)),
	}
	for _, c := range cols {
		v, ok := t.cols[c]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
		if _, dup := out.cols[c]; dup {
			continue
		}
		out.names = append(out.names, c)
		out.cols[c] = append([]float64(nil), v...)
	}
	return out, nil
}

// Rename returns a copy with columns renamed per mapping. Absent source
// columns are ignored.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	out := t.Clone()
	for i, n := range out.names {
		to, ok := mapping[n]
		if !ok || to == n {
			continue
		}
		if _, clash := t.cols[to]; clash {
			if _, moved := mapping[to]; !moved {
				return nil, fmt.Errorf("rename %q: column %q already present", n, to)
			}
		}
		out.names[i] = to
	}
	cols := make(map[string][]float64, len(out.cols))
	for i, n := range t.names {
		cols[out.names[i]] = out.cols[n]
	}
	out.cols = cols
	return out, nil
}

// FillMissing returns a copy with every NaN cell replaced by v.
func (t *Table) FillMissing(v float64) *Table {
	out := t.Clone()
	for _, col := range out.cols {
		for i, x := range col {
			if math.IsNaN(x) {
				col[i] = v
			}
		}
	}
	return out
}

// SortByFIPS returns a copy ordered by FIPS ascending.
func (t *Table) SortByFIPS() *Table {
	idx := make([]int, len(t.fips))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return t.fips[idx[a]] < t.fips[idx[b]] })
	return t.take(idx)
}

// Subset returns a copy holding only the rows whose FIPS satisfies keep.
func (t *Table) Subset(keep func(fips string) bool) *Table {
	var idx []int
	for i, f := range t.fips {
		if keep(f) {
			idx = append(idx, i)
		}
	}
	return t.take(idx)
}

func (t *Table) take(idx []int) *Table {
	out := &Table{
		fips:  make([]string, len(idx)),
		names: append([]string(nil), t.names...),
		cols:  make(map[string][]float64, len(t.cols)),
	}
	for j, i := range idx {
		out.fips[j] = t.fips[i]
	}
	for name, col := range t.cols {
		v := make([]float64, len(idx))
		for j, i := range idx {
			v[j] = col[i]
		}
		out.cols[name] = v
	}
	return out
}

// Row returns the cells of row i keyed by column name.
func (t *Table) Row(i int) map[string]float64 {
	row := make(map[string]float64, len(t.names))
	for _, n := range t.names {
		row[n] = t.cols[n][i]
	}
	return row
}
