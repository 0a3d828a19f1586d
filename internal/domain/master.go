package domain

import (
	"fmt"
	"math"
	"sort"
)

// Raw source columns consumed by the master table builder.
const (
	ColumnTransmissionCap         = "transmission_cap"
	ColumnInterconnectionTimeline = "interconnection_timeline"
	ColumnHVLineProximity         = "hv_line_proximity"
	ColumnPowerDemandGrowth       = "power_demand_growth"
	ColumnZoningEvolution         = "zoning_evolution"
	ColumnClimateResilience       = "climate_resilience"
	ColumnWater                   = "water_score"
	ColumnZoning                  = "zoning_score"
)

// Composite weights. They reproduce the published scoring model exactly.
const (
	weightTransmissionCap         = 0.4
	weightInterconnectionTimeline = 0.3
	weightHVLineProximity         = 0.3

	weightPowerDemandGrowth = 0.5
	weightZoningEvolution   = 0.3
	weightClimateResilience = 0.2
)

// MasterSources are the per-category raw tables produced by a dataset loader.
// Each must expose the columns listed in its field comment.
type MasterSources struct {
	Grid   *Table // transmission_cap, interconnection_timeline, hv_line_proximity
	Future *Table // power_demand_growth, zoning_evolution, climate_resilience
	Water  *Table // water_score
	Fiber  *Table // fiber_score
	Land   *Table // land_score
	Zoning *Table // zoning_score
}

type sourceSpec struct {
	name  string
	table *Table
	cols  []string
}

func (s MasterSources) specs() []sourceSpec {
	return []sourceSpec{
		{"water", s.Water, []string{ColumnWater}},
		{"land", s.Land, []string{ColumnLand}},
		{"zoning", s.Zoning, []string{ColumnZoning}},
		{"fiber", s.Fiber, []string{ColumnFiber}},
		{"grid", s.Grid, []string{ColumnTransmissionCap, ColumnInterconnectionTimeline, ColumnHVLineProximity}},
		{"future", s.Future, []string{ColumnPowerDemandGrowth, ColumnZoningEvolution, ColumnClimateResilience}},
	}
}

// BuildMaster joins every source on FIPS and derives the category score columns.
//
// Each source is reduced to the columns it contributes and averaged per FIPS,
// then all sources are full-outer-joined so a county present anywhere appears
// once in the result. Cells left empty by the join are filled with 0. Rows are
// ordered by FIPS.
func BuildMaster(src MasterSources) (*Table, error) {
	specs := src.specs()
	reduced := make([]*Table, 0, len(specs))
	for _, s := range specs {
		if s.table == nil {
			return nil, fmt.Errorf("build master: %s table: %w", s.name, ErrMissingColumn)
		}
		t, err := s.table.Select(s.cols...)
		if err != nil {
			return nil, fmt.Errorf("build master: %s table: %w", s.name, err)
		}
		reduced = append(reduced, AggregateByFIPS(t))
	}

	joined, err := OuterJoin(reduced...)
	if err != nil {
		return nil, fmt.Errorf("build master: %w", err)
	}
	master := joined.FillMissing(0)

	power := weightedSum(master, powerTerms)
	future := weightedSum(master, futureTerms)

	if master, err = master.WithColumn(ColumnPower, power); err != nil {
		return nil, fmt.Errorf("build master: %w", err)
	}
	if master, err = master.WithColumn(ColumnFuture, future); err != nil {
		return nil, fmt.Errorf("build master: %w", err)
	}
	master, err = master.Rename(map[string]string{
		ColumnZoning: ColumnRegulations,
		ColumnWater:  ColumnClimate,
	})
	if err != nil {
		return nil, fmt.Errorf("build master: %w", err)
	}
	return master, nil
}

type term struct {
	col    string
	weight float64
}

var (
	powerTerms = []term{
		{ColumnTransmissionCap, weightTransmissionCap},
		{ColumnInterconnectionTimeline, weightInterconnectionTimeline},
		{ColumnHVLineProximity, weightHVLineProximity},
	}
	futureTerms = []term{
		{ColumnPowerDemandGrowth, weightPowerDemandGrowth},
		{ColumnZoningEvolution, weightZoningEvolution},
		{ColumnClimateResilience, weightClimateResilience},
	}
)

// weightedSum evaluates sum(weight*column) per row, adding terms in order.
func weightedSum(t *Table, terms []term) []float64 {
	out := make([]float64, t.Len())
	for _, tm := range terms {
		for i := range out {
			out[i] += tm.weight * t.Value(i, tm.col)
		}
	}
	return out
}

// AggregateByFIPS collapses duplicate FIPS rows into one by taking the mean of
// each column. NaN cells are ignored; a group whose cells are all NaN stays
// NaN. Rows keep the order of each FIPS's first appearance.
func AggregateByFIPS(t *Table) *Table {
	index := make(map[string]int, t.Len())
	var order []string
	group := make([]int, t.Len())
	for i, f := range t.fips {
		g, ok := index[f]
		if !ok {
			g = len(order)
			index[f] = g
			order = append(order, f)
		}
		group[i] = g
	}
	if len(order) == t.Len() {
		return t.Clone()
	}

	out := &Table{
		fips:  order,
		names: append([]string(nil), t.names...),
		cols:  make(map[string][]float64, len(t.cols)),
	}
	for name, col := range t.cols {
		sum := make([]float64, len(order))
		n := make([]int, len(order))
		for i, x := range col {
			if math.IsNaN(x) {
				continue
			}
			sum[group[i]] += x
			n[group[i]]++
		}
		mean := make([]float64, len(order))
		for g := range mean {
			if n[g] == 0 {
				mean[g] = math.NaN()
				continue
			}
			mean[g] = sum[g] / float64(n[g])
		}
		out.cols[name] = mean
	}
	return out
}

// OuterJoin full-outer-joins tables on FIPS. The result holds exactly one row
// per distinct FIPS across all inputs, sorted ascending, with NaN where a
// table has no row for a county. Inputs are aggregated by FIPS first. Two
// tables contributing the same column name is an error.
func OuterJoin(tables ...*Table) (*Table, error) {
	owner := make(map[string]int)
	seen := make(map[string]struct{})
	var names []string
	aggregated := make([]*Table, len(tables))
	for ti, t := range tables {
		if t == nil {
			return nil, fmt.Errorf("outer join: table %d is nil", ti)
		}
		for _, n := range t.names {
			if prev, dup := owner[n]; dup {
				return nil, fmt.Errorf("outer join: column %q in tables %d and %d", n, prev, ti)
			}
			owner[n] = ti
			names = append(names, n)
		}
		aggregated[ti] = AggregateByFIPS(t)
		for _, f := range t.fips {
			seen[f] = struct{}{}
		}
	}

	fips := make([]string, 0, len(seen))
	for f := range seen {
		fips = append(fips, f)
	}
	sort.Strings(fips)
	row := make(map[string]int, len(fips))
	for i, f := range fips {
		row[f] = i
	}

	out := &Table{fips: fips, names: names, cols: make(map[string][]float64, len(names))}
	for _, t := range aggregated {
		for _, n := range t.names {
			col := make([]float64, len(fips))
			for i := range col {
				col[i] = math.NaN()
			}
			src := t.cols[n]
			for i, f := range t.fips {
				col[row[f]] = src[i]
			}
			out.cols[n] = col
		}
	}
	return out, nil
}
