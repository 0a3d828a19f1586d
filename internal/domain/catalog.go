package domain

import (
	"fmt"
	"math"
	"sort"
)

// Category is one siting-constraint dimension.
type Category string

const (
	CategoryPower      Category = "power"
	CategoryLand       Category = "land"
	CategoryClimate    Category = "climate"
	CategoryFiber      Category = "fiber"
	CategoryFuture     Category = "future"
	CategoryRegulatory Category = "regulatory"
)

// Master table column names. The score column spellings (including the
// embedded spaces) are the contract with the rendering layer; do not rename.
const (
	ColumnFIPS        = "fips"
	ColumnPower       = "power_score"
	ColumnLand        = "land_score"
	ColumnClimate     = "climate factors_score"
	ColumnFiber       = "fiber_score"
	ColumnFuture      = "future scalability_score"
	ColumnRegulations = "regulations_score"
	ColumnPasses      = "passes"
	ColumnColorVal    = "color_val"
)

// categoryOrder is the display order used by the UI and the API.
var categoryOrder = []Category{
	CategoryPower,
	CategoryFiber,
	CategoryLand,
	CategoryRegulatory,
	CategoryClimate,
	CategoryFuture,
}

var scoreColumns = map[Category]string{
	CategoryPower:      ColumnPower,
	CategoryLand:       ColumnLand,
	CategoryClimate:    ColumnClimate,
	CategoryFiber:      ColumnFiber,
	CategoryFuture:     ColumnFuture,
	CategoryRegulatory: ColumnRegulations,
}

var colorScales = map[string]string{
	ColumnClimate:     "Blues",
	ColumnLand:        "Greens",
	ColumnRegulations: "Purples",
	ColumnFiber:       "Viridis",
	ColumnPower:       "Inferno",
	ColumnFuture:      "Teal",
}

const defaultColorScale = "Viridis"

// Categories returns every category in display order.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

// ParseCategory validates a category key.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := scoreColumns[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// ScoreColumn returns the master-table column holding the category's score.
func (c Category) ScoreColumn() (string, error) {
	col, ok := scoreColumns[c]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
	}
	return col, nil
}

// CategoryForColumn is the inverse of ScoreColumn.
func CategoryForColumn(col string) (Category, bool) {
	for c, name := range scoreColumns {
		if name == col {
			return c, true
		}
	}
	return "", false
}

// ScoreColumns returns every category score column in display order.
func ScoreColumns() []string {
	out := make([]string, 0, len(categoryOrder))
	for _, c := range categoryOrder {
		out = append(out, scoreColumns[c])
	}
	return out
}

// ColorScale names the continuous color scale used when col is the priority column.
func ColorScale(col string) string {
	if s, ok := colorScales[col]; ok {
		return s
	}
	return defaultColorScale
}

// CategorySpec is the ordered set of metrics scored together under one category.
type CategorySpec struct {
	Key     Category     `json:"key"`
	Title   string       `json:"title"`
	Metrics []MetricSpec `json:"metrics"`
}

// Validate checks metric keys are unique and every metric is well formed.
func (c CategorySpec) Validate() error {
	if _, err := c.Key.ScoreColumn(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Metrics))
	for _, m := range c.Metrics {
		if _, dup := seen[m.Key]; dup {
			return fmt.Errorf("%w: category %q repeats metric %q", ErrMalformedMetric, c.Key, m.Key)
		}
		seen[m.Key] = struct{}{}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("category %q: %w", c.Key, err)
		}
	}
	return nil
}

// Catalog holds the metric definitions of every mean-scored category. The
// regulatory category is scored by ScoreRegulatory and has no catalog entry.
type Catalog map[Category]CategorySpec

// Spec returns the category's metric definitions.
func (c Catalog) Spec(cat Category) (CategorySpec, error) {
	spec, ok := c[cat]
	if !ok {
		return CategorySpec{}, fmt.Errorf("%w: %q has no metric catalog", ErrUnknownCategory, string(cat))
	}
	return spec, nil
}

// Validate checks every category spec.
func (c Catalog) Validate() error {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		spec := c[Category(k)]
		if spec.Key != Category(k) {
			return fmt.Errorf("%w: catalog key %q holds spec %q", ErrMalformedMetric, k, spec.Key)
		}
		if err := spec.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func ptr(v float64) *float64 { return &v }

var riskLevels = []Option{
	{Label: "Very Low", Score: 100},
	{Label: "Low", Score: 80},
	{Label: "Medium", Score: 60},
	{Label: "High", Score: 30},
	{Label: "Very High", Score: 0},
}

// PeakedTemperature scores average temperature (°F) with a peak of 100 at 60°F,
// losing 3 points per degree either side.
func PeakedTemperature(v float64) float64 {
	return math.Max(0, 100-math.Abs(v-60)*3)
}

// DefaultCatalog returns the built-in metric definitions.
func DefaultCatalog() Catalog {
	return Catalog{
		CategoryPower: {
			Key:   CategoryPower,
			Title: "Power Factors",
			Metrics: []MetricSpec{
				{Key: "cost", Label: "Cost ($/MWh)", Units: "$/MWh", Rule: RangeMetric{Min: 20, Max: 200, Default: ptr(70), Inverse: true}},
				{Key: "queue", Label: "Interconnection Queue (months)", Units: "months", Rule: RangeMetric{Min: 0, Max: 60, Default: ptr(24), Inverse: true}},
				{Key: "territory", Label: "Service-territory size (mi²)", Units: "mi²", Rule: RangeMetric{Min: 0, Max: 50_000, Default: ptr(5_000)}},
				{Key: "cluster", Label: "Ongoing Cluster Studies (MW)", Units: "MW", Rule: RangeMetric{Min: 0, Max: 10_000, Default: ptr(500)}},
				{Key: "pipeline", Label: "New Power Projects (MW)", Units: "MW", Rule: RangeMetric{Min: 0, Max: 10_000, Default: ptr(1_000)}},
				{Key: "reg_change", Label: "Regulatory Climate", Rule: CategoricalMetric{Options: []Option{
					{Label: "Supportive", Score: 100},
					{Label: "Neutral", Score: 50},
					{Label: "Restrictive", Score: 0},
				}, Default: "Supportive"}},
				{Key: "lobby", Label: "Lobbying Effort ($M/y)", Units: "Million $", Rule: RangeMetric{Min: 0, Max: 50, Default: ptr(5)}},
				{Key: "hv_dist", Label: "HV-Line Proximity (km)", Units: "km", Rule: RangeMetric{Min: 0, Max: 100, Default: ptr(25), Inverse: true}},
				{Key: "gas_dist", Label: "Gas-Pipe Proximity (km)", Units: "km", Rule: RangeMetric{Min: 0, Max: 200, Default: ptr(50), Inverse: true}},
			},
		},
		CategoryLand: {
			Key:   CategoryLand,
			Title: "Land & Site Characteristics",
			Metrics: []MetricSpec{
				{Key: "parcel", Label: "Parcel size (acres)", Units: "acres", Rule: RangeMetric{Min: 10, Max: 5_000, Default: ptr(100)}},
				{Key: "slope", Label: "Average slope (%)", Units: "%", Rule: RangeMetric{Min: 0, Max: 15, Default: ptr(3), Inverse: true}},
				{Key: "zoning", Label: "Zoning & land-use", Rule: CategoricalMetric{Options: []Option{
					{Label: "Industrial", Score: 100},
					{Label: "Commercial", Score: 70},
					{Label: "Mixed Use", Score: 40},
					{Label: "Residential", Score: 0},
				}, Default: "Industrial"}},
			},
		},
		CategoryClimate: {
			Key:   CategoryClimate,
			Title: "Climate & Environmental Risk",
			Metrics: []MetricSpec{
				{Key: "temp", Label: "Avg. temperature (°F)", Units: "°F", Rule: CustomMetric{
					Fn: PeakedTemperature, Expr: "max(0, 100 - abs(v - 60) * 3)", Min: 32, Max: 90, Default: ptr(65),
				}},
				{Key: "flood", Label: "Flood risk", Rule: CategoricalMetric{Options: riskLevels, Default: "Very Low"}},
				{Key: "wildfire", Label: "Wildfire risk", Rule: CategoricalMetric{Options: riskLevels, Default: "Very Low"}},
				{Key: "water", Label: "Water availability (kgal/day)", Units: "kgal/day", Rule: RangeMetric{Min: 0, Max: 10_000, Default: ptr(2_000)}},
			},
		},
		CategoryFiber: {
			Key:   CategoryFiber,
			Title: "Connectivity Infrastructure",
			Metrics: []MetricSpec{
				{Key: "fiber_dist", Label: "Fiber backbone distance (km)", Units: "km", Rule: RangeMetric{Min: 0, Max: 25, Default: ptr(5), Inverse: true}},
				{Key: "subsea", Label: "Sub-sea cable distance (km)", Units: "km", Rule: RangeMetric{Min: 0, Max: 500, Default: ptr(200), Inverse: true}},
			},
		},
		CategoryFuture: {
			Key:   CategoryFuture,
			Title: "Future Scalability & Demand",
			Metrics: []MetricSpec{
				{Key: "corridor", Label: "Growth-corridor score", Rule: RangeMetric{Min: 0, Max: 100, Default: ptr(50)}},
				{Key: "workload", Label: "Workload/design-trend alignment", Rule: RangeMetric{Min: 0, Max: 100, Default: ptr(50)}},
				{Key: "demand", Label: "Energy-demand growth (%/y)", Units: "%", Rule: RangeMetric{Min: 0, Max: 20, Default: ptr(5)}},
			},
		},
	}
}
