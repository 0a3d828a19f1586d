// Package domain scores US counties as data-center sites.
//
// # Scores
//
// Every score lives on the closed range [0, 100]. Raw inputs arrive in their
// native units (dollars per MWh, months, kilometers, labels) and are mapped
// onto that range by a metric rule:
//
//	RangeMetric        linear over [Min, Max], optionally inverted,
//	                   saturating outside the range
//	CategoricalMetric  fixed score per declared label
//	CustomMetric       arbitrary function, clamped
//
// A category score is the mean of its metric scores. Regulatory is the
// exception: five sub-scores (permitting, incentives, environmental
// compliance, local support, security) are combined as a weighted sum after
// dividing each weight by the weight total. A zero total is rejected.
//
// # County Identifiers
//
// FIPS codes are 5-character strings, 2-digit state plus 3-digit county,
// left-zero-padded. Source files routinely lose the leading zero ("1001" for
// Autauga County, AL) so every identifier passes through [NormalizeFIPS]
// before it reaches a [Table].
//
// # Master Table
//
// [BuildMaster] reduces each source to the columns it contributes, averages
// duplicate FIPS rows, and full-outer-joins the sources. A county missing from
// a source scores 0 there rather than being dropped. Two score columns are
// composites:
//
//	power_score              = 0.4*transmission_cap + 0.3*interconnection_timeline + 0.3*hv_line_proximity
//	future scalability_score = 0.5*power_demand_growth + 0.3*zoning_evolution + 0.2*climate_resilience
//
// Column names are the contract with the renderer and keep their historical
// spelling, spaces included ("climate factors_score").
//
// # Filtering and Projection
//
// [Filter] adds passes: 1 when a county meets every threshold, NaN otherwise.
// Missing cells compare as -1, so they never pass a non-negative threshold.
// [Project] adds color_val = priority score * passes, and forces NaN outside
// the selected market. NaN is what keeps failing counties unlit instead of
// drawing them as the lowest score. Both return new tables; the cached master
// table is never modified.
package domain
