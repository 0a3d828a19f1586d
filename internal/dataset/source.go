// Package dataset loads the raw per-category county tables that feed the
// master table builder.
//
// Two backends exist, both satisfying pipeline.Source. FileSource reads the
// published files (CSV, Parquet, and a GeoJSON county list) from disk;
// SQLSource reads the same schemas from Postgres or SQLite tables. Both reconcile every source's identifier column
// (fips, county_fips, geography_id, GEO_ID) to the canonical 5-digit FIPS and
// produce domain.MasterSources.
package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/couchcryptid/siting-explorer/internal/domain"
)

// Raw source column names as published upstream.
const (
	colCountyFIPS     = "county_fips"
	colAvailability   = "availability_score"
	colGeographyType  = "geography_type"
	colGeographyID    = "geography_id"
	colMobile4GPct    = "mobilebb_4g_area_st_pct"
	geographyCounty   = "County"
	fiberPercentScale = 100.0
)

// gridRow is one county of the DOE grid constraints table.
type gridRow struct {
	FIPS                    string   `db:"fips"`
	TransmissionCap         *float64 `db:"transmission_cap"`
	InterconnectionTimeline *float64 `db:"interconnection_timeline"`
	HVLineProximity         *float64 `db:"hv_line_proximity"`
}

// futureRow is one county of the future scalability table.
type futureRow struct {
	FIPS              string   `parquet:"fips" db:"fips"`
	PowerDemandGrowth *float64 `parquet:"power_demand_growth,optional" db:"power_demand_growth"`
	ZoningEvolution   *float64 `parquet:"zoning_evolution,optional" db:"zoning_evolution"`
	ClimateResilience *float64 `parquet:"climate_resilience,optional" db:"climate_resilience"`
}

// waterRow is one county of the water availability table.
type waterRow struct {
	CountyFIPS        string   `db:"county_fips"`
	AvailabilityScore *float64 `db:"availability_score"`
}

// fiberRow is one geography of the broadband summary. Only County rows are used.
type fiberRow struct {
	GeographyType string   `db:"geography_type"`
	GeographyID   string   `db:"geography_id"`
	Mobile4GPct   *float64 `db:"mobilebb_4g_area_st_pct"`
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func gridTable(rows []gridRow) (*domain.Table, error) {
	ids := make([]string, len(rows))
	tc := make([]float64, len(rows))
	it := make([]float64, len(rows))
	hv := make([]float64, len(rows))
	for i, r := range rows {
		ids[i] = r.FIPS
		tc[i] = orNaN(r.TransmissionCap)
		it[i] = orNaN(r.InterconnectionTimeline)
		hv[i] = orNaN(r.HVLineProximity)
	}
	return buildTable("grid", ids,
		column{domain.ColumnTransmissionCap, tc},
		column{domain.ColumnInterconnectionTimeline, it},
		column{domain.ColumnHVLineProximity, hv},
	)
}

func futureTable(rows []futureRow) (*domain.Table, error) {
	ids := make([]string, len(rows))
	pd := make([]float64, len(rows))
	ze := make([]float64, len(rows))
	cr := make([]float64, len(rows))
	for i, r := range rows {
		ids[i] = r.FIPS
		pd[i] = orNaN(r.PowerDemandGrowth)
		ze[i] = orNaN(r.ZoningEvolution)
		cr[i] = orNaN(r.ClimateResilience)
	}
	return buildTable("future", ids,
		column{domain.ColumnPowerDemandGrowth, pd},
		column{domain.ColumnZoningEvolution, ze},
		column{domain.ColumnClimateResilience, cr},
	)
}

// waterTable maps availability_score to water_score.
func waterTable(rows []waterRow) (*domain.Table, error) {
	ids := make([]string, len(rows))
	ws := make([]float64, len(rows))
	for i, r := range rows {
		ids[i] = r.CountyFIPS
		ws[i] = orNaN(r.AvailabilityScore)
	}
	return buildTable("water", ids, column{domain.ColumnWater, ws})
}

// fiberTable keeps County rows and scores 4G area coverage as a percentage.
// A missing coverage share scores 0.
func fiberTable(rows []fiberRow) (*domain.Table, error) {
	var ids []string
	var fs []float64
	for _, r := range rows {
		if strings.TrimSpace(r.GeographyType) != geographyCounty {
			continue
		}
		pct := 0.0
		if r.Mobile4GPct != nil && !math.IsNaN(*r.Mobile4GPct) {
			pct = *r.Mobile4GPct
		}
		ids = append(ids, r.GeographyID)
		fs = append(fs, fiberPercentScale*pct)
	}
	return buildTable("fiber", ids, column{domain.ColumnFiber, fs})
}

// syntheticTables produces the placeholder land and zoning tables.
func syntheticTables(ids []string, seed uint64) (land, zoning *domain.Table, err error) {
	if land, err = domain.SyntheticScores(ids, domain.ColumnLand, seed); err != nil {
		return nil, nil, err
	}
	if zoning, err = domain.SyntheticScores(ids, domain.ColumnZoning, seed); err != nil {
		return nil, nil, err
	}
	return land, zoning, nil
}

type column struct {
	name   string
	values []float64
}

func buildTable(name string, ids []string, cols ...column) (*domain.Table, error) {
	t, err := domain.NewTable(ids)
	if err != nil {
		return nil, fmt.Errorf("%s table: %w", name, err)
	}
	for _, c := range cols {
		if err := t.AddColumn(c.name, c.values); err != nil {
			return nil, fmt.Errorf("%s table: %w", name, err)
		}
	}
	return t, nil
}
