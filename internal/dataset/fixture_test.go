package dataset

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v float64) *float64 { return &v }

// writeFixture writes a small hand-built dataset covering three counties.
// 01001 appears in every source (twice in grid), 01003 lacks water and
// future rows, and 06085 is only in the county list and broadband summary.
func writeFixture(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	p := Paths{
		Grid:       filepath.Join(dir, "grid.csv"),
		Future:     filepath.Join(dir, "future.parquet"),
		Water:      filepath.Join(dir, "water.csv"),
		Fiber:      filepath.Join(dir, "fiber.csv"),
		CountyFIPS: filepath.Join(dir, "counties.json"),
	}

	writeFile(t, p.Grid, "fips,transmission_cap,interconnection_timeline,hv_line_proximity\n"+
		"1001,100,0,0\n"+
		"01001,50,0,0\n"+
		"1003,80,60,NA\n")
	require.NoError(t, writeFutureParquet(p.Future, []futureRow{
		{FIPS: "01001", PowerDemandGrowth: ptr(80), ZoningEvolution: ptr(80), ClimateResilience: ptr(80)},
	}))
	writeFile(t, p.Water, "county_fips,availability_score\n1001,72.5\n")
	writeFile(t, p.Fiber, "geography_type,geography_id,mobilebb_4g_area_st_pct\n"+
		"State,01,0.99\n"+
		"County,01001,0.5\n"+
		"County,1003,\n"+
		"County,06085,0.9\n")
	require.NoError(t, WriteCountyIDs(p.CountyFIPS, []string{"01001", "01003", "06085"}))
	return p
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
