package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/siting-explorer/internal/domain"
)

func TestReadCSV_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "water.csv")
	writeFile(t, path, "fips,availability_score\n01001,50\n")

	_, err := readWaterCSV(path)
	require.ErrorIs(t, err, domain.ErrMissingColumn)
	assert.Contains(t, err.Error(), "county_fips")
}

func TestReadCSV_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.csv")
	writeFile(t, path, "")

	_, err := readGridCSV(path)
	assert.ErrorIs(t, err, domain.ErrMissingColumn)
}

func TestReadCSV_MissingCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.csv")
	writeFile(t, path, "\ufefffips,transmission_cap,interconnection_timeline,hv_line_proximity\n"+
		"01001,,NA,12.5\n")

	rows, err := readGridCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "01001", rows[0].FIPS)
	assert.Nil(t, rows[0].TransmissionCap)
	assert.Nil(t, rows[0].InterconnectionTimeline)
	require.NotNil(t, rows[0].HVLineProximity)
	assert.Equal(t, 12.5, *rows[0].HVLineProximity)
}

func TestReadCSV_BadNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "water.csv")
	writeFile(t, path, "county_fips,availability_score\n01001,high\n")

	_, err := readWaterCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadFiberCSV_SkipsNonCountyRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fiber.csv")
	writeFile(t, path, "geography_type,geography_id,mobilebb_4g_area_st_pct\n"+
		"Nation,US,not-a-number\n"+
		"County,01001,0.25\n")

	rows, err := readFiberCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "01001", rows[0].GeographyID)
}
