package dataset

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/siting-explorer/internal/domain"
)

func generatedPaths(dir string) Paths {
	return Paths{
		Grid:       filepath.Join(dir, "grid.csv"),
		Future:     filepath.Join(dir, "future.parquet"),
		Water:      filepath.Join(dir, "water.csv"),
		Fiber:      filepath.Join(dir, "fiber.csv"),
		CountyFIPS: filepath.Join(dir, "counties.json"),
	}
}

func generateMaster(t *testing.T, ids []string, seed uint64) *domain.Table {
	t.Helper()
	paths := generatedPaths(t.TempDir())
	require.NoError(t, Generate(paths, ids, seed))

	sources, err := NewFileSource(paths, seed, discardLogger()).Load(context.Background())
	require.NoError(t, err)
	master, err := domain.BuildMaster(sources)
	require.NoError(t, err)
	return master
}

func TestGenerate_ScoresInRange(t *testing.T) {
	ids := []string{"1001", "01003", "06085", "51107", "51059"}
	master := generateMaster(t, ids, 42)

	require.Equal(t, []string{"01001", "01003", "06085", "51059", "51107"}, master.FIPS())
	for _, col := range domain.ScoreColumns() {
		values, ok := master.Column(col)
		require.True(t, ok, col)
		for i, v := range values {
			assert.GreaterOrEqual(t, v, 0.0, "%s row %d", col, i)
			assert.LessOrEqual(t, v, 100.0, "%s row %d", col, i)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	ids := []string{"01001", "01003", "06085"}

	a := generateMaster(t, ids, 42)
	b := generateMaster(t, ids, 42)
	if diff := cmp.Diff(a, b, cmp.AllowUnexported(domain.Table{}), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("same seed produced different tables (-first +second):\n%s", diff)
	}

	c := generateMaster(t, ids, 43)
	assert.NotEqual(t, a.Row(0), c.Row(0))
}

func TestGenerate_InvalidFIPS(t *testing.T) {
	err := Generate(generatedPaths(t.TempDir()), []string{"01001", "not-a-county"}, 42)
	assert.ErrorIs(t, err, domain.ErrInvalidFIPS)
}
