package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // driver: postgres
	_ "modernc.org/sqlite" // driver: sqlite

	"github.com/couchcryptid/siting-explorer/internal/domain"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// sqlx does not know the modernc driver name; queries use ? placeholders.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open connects to the dataset database and ensures the schema exists.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the dataset tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	schema := schemaSQLite
	if db.DriverName() == DriverPostgres {
		schema = schemaPostgres
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate dataset schema: %w", err)
	}
	return nil
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS grid_constraints (
  fips TEXT NOT NULL,
  transmission_cap REAL,
  interconnection_timeline REAL,
  hv_line_proximity REAL
);

CREATE TABLE IF NOT EXISTS future_scalability (
  fips TEXT NOT NULL,
  power_demand_growth REAL,
  zoning_evolution REAL,
  climate_resilience REAL
);

CREATE TABLE IF NOT EXISTS water_availability (
  county_fips TEXT NOT NULL,
  availability_score REAL
);

CREATE TABLE IF NOT EXISTS broadband_summary (
  geography_type TEXT NOT NULL,
  geography_id TEXT NOT NULL,
  mobilebb_4g_area_st_pct REAL
);

CREATE TABLE IF NOT EXISTS counties (
  fips TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS dataset_version (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  version INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS grid_constraints (
  fips TEXT NOT NULL,
  transmission_cap DOUBLE PRECISION,
  interconnection_timeline DOUBLE PRECISION,
  hv_line_proximity DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS future_scalability (
  fips TEXT NOT NULL,
  power_demand_growth DOUBLE PRECISION,
  zoning_evolution DOUBLE PRECISION,
  climate_resilience DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS water_availability (
  county_fips TEXT NOT NULL,
  availability_score DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS broadband_summary (
  geography_type TEXT NOT NULL,
  geography_id TEXT NOT NULL,
  mobilebb_4g_area_st_pct DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS counties (
  fips TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS dataset_version (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  version BIGINT NOT NULL
);
`

var dataTables = []string{
	"grid_constraints",
	"future_scalability",
	"water_availability",
	"broadband_summary",
	"counties",
}

// SQLSource reads the dataset from database tables populated by Import.
type SQLSource struct {
	db     *sqlx.DB
	seed   uint64
	logger *slog.Logger
}

// NewSQLSource creates a database-backed source.
func NewSQLSource(db *sqlx.DB, seed uint64, logger *slog.Logger) *SQLSource {
	return &SQLSource{db: db, seed: seed, logger: logger}
}

// Load queries every table and converts each to a domain table.
func (s *SQLSource) Load(ctx context.Context) (domain.MasterSources, error) {
	var (
		src    domain.MasterSources
		grid   []gridRow
		future []futureRow
		water  []waterRow
		fiber  []fiberRow
		ids    []string
		err    error
	)

	if err = s.db.SelectContext(ctx, &grid,
		`SELECT fips, transmission_cap, interconnection_timeline, hv_line_proximity FROM grid_constraints`); err != nil {
		return src, fmt.Errorf("load grid table: %w", err)
	}
	if src.Grid, err = gridTable(grid); err != nil {
		return domain.MasterSources{}, fmt.Errorf("load grid table: %w", err)
	}

	if err = s.db.SelectContext(ctx, &future,
		`SELECT fips, power_demand_growth, zoning_evolution, climate_resilience FROM future_scalability`); err != nil {
		return domain.MasterSources{}, fmt.Errorf("load future table: %w", err)
	}
	if src.Future, err = futureTable(future); err != nil {
		return domain.MasterSources{}, fmt.Errorf("load future table: %w", err)
	}

	if err = s.db.SelectContext(ctx, &water,
		`SELECT county_fips, availability_score FROM water_availability`); err != nil {
		return domain.MasterSources{}, fmt.Errorf("load water table: %w", err)
	}
	if src.Water, err = waterTable(water); err != nil {
		return domain.MasterSources{}, fmt.Errorf("load water table: %w", err)
	}

	if err = s.db.SelectContext(ctx, &fiber, s.db.Rebind(
		`SELECT geography_type, geography_id, mobilebb_4g_area_st_pct FROM broadband_summary WHERE geography_type = ?`),
		geographyCounty); err != nil {
		return domain.MasterSources{}, fmt.Errorf("load fiber table: %w", err)
	}
	if src.Fiber, err = fiberTable(fiber); err != nil {
		return domain.MasterSources{}, fmt.Errorf("load fiber table: %w", err)
	}

	if err = s.db.SelectContext(ctx, &ids, `SELECT fips FROM counties ORDER BY fips`); err != nil {
		return domain.MasterSources{}, fmt.Errorf("load counties table: %w", err)
	}
	if src.Land, src.Zoning, err = syntheticTables(ids, s.seed); err != nil {
		return domain.MasterSources{}, fmt.Errorf("load counties table: %w", err)
	}

	s.logger.Debug("source tables loaded from database",
		"grid_rows", len(grid), "future_rows", len(future), "water_rows", len(water),
		"fiber_rows", len(fiber), "counties", len(ids))
	return src, nil
}

// Fingerprint combines the import version with per-table row counts.
func (s *SQLSource) Fingerprint(ctx context.Context) (string, error) {
	var version int64
	if err := s.db.GetContext(ctx, &version,
		`SELECT COALESCE(MAX(version), 0) FROM dataset_version`); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	parts := []string{"v" + strconv.FormatInt(version, 10), "seed" + strconv.FormatUint(s.seed, 10)}
	for _, table := range dataTables {
		var n int64
		if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", table, err)
		}
		parts = append(parts, table+"="+strconv.FormatInt(n, 10))
	}
	return strings.Join(parts, ";"), nil
}

// ImportStats reports the rows written by Import.
type ImportStats struct {
	Grid     int
	Future   int
	Water    int
	Fiber    int
	Counties int
	Version  int64
}

// Import replaces the database tables with the contents of the files at
// paths, in one transaction, and bumps the dataset version.
func Import(ctx context.Context, db *sqlx.DB, paths Paths) (ImportStats, error) {
	var stats ImportStats

	grid, err := readGridCSV(paths.Grid)
	if err != nil {
		return stats, fmt.Errorf("import: %w", err)
	}
	future, err := readFutureParquet(paths.Future)
	if err != nil {
		return stats, fmt.Errorf("import: %w", err)
	}
	water, err := readWaterCSV(paths.Water)
	if err != nil {
		return stats, fmt.Errorf("import: %w", err)
	}
	fiber, err := readFiberCSV(paths.Fiber)
	if err != nil {
		return stats, fmt.Errorf("import: %w", err)
	}
	ids, err := ReadCountyIDs(paths.CountyFIPS)
	if err != nil {
		return stats, fmt.Errorf("import: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("import: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range dataTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return stats, fmt.Errorf("import: clear %s: %w", table, err)
		}
	}

	if err := insertRows(ctx, tx,
		`INSERT INTO grid_constraints (fips, transmission_cap, interconnection_timeline, hv_line_proximity) VALUES (?, ?, ?, ?)`,
		len(grid), func(i int) []any {
			r := grid[i]
			return []any{r.FIPS, r.TransmissionCap, r.InterconnectionTimeline, r.HVLineProximity}
		}); err != nil {
		return stats, fmt.Errorf("import grid: %w", err)
	}
	if err := insertRows(ctx, tx,
		`INSERT INTO future_scalability (fips, power_demand_growth, zoning_evolution, climate_resilience) VALUES (?, ?, ?, ?)`,
		len(future), func(i int) []any {
			r := future[i]
			return []any{r.FIPS, r.PowerDemandGrowth, r.ZoningEvolution, r.ClimateResilience}
		}); err != nil {
		return stats, fmt.Errorf("import future: %w", err)
	}
	if err := insertRows(ctx, tx,
		`INSERT INTO water_availability (county_fips, availability_score) VALUES (?, ?)`,
		len(water), func(i int) []any {
			return []any{water[i].CountyFIPS, water[i].AvailabilityScore}
		}); err != nil {
		return stats, fmt.Errorf("import water: %w", err)
	}
	if err := insertRows(ctx, tx,
		`INSERT INTO broadband_summary (geography_type, geography_id, mobilebb_4g_area_st_pct) VALUES (?, ?, ?)`,
		len(fiber), func(i int) []any {
			r := fiber[i]
			return []any{r.GeographyType, r.GeographyID, r.Mobile4GPct}
		}); err != nil {
		return stats, fmt.Errorf("import fiber: %w", err)
	}
	if err := insertRows(ctx, tx, `INSERT INTO counties (fips) VALUES (?)`,
		len(ids), func(i int) []any { return []any{ids[i]} }); err != nil {
		return stats, fmt.Errorf("import counties: %w", err)
	}

	if err := tx.GetContext(ctx, &stats.Version,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM dataset_version`); err != nil {
		return stats, fmt.Errorf("import: next version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_version`); err != nil {
		return stats, fmt.Errorf("import: version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO dataset_version (id, version) VALUES (1, ?)`), stats.Version); err != nil {
		return stats, fmt.Errorf("import: version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("import: commit: %w", err)
	}
	stats.Grid, stats.Future, stats.Water, stats.Fiber, stats.Counties =
		len(grid), len(future), len(water), len(fiber), len(ids)
	return stats, nil
}

func insertRows(ctx context.Context, tx *sqlx.Tx, query string, n int, args func(int) []any) error {
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(query))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}
