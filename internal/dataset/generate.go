package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/couchcryptid/siting-explorer/internal/domain"
)

// normal describes a clipped normal draw on the score range.
type normal struct {
	mean, sd float64
}

func (n normal) draw(r *rand.Rand) float64 {
	v := r.NormFloat64()*n.sd + n.mean
	return math.Max(domain.MinScore, math.Min(domain.MaxScore, v))
}

var (
	gridDist = [3]normal{
		{80, 10}, // transmission_cap
		{70, 20}, // interconnection_timeline
		{80, 15}, // hv_line_proximity
	}
	futureDist = [3]normal{
		{80, 20}, // power_demand_growth
		{70, 20}, // zoning_evolution
		{75, 15}, // climate_resilience
	}
	waterDist = normal{75, 15}
)

// Generate writes a synthetic grid, future, water, and broadband dataset for
// ids to paths. A given seed always produces the same files. The county list
// itself is written to paths.CountyFIPS.
func Generate(paths Paths, ids []string, seed uint64) error {
	norm := make([]string, len(ids))
	for i, id := range ids {
		f, err := domain.NormalizeFIPS(id)
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		norm[i] = f
	}
	r := rand.New(rand.NewPCG(seed, seed^0x5eed))

	grid := make([][]string, len(norm))
	for i, id := range norm {
		grid[i] = []string{id,
			formatFloat(gridDist[0].draw(r)),
			formatFloat(gridDist[1].draw(r)),
			formatFloat(gridDist[2].draw(r)),
		}
	}
	if err := writeCSV(paths.Grid, []string{domain.ColumnFIPS,
		domain.ColumnTransmissionCap, domain.ColumnInterconnectionTimeline, domain.ColumnHVLineProximity}, grid); err != nil {
		return fmt.Errorf("generate grid: %w", err)
	}

	future := make([]futureRow, len(norm))
	for i, id := range norm {
		pd, ze, cr := futureDist[0].draw(r), futureDist[1].draw(r), futureDist[2].draw(r)
		future[i] = futureRow{FIPS: id, PowerDemandGrowth: &pd, ZoningEvolution: &ze, ClimateResilience: &cr}
	}
	if err := writeFutureParquet(paths.Future, future); err != nil {
		return fmt.Errorf("generate future: %w", err)
	}

	water := make([][]string, len(norm))
	for i, id := range norm {
		water[i] = []string{id, formatFloat(waterDist.draw(r))}
	}
	if err := writeCSV(paths.Water, []string{colCountyFIPS, colAvailability}, water); err != nil {
		return fmt.Errorf("generate water: %w", err)
	}

	fiber := make([][]string, len(norm))
	for i, id := range norm {
		// Beta(3, 1) via inverse CDF: coverage skews high.
		pct := math.Cbrt(r.Float64())
		fiber[i] = []string{geographyCounty, id, formatFloat(pct)}
	}
	if err := writeCSV(paths.Fiber, []string{colGeographyType, colGeographyID, colMobile4GPct}, fiber); err != nil {
		return fmt.Errorf("generate fiber: %w", err)
	}

	if err := WriteCountyIDs(paths.CountyFIPS, norm); err != nil {
		return fmt.Errorf("generate counties: %w", err)
	}
	return nil
}
