package domain

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// SyntheticScores builds a placeholder table with one uniform [0, 100) score
// per county in col. The stream is derived from seed and the column name, so a
// given seed always reproduces the same table and different columns differ.
func SyntheticScores(ids []string, col string, seed uint64) (*Table, error) {
	t, err := NewTable(ids)
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", col, err)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(col))
	r := rand.New(rand.NewPCG(seed, h.Sum64()))

	values := make([]float64, t.Len())
	for i := range values {
		values[i] = MaxScore * r.Float64()
	}
	if err := t.AddColumn(col, values); err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", col, err)
	}
	return t, nil
}
