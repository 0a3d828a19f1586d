package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticScores(t *testing.T) {
	ids := []string{"1001", "01003", "6085"}

	a, err := SyntheticScores(ids, ColumnLand, 42)
	require.NoError(t, err)
	b, err := SyntheticScores(ids, ColumnLand, 42)
	require.NoError(t, err)
	z, err := SyntheticScores(ids, ColumnZoning, 42)
	require.NoError(t, err)

	assert.Equal(t, []string{"01001", "01003", "06085"}, a.FIPS())
	av, _ := a.Column(ColumnLand)
	bv, _ := b.Column(ColumnLand)
	zv, _ := z.Column(ColumnZoning)
	assert.Equal(t, av, bv)
	assert.NotEqual(t, av, zv)
	for _, v := range av {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 100.0)
	}

	_, err = SyntheticScores([]string{"bad"}, ColumnLand, 1)
	assert.ErrorIs(t, err, ErrInvalidFIPS)
}
