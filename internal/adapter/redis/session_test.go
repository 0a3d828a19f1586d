package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/siting-explorer/internal/domain"
)

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "siting:session:abc:thresholds", sessionKey("abc"))
}

func TestDecodeThresholds(t *testing.T) {
	got, err := decodeThresholds(map[string]string{
		domain.ColumnPower:  "60",
		domain.ColumnFuture: "72.5",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Thresholds{domain.ColumnPower: 60, domain.ColumnFuture: 72.5}, got)

	empty, err := decodeThresholds(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = decodeThresholds(map[string]string{domain.ColumnLand: "high"})
	assert.Error(t, err)
}
