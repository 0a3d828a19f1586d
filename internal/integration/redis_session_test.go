//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	redisadapter "github.com/couchcryptid/siting-explorer/internal/adapter/redis"
	"github.com/couchcryptid/siting-explorer/internal/domain"
)

func TestRedisSessionStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start redis container")

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := goredis.ParseURL(uri)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	store := redisadapter.NewSessionStore(client, time.Hour)

	th, err := store.Thresholds(ctx, "fresh")
	require.NoError(t, err)
	assert.Empty(t, th)

	require.NoError(t, store.SetThreshold(ctx, "s1", domain.ColumnPower, 40))
	require.NoError(t, store.SetThreshold(ctx, "s1", domain.ColumnClimate, 55.5))
	require.NoError(t, store.SetThreshold(ctx, "s1", domain.ColumnPower, 65))

	th, err = store.Thresholds(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.Thresholds{domain.ColumnPower: 65, domain.ColumnClimate: 55.5}, th)

	ttl, err := client.TTL(ctx, "siting:session:s1:thresholds").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	other, err := store.Thresholds(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
