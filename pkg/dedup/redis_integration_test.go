//go:build integration

package dedup_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/jobcore/pkg/dedup"
)

func redisClient(t *testing.T) redis.UniversalClient {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedis_SetHasDelete(t *testing.T) {
	ctx := context.Background()
	store := dedup.NewRedis(redisClient(t), dedup.WithPrefix("dedup-test-"+uuid.NewString()))

	ok, err := store.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", time.Minute))
	ok, err = store.Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "k"))
	ok, err = store.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_Expiry(t *testing.T) {
	ctx := context.Background()
	store := dedup.NewRedis(redisClient(t), dedup.WithPrefix("dedup-test-"+uuid.NewString()))

	require.NoError(t, store.Set(ctx, "short", 50*time.Millisecond))
	assert.Eventually(t, func() bool {
		ok, err := store.Has(ctx, "short")
		return err == nil && !ok
	}, 2*time.Second, 20*time.Millisecond)
}
