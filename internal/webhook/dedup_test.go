package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Deduper) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewDeduper(client, 5*time.Minute)
}

func TestDeduper_ClaimOnce(t *testing.T) {
	_, d := setupTestRedis(t)
	ctx := context.Background()

	first, err := d.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := d.Claim(ctx, "def")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestDeduper_ClaimExpires(t *testing.T) {
	mr, d := setupTestRedis(t)
	ctx := context.Background()

	_, err := d.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"abc"))

	mr.FastForward(5*time.Minute + time.Second)

	ok, err := d.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeduper_Release(t *testing.T) {
	_, d := setupTestRedis(t)
	ctx := context.Background()

	_, err := d.Claim(ctx, "abc")
	require.NoError(t, err)
	require.NoError(t, d.Release(ctx, "abc"))

	ok, err := d.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeduper_RedisDown(t *testing.T) {
	mr, d := setupTestRedis(t)
	mr.Close()

	_, err := d.Claim(context.Background(), "abc")
	assert.Error(t, err)
}
