package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	cache, err := NewRedis(server.Addr(), "", 0, "test", zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, server
}

func TestRedisRoundTrip(t *testing.T) {
	cache, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "whitelist:fqdn|good.example.com", true, time.Hour))

	var hit bool
	found, err := cache.Get(ctx, "whitelist:fqdn|good.example.com", &hit)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, hit)
}

func TestRedisMissingKey(t *testing.T) {
	cache, _ := newTestRedis(t)

	var hit bool
	found, err := cache.Get(context.Background(), "whitelist:fqdn|unknown.example.org", &hit)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisTTLExpiry(t *testing.T) {
	cache, server := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	server.FastForward(2 * time.Minute)

	var value string
	found, err := cache.Get(ctx, "key", &value)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStructuredValues(t *testing.T) {
	cache, _ := newTestRedis(t)
	ctx := context.Background()

	type summary struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	require.NoError(t, cache.Set(ctx, "import:last", summary{Imported: 10, Skipped: 2}, time.Hour))

	var loaded summary
	found, err := cache.Get(ctx, "import:last", &loaded)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 10, loaded.Imported)
	assert.Equal(t, 2, loaded.Skipped)
}

func TestNewRedisConnectionFailure(t *testing.T) {
	_, err := NewRedis("127.0.0.1:1", "", 0, "test", zaptest.NewLogger(t).Sugar())
	assert.Error(t, err)
}
