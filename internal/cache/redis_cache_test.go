package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Total string `json:"total"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*RedisReportCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisReportCache(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisReportCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	require.NoError(t, c.Ping(ctx))

	require.NoError(t, c.Set(ctx, "sales:1", payload{Total: "18.00", Count: 1}, time.Minute))
	assert.True(t, mr.Exists(keyPrefix+"sales:1"))

	var got payload
	ok, err := c.Get(ctx, "sales:1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload{Total: "18.00", Count: 1}, got)
}

func TestRedisReportCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	var got payload
	ok, err := c.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "short", payload{Count: 2}, time.Second))
	mr.FastForward(2 * time.Second)

	ok, err = c.Get(ctx, "short", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisReportCacheSurfacesConnectionErrors(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	mr.Close()

	var got payload
	_, err := c.Get(ctx, "any", &got)
	require.Error(t, err)
}

func TestNoopReportCache(t *testing.T) {
	ctx := context.Background()
	var c ReportCache = NoopReportCache{}
	require.NoError(t, c.Set(ctx, "k", payload{Count: 1}, time.Minute))

	var got payload
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
