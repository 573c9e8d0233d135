package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type bar struct {
	Close float64 `json:"close"`
}

func TestMemoryCacheRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "AAPL", []bar{{Close: 1}, {Close: 2}}, time.Minute))

	var got []bar
	require.NoError(t, mc.Get(ctx, "AAPL", &got))
	assert.Equal(t, []bar{{Close: 1}, {Close: 2}}, got)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, mc.Get(ctx, "AAPL", &got), ErrCacheMiss)
	ok, _ := mc.Exists(ctx, "AAPL")
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMaxEntries(2))
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Second); return now }

	require.NoError(t, mc.Set(ctx, "a", 1, time.Hour))
	require.NoError(t, mc.Set(ctx, "b", 2, time.Hour))
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, time.Hour))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
}

func TestMemoryCacheTryLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "lock:AAPL", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = mc.TryLock(ctx, "lock:AAPL", time.Minute)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock:AAPL"))
	ok, _ = mc.TryLock(ctx, "lock:AAPL", time.Minute)
	assert.True(t, ok)
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	calls := 0
	load := func(context.Context) ([]bar, error) {
		calls++
		return []bar{{Close: 42}}, nil
	}

	v, hit, err := GetOrLoad(ctx, mc, "k", time.Minute, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 42.0, v[0].Close)

	v, hit, err = GetOrLoad(ctx, mc, "k", time.Minute, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)

	_, _, err = GetOrLoad(ctx, mc, "other", time.Minute, func(context.Context) ([]bar, error) {
		return nil, errors.New("upstream down")
	})
	assert.EqualError(t, err, "upstream down")
	ok, _ := mc.Exists(ctx, "other")
	assert.False(t, ok)
}

func TestLayeredCacheFallsBackToL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2, time.Minute)
	defer lc.Close()

	require.NoError(t, l2.Set(ctx, "k", "from-l2", time.Hour))

	var s string
	require.NoError(t, lc.Get(ctx, "k", &s))
	assert.Equal(t, "from-l2", s)

	ok, _ := lc.l1.Exists(ctx, "k")
	assert.True(t, ok, "L2 hit should populate L1")

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &s), ErrCacheMiss)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "history:yahoo:AAPL:2mo:1d", Key("history", "yahoo", "AAPL", "2mo", "1d"))
}
