package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AwaitingTitle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	ok, err := m.AwaitingTitle(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.SetAwaitingTitle(ctx, 1, true))
	ok, _ = m.AwaitingTitle(ctx, 1)
	assert.True(t, ok)

	now = now.Add(time.Hour)
	ok, _ = m.AwaitingTitle(ctx, 1)
	assert.False(t, ok, "flag expires")

	require.NoError(t, m.SetAwaitingTitle(ctx, 1, true))
	require.NoError(t, m.SetAwaitingTitle(ctx, 1, false))
	ok, _ = m.AwaitingTitle(ctx, 1)
	assert.False(t, ok)
}

func TestMemory_HitWindows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		n, err := m.Hit(ctx, 5, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	n, _ := m.Hit(ctx, 6, time.Minute)
	assert.Equal(t, int64(1), n, "counters are per user")

	now = now.Add(time.Minute)
	n, _ = m.Hit(ctx, 5, time.Minute)
	assert.Equal(t, int64(1), n, "new window resets")
}

func TestRedis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, url)
	require.NoError(t, err)
	defer r.Close()

	userID := time.Now().UnixNano()
	require.NoError(t, r.SetAwaitingTitle(ctx, userID, true))
	ok, err := r.AwaitingTitle(ctx, userID)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, r.SetAwaitingTitle(ctx, userID, false))
	ok, err = r.AwaitingTitle(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := r.Hit(ctx, userID, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = r.Hit(ctx, userID, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	ttl, err := r.rdb.PTTL(ctx, rateKey(userID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	// A counter that lost its expiry must not block the user forever.
	stuck := userID + 1
	require.NoError(t, r.rdb.Set(ctx, rateKey(stuck), 50, 0).Err())
	n, err = r.Hit(ctx, stuck, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), n)
	ttl, err = r.rdb.PTTL(ctx, rateKey(stuck)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	require.NoError(t, r.rdb.Del(ctx, rateKey(stuck), rateKey(userID)).Err())
}
