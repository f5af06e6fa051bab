package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return Wrap(rdb, zap.NewNop()), mr
}

func TestBlacklist(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := c.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.BlacklistToken(ctx, "jti-1", time.Minute))
	ok, err = c.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = c.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlacklist_ExpiredTokenIsNoop(t *testing.T) {
	c, mr := newTestClient(t)

	require.NoError(t, c.BlacklistToken(context.Background(), "jti-2", 0))
	assert.False(t, mr.Exists(blacklistPrefix+"jti-2"))
}

func TestCheckRateLimit(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := c.CheckRateLimit(ctx, "rl:test", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}

	allowed, err := c.CheckRateLimit(ctx, "rl:test", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestLeaderboard(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetXP(ctx, "ana", 350))
	require.NoError(t, c.SetXP(ctx, "ben", 900))
	require.NoError(t, c.SetXP(ctx, "cai", 120))
	require.NoError(t, c.SetXP(ctx, "ana", 1000))

	top, err := c.TopXP(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []LeaderboardEntry{
		{UserID: "ana", XP: 1000, Rank: 1},
		{UserID: "ben", XP: 900, Rank: 2},
	}, top)

	rank, err := c.RankOf(ctx, "cai")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rank)

	rank, err = c.RankOf(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rank)

	none, err := c.TopXP(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSetXP_NeverLowersScore(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetXP(ctx, "ana", 300))
	require.NoError(t, c.SetXP(ctx, "ana", 150))

	top, err := c.TopXP(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 300, top[0].XP)
}

func TestRebuildXP(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	ready, err := c.XPReady(ctx)
	require.NoError(t, err)
	assert.False(t, ready)

	// a publish before the rebuild leaves the set partial
	require.NoError(t, c.SetXP(ctx, "dave", 50))
	ready, err = c.XPReady(ctx)
	require.NoError(t, err)
	assert.False(t, ready)

	require.NoError(t, c.RebuildXP(ctx, []LeaderboardEntry{
		{UserID: "alice", XP: 900},
		{UserID: "carol", XP: 650},
		{UserID: "bob", XP: 400},
		{UserID: "dave", XP: 20},
	}))
	ready, err = c.XPReady(ctx)
	require.NoError(t, err)
	assert.True(t, ready)

	top, err := c.TopXP(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []LeaderboardEntry{
		{UserID: "alice", XP: 900, Rank: 1},
		{UserID: "carol", XP: 650, Rank: 2},
		{UserID: "bob", XP: 400, Rank: 3},
		{UserID: "dave", XP: 50, Rank: 4},
	}, top)

	// losing the set invalidates the marker
	mr.Del(leaderboardKey)
	ready, err = c.XPReady(ctx)
	require.NoError(t, err)
	assert.False(t, ready)
}
