package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/config"
)

// Client wraps go-redis for the token blacklist, rate limiting and the XP
// leaderboard. Callers treat a nil *Client as "Redis unavailable".
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient connects and pings Redis.
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("redis connected", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// Wrap builds a Client around an existing go-redis client.
func Wrap(rdb *goredis.Client, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// ── token blacklist ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken revokes a token id until the token would have expired anyway.
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted reports whether a token id was revoked.
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── rate limiting ──

// CheckRateLimit implements a sliding-window limiter on a sorted set keyed by
// request time. It returns false once limit requests fall inside window.
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	if card.Val() >= int64(limit) {
		return false, nil
	}

	pipe = c.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ── leaderboard ──

const (
	leaderboardKey      = "leaderboard:xp"
	leaderboardReadyKey = "leaderboard:xp:ready"
)

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	XP     int    `json:"xp"`
	Rank   int64  `json:"rank"`
}

// SetXP records a user's XP total in the leaderboard. A score never moves
// down, so a publish that arrives out of order is ignored.
func (c *Client) SetXP(ctx context.Context, userID string, xp int) error {
	return c.rdb.ZAddGT(ctx, leaderboardKey, goredis.Z{Score: float64(xp), Member: userID}).Err()
}

// XPReady reports whether the leaderboard was rebuilt from a full snapshot
// and still holds members. Until then the set may only contain the users
// that published since startup.
func (c *Client) XPReady(ctx context.Context) (bool, error) {
	n, err := c.rdb.Exists(ctx, leaderboardReadyKey, leaderboardKey).Result()
	if err != nil {
		return false, err
	}
	return n == 2, nil
}

// RebuildXP merges a full snapshot into the leaderboard and marks it ready.
// Scores are merged with GT so a publish racing the snapshot is kept.
func (c *Client) RebuildXP(ctx context.Context, entries []LeaderboardEntry) error {
	pipe := c.rdb.TxPipeline()

	members := make([]goredis.Z, 0, len(entries))
	for _, e := range entries {
		if e.UserID == "" {
			continue
		}
		members = append(members, goredis.Z{Score: float64(e.XP), Member: e.UserID})
	}
	if len(members) > 0 {
		pipe.ZAddGT(ctx, leaderboardKey, members...)
	}
	pipe.Set(ctx, leaderboardReadyKey, "1", 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	c.logger.Info("leaderboard rebuilt", zap.Int("members", len(members)))
	return nil
}

// TopXP returns the top limit users by XP, highest first.
func (c *Client) TopXP(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	zs, err := c.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, LeaderboardEntry{
			UserID: member,
			XP:     int(z.Score),
			Rank:   int64(i + 1),
		})
	}
	return entries, nil
}

// RankOf returns the 1-based rank of a user, or 0 when the user is unranked.
func (c *Client) RankOf(ctx context.Context, userID string) (int64, error) {
	rank, err := c.rdb.ZRevRank(ctx, leaderboardKey, userID).Result()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rank + 1, nil
}
