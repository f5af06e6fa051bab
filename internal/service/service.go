package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/config"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/clock"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/jwt"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/payment"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/redis"
)

// LeaderboardCache is the Redis-backed XP ranking. Reads are trusted only
// once XPReady reports a completed rebuild.
type LeaderboardCache interface {
	SetXP(ctx context.Context, userID string, xp int) error
	TopXP(ctx context.Context, limit int) ([]redis.LeaderboardEntry, error)
	RankOf(ctx context.Context, userID string) (int64, error)
	XPReady(ctx context.Context) (bool, error)
	RebuildXP(ctx context.Context, entries []redis.LeaderboardEntry) error
}

// TokenRevoker blacklists identity tokens until they expire.
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Service aggregates every service.
type Service struct {
	Auth        AuthService
	User        UserService
	Progress    ProgressService
	Exercise    ExerciseService
	BetaCode    BetaCodeService
	Guest       GuestService
	Payment     PaymentService
	Community   CommunityService
	Leaderboard LeaderboardService
	Dashboard   DashboardService
}

// NewService builds the aggregate. rdb may be nil, in which case the
// leaderboard reads the database and logout is a no-op.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	verifier payment.Verifier,
	clk clock.Clock,
	logger *zap.Logger,
) *Service {
	var (
		cache   LeaderboardCache
		revoker TokenRevoker
	)
	if rdb != nil {
		cache = rdb
		revoker = rdb
	}

	progress := NewProgressService(cfg, repo, cache, clk, logger)
	community := NewCommunityService(repo, clk, logger)
	leaderboard := NewLeaderboardService(repo, cache, logger)

	return &Service{
		Auth:        NewAuthService(revoker, clk, logger),
		User:        NewUserService(repo, progress, logger),
		Progress:    progress,
		Exercise:    NewExerciseService(repo, progress, logger),
		BetaCode:    NewBetaCodeService(&cfg.Beta, repo, clk, logger),
		Guest:       NewGuestService(&cfg.Guest, repo, jwtMgr, clk, logger),
		Payment:     NewPaymentService(repo, verifier, progress, clk, logger),
		Community:   community,
		Leaderboard: leaderboard,
		Dashboard:   NewDashboardService(progress, leaderboard, community, logger),
	}
}

// ── formatting helpers ──

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}
