package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/redis"
)

// Leaderboard sources.
const (
	LeaderboardSourceCache    = "cache"
	LeaderboardSourceDatabase = "database"

	defaultLeaderboardLimit = 10
	dashboardHistorySize    = 5
)

// LeaderboardService XP rankings.
type LeaderboardService interface {
	// Top reads the cache first and falls back to the database when the
	// cache is missing, failing or not yet rebuilt.
	Top(ctx context.Context, limit int) (*dto.LeaderboardResponse, error)
	// RankOf returns the 1-based rank of a user, 0 when unranked.
	RankOf(ctx context.Context, userID string) (int64, error)
	// Rebuild loads every user's XP from the database into the cache.
	Rebuild(ctx context.Context) error
}

type leaderboardService struct {
	repo    *repository.Repository
	cache   LeaderboardCache
	rebuild singleflight.Group
	logger  *zap.Logger
}

// NewLeaderboardService creates a LeaderboardService. cache may be nil.
func NewLeaderboardService(repo *repository.Repository, cache LeaderboardCache, logger *zap.Logger) LeaderboardService {
	return &leaderboardService{repo: repo, cache: cache, logger: logger}
}

func (s *leaderboardService) Top(ctx context.Context, limit int) (*dto.LeaderboardResponse, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	if s.cacheReady(ctx) {
		entries, err := s.cache.TopXP(ctx, limit)
		if err != nil {
			s.logger.Warn("leaderboard cache read failed", zap.Error(err))
		} else if len(entries) > 0 {
			out := make([]dto.LeaderboardEntry, 0, len(entries))
			for _, e := range entries {
				out = append(out, dto.LeaderboardEntry{Rank: e.Rank, UserID: e.UserID, XP: e.XP})
			}
			return &dto.LeaderboardResponse{Entries: out, Source: LeaderboardSourceCache}, nil
		}
	}

	rows, err := s.repo.Progress.TopByXP(ctx, limit)
	if err != nil {
		s.logger.Error("leaderboard query failed", zap.Error(err))
		return nil, err
	}
	out := make([]dto.LeaderboardEntry, 0, len(rows))
	for i, p := range rows {
		out = append(out, dto.LeaderboardEntry{Rank: int64(i + 1), UserID: p.UserID, XP: p.XP})
	}
	return &dto.LeaderboardResponse{Entries: out, Source: LeaderboardSourceDatabase}, nil
}

func (s *leaderboardService) RankOf(ctx context.Context, userID string) (int64, error) {
	if s.cacheReady(ctx) {
		rank, err := s.cache.RankOf(ctx, userID)
		if err != nil {
			s.logger.Warn("leaderboard cache rank failed", zap.Error(err))
		} else if rank > 0 {
			return rank, nil
		}
	}
	rank, err := s.repo.Progress.RankOf(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		s.logger.Error("rank query failed", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	return rank, nil
}

func (s *leaderboardService) Rebuild(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	_, err, _ := s.rebuild.Do("xp", func() (interface{}, error) {
		rows, err := s.repo.Progress.AllXP(ctx)
		if err != nil {
			return nil, err
		}
		entries := make([]redis.LeaderboardEntry, 0, len(rows))
		for _, p := range rows {
			entries = append(entries, redis.LeaderboardEntry{UserID: p.UserID, XP: p.XP})
		}
		return nil, s.cache.RebuildXP(ctx, entries)
	})
	return err
}

// cacheReady rebuilds the cache when its ready marker is missing. A cache
// that was only filled by publishes is never read.
func (s *leaderboardService) cacheReady(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}
	ready, err := s.cache.XPReady(ctx)
	if err != nil {
		s.logger.Warn("leaderboard cache check failed", zap.Error(err))
		return false
	}
	if ready {
		return true
	}
	if err := s.Rebuild(ctx); err != nil {
		s.logger.Warn("leaderboard rebuild failed", zap.Error(err))
		return false
	}
	return true
}

// ── dashboard ──

// DashboardService the learner's home screen.
type DashboardService interface {
	Get(ctx context.Context, userID string) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	progress    ProgressService
	leaderboard LeaderboardService
	community   CommunityService
	logger      *zap.Logger
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(progress ProgressService, leaderboard LeaderboardService, community CommunityService, logger *zap.Logger) DashboardService {
	return &dashboardService{progress: progress, leaderboard: leaderboard, community: community, logger: logger}
}

// Get loads the dashboard sections concurrently; any failure fails the whole.
func (s *dashboardService) Get(ctx context.Context, userID string) (*dto.DashboardResponse, error) {
	var (
		resp     dto.DashboardResponse
		progress *dto.ProgressResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		progress, err = s.progress.GetProgress(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		resp.Rank, err = s.leaderboard.RankOf(gctx, userID)
		return err
	})
	g.Go(func() error {
		req := &dto.PointsHistoryRequest{}
		req.PageSize = dashboardHistorySize
		var err error
		resp.RecentHistory, _, err = s.progress.History(gctx, userID, req)
		return err
	})
	g.Go(func() error {
		var err error
		resp.ActiveChallenges, err = s.community.ActiveChallenges(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("load dashboard failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	resp.Progress = *progress
	return &resp, nil
}
