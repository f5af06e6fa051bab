package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/clock"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
)

// ── community errors ──

var (
	ErrObservationNotFound = pkgerrors.NotFound("observation")
	ErrChallengeNotFound   = pkgerrors.NotFound("challenge")
)

// CommunityService observations, likes and challenges.
type CommunityService interface {
	CreateObservation(ctx context.Context, userID string, req *dto.CreateObservationRequest) (*dto.ObservationResponse, error)
	CreateChallenge(ctx context.Context, req *dto.CreateChallengeRequest) (*dto.ChallengeResponse, error)
	// ToggleLike likes an observation, or removes the caller's existing like.
	ToggleLike(ctx context.Context, userID, observationID string) (*dto.LikeResponse, error)
	ChallengeProgress(ctx context.Context, userID, challengeID string) (*dto.ChallengeProgressResponse, error)
	ActiveChallenges(ctx context.Context, userID string) ([]dto.ChallengeProgressResponse, error)
}

type communityService struct {
	repo   *repository.Repository
	clock  clock.Clock
	logger *zap.Logger
}

// NewCommunityService creates a CommunityService.
func NewCommunityService(repo *repository.Repository, clk clock.Clock, logger *zap.Logger) CommunityService {
	return &communityService{repo: repo, clock: clk, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *communityService) CreateObservation(ctx context.Context, userID string, req *dto.CreateObservationRequest) (*dto.ObservationResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, pkgerrors.Validation("title is required")
	}
	now := s.clock.Now().UTC()
	o := &model.Observation{
		UserID:    userID,
		Title:     title,
		Species:   strings.TrimSpace(req.Species),
		BaseModel: model.BaseModel{CreatedAt: now, UpdatedAt: now},
	}
	if err := s.repo.Observation.Create(ctx, o); err != nil {
		s.logger.Error("create observation failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &dto.ObservationResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Title:     o.Title,
		Species:   o.Species,
		Likes:     o.Likes,
		CreatedAt: formatTime(o.CreatedAt),
	}, nil
}

func (s *communityService) CreateChallenge(ctx context.Context, req *dto.CreateChallengeRequest) (*dto.ChallengeResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, pkgerrors.Validation("title is required")
	}
	if req.TargetXP < 1 {
		return nil, pkgerrors.Validation("target XP must be positive")
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, pkgerrors.Validation("a challenge must end after it starts")
	}

	now := s.clock.Now().UTC()
	c := &model.Challenge{
		Title:     title,
		TargetXP:  req.TargetXP,
		StartsAt:  req.StartsAt.UTC(),
		EndsAt:    req.EndsAt.UTC(),
		BaseModel: model.BaseModel{CreatedAt: now, UpdatedAt: now},
	}
	if err := s.repo.Challenge.Create(ctx, c); err != nil {
		s.logger.Error("create challenge failed", zap.Error(err))
		return nil, err
	}
	s.logger.Info("challenge created", zap.String("id", c.ID), zap.Int("target_xp", c.TargetXP))
	return &dto.ChallengeResponse{
		ID:       c.ID,
		Title:    c.Title,
		TargetXP: c.TargetXP,
		StartsAt: formatTime(c.StartsAt),
		EndsAt:   formatTime(c.EndsAt),
	}, nil
}

// ────────────────────── ToggleLike ──────────────────────

func (s *communityService) ToggleLike(ctx context.Context, userID, observationID string) (*dto.LikeResponse, error) {
	if _, err := s.repo.Observation.GetByID(ctx, observationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrObservationNotFound
		}
		s.logger.Error("load observation failed", zap.String("id", observationID), zap.Error(err))
		return nil, err
	}

	resp := &dto.LikeResponse{ObservationID: observationID}
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		removed, err := tx.Observation.RemoveLike(ctx, observationID, userID)
		if err != nil {
			return err
		}
		if !removed {
			if _, err := tx.Observation.AddLike(ctx, observationID, userID, s.clock.Now().UTC()); err != nil {
				return err
			}
		}
		resp.Liked = !removed
		resp.Likes, err = tx.Observation.RecountLikes(ctx, observationID)
		return err
	})
	if err != nil {
		s.logger.Error("toggle like failed", zap.String("observation_id", observationID), zap.Error(err))
		return nil, err
	}
	return resp, nil
}

// ────────────────────── Challenges ──────────────────────

func (s *communityService) ChallengeProgress(ctx context.Context, userID, challengeID string) (*dto.ChallengeProgressResponse, error) {
	c, err := s.repo.Challenge.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		s.logger.Error("load challenge failed", zap.String("id", challengeID), zap.Error(err))
		return nil, err
	}
	return s.progressFor(ctx, userID, c)
}

func (s *communityService) ActiveChallenges(ctx context.Context, userID string) ([]dto.ChallengeProgressResponse, error) {
	rows, err := s.repo.Challenge.ListActive(ctx, s.clock.Now().UTC())
	if err != nil {
		s.logger.Error("list active challenges failed", zap.Error(err))
		return nil, err
	}
	out := make([]dto.ChallengeProgressResponse, 0, len(rows))
	for i := range rows {
		p, err := s.progressFor(ctx, userID, &rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *communityService) progressFor(ctx context.Context, userID string, c *model.Challenge) (*dto.ChallengeProgressResponse, error) {
	earned, err := s.repo.PointsHistory.SumInWindow(ctx, userID, c.StartsAt, c.EndsAt)
	if err != nil {
		s.logger.Error("sum challenge points failed", zap.String("challenge_id", c.ID), zap.Error(err))
		return nil, err
	}
	if earned < 0 {
		earned = 0
	}

	percent := 0.0
	if c.TargetXP > 0 {
		percent = float64(earned) / float64(c.TargetXP) * 100
		if percent > 100 {
			percent = 100
		}
	}

	return &dto.ChallengeProgressResponse{
		ChallengeID:     c.ID,
		Title:           c.Title,
		TargetXP:        c.TargetXP,
		EarnedXP:        earned,
		PercentComplete: percent,
		Completed:       c.TargetXP > 0 && earned >= c.TargetXP,
		StartsAt:        formatTime(c.StartsAt),
		EndsAt:          formatTime(c.EndsAt),
	}, nil
}
