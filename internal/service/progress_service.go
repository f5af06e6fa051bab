package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/config"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/progression"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/clock"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
)

// maxCompletionAttempts bounds the optimistic-lock retries of one completion.
const maxCompletionAttempts = 3

// ErrNothingAttempted rejects a completion with no answers: it would count
// towards the streak and the exercise counter without any activity.
var ErrNothingAttempted = pkgerrors.Validation("a completion needs at least one answer")

// Completion is one finished exercise or mini-game.
type Completion struct {
	UserID   string
	Correct  int
	Total    int
	Reason   string
	SourceID string
	// ExerciseID is set when a stored exercise was graded; an attempt row is
	// recorded alongside the progress update.
	ExerciseID string
}

// ProgressService XP, levels, streaks and points history.
type ProgressService interface {
	// RecordCompletion scores a completion and persists progress, points
	// history and achievements in one transaction.
	RecordCompletion(ctx context.Context, in Completion) (*dto.CompletionResponse, error)
	GetProgress(ctx context.Context, userID string) (*dto.ProgressResponse, error)
	History(ctx context.Context, userID string, req *dto.PointsHistoryRequest) ([]dto.PointsHistoryItem, int64, error)
	// Award grants a flat amount of XP outside the exercise flow (donations).
	Award(ctx context.Context, tx *repository.Repository, userID string, points int, reason, sourceID string) (int, error)
	// Publish pushes a user's XP total to the leaderboard cache.
	Publish(ctx context.Context, userID string, xp int)
}

type progressService struct {
	repo    *repository.Repository
	calc    *progression.Calculator
	streaks *progression.StreakTracker
	loc     *time.Location
	cache   LeaderboardCache
	clock   clock.Clock
	logger  *zap.Logger
}

// NewProgressService creates a ProgressService. cache may be nil.
func NewProgressService(
	cfg *config.Config,
	repo *repository.Repository,
	cache LeaderboardCache,
	clk clock.Clock,
	logger *zap.Logger,
) ProgressService {
	return &progressService{
		repo:    repo,
		calc:    progression.NewCalculator(cfg.Progression.LevelThreshold, progression.BonusPolicy(cfg.Progression.BonusPolicy)),
		streaks: progression.NewStreakTracker(progression.StreakPolicy(cfg.Progression.StreakPolicy)),
		loc:     cfg.App.Location(),
		cache:   cache,
		clock:   clk,
		logger:  logger,
	}
}

// ────────────────────── RecordCompletion ──────────────────────

func (s *progressService) RecordCompletion(ctx context.Context, in Completion) (*dto.CompletionResponse, error) {
	if in.Reason == "" {
		in.Reason = model.PointsReasonExercise
	}
	// reject bad input before opening a transaction
	if _, err := s.calc.Calculate(0, in.Correct, in.Total); err != nil {
		return nil, err
	}
	if in.Total == 0 {
		return nil, ErrNothingAttempted
	}

	now := s.clock.Now()
	today := clock.DateOf(now, s.loc)

	var (
		resp *dto.CompletionResponse
		err  error
	)
	for attempt := 1; attempt <= maxCompletionAttempts; attempt++ {
		resp, err = s.applyCompletion(ctx, in, now.UTC(), today)
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			break
		}
		s.logger.Warn("progress update conflicted",
			zap.String("user_id", in.UserID),
			zap.Int("attempt", attempt),
		)
	}
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("record completion failed", zap.String("user_id", in.UserID), zap.Error(err))
		}
		return nil, err
	}

	s.Publish(ctx, in.UserID, resp.TotalXP)
	return resp, nil
}

func (s *progressService) applyCompletion(ctx context.Context, in Completion, now, today time.Time) (*dto.CompletionResponse, error) {
	var resp *dto.CompletionResponse

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		p, err := tx.Progress.GetOrCreate(ctx, in.UserID)
		if err != nil {
			return err
		}

		result, err := s.calc.Calculate(p.XP, in.Correct, in.Total)
		if err != nil {
			return err
		}
		streak := s.streaks.Next(p.Streak, p.LastActiveDate, today)

		activeDate := today
		if !streak.IsNewDay && p.LastActiveDate != nil {
			activeDate = *p.LastActiveDate
		}

		if err := tx.Progress.ApplyCompletion(ctx, repository.CompletionUpdate{
			UserID:          in.UserID,
			ExpectedVersion: p.Version,
			XPGained:        result.XPGained,
			LevelThreshold:  s.calc.Threshold(),
			Streak:          streak.Streak,
			ActiveDate:      activeDate,
			Perfect:         result.Perfect(),
		}); err != nil {
			return err
		}

		if result.XPGained > 0 {
			if err := tx.PointsHistory.Append(ctx, &model.PointsHistory{
				UserID:       in.UserID,
				PointsChange: result.XPGained,
				Reason:       in.Reason,
				SourceID:     in.SourceID,
				CreatedAt:    now,
			}); err != nil {
				return err
			}
		}

		newAchievements := make([]string, 0, len(result.Achievements))
		for _, name := range result.Achievements {
			awarded, err := tx.Achievement.Award(ctx, in.UserID, name, now)
			if err != nil {
				return err
			}
			if awarded {
				newAchievements = append(newAchievements, name)
			}
		}

		if in.ExerciseID != "" {
			if err := tx.Exercise.RecordAttempt(ctx, &model.ExerciseAttempt{
				UserID:     in.UserID,
				ExerciseID: in.ExerciseID,
				Correct:    in.Correct,
				Total:      in.Total,
				XPGained:   result.XPGained,
				CreatedAt:  now,
			}); err != nil {
				return err
			}
		}

		resp = toCompletionResponse(result, streak, newAchievements)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ────────────────────── Award / Publish ──────────────────────

func (s *progressService) Award(ctx context.Context, tx *repository.Repository, userID string, points int, reason, sourceID string) (int, error) {
	if tx == nil {
		tx = s.repo
	}
	if _, err := tx.Progress.GetOrCreate(ctx, userID); err != nil {
		return 0, err
	}
	if err := tx.Progress.AddXP(ctx, userID, points, s.calc.Threshold()); err != nil {
		return 0, err
	}
	if err := tx.PointsHistory.Append(ctx, &model.PointsHistory{
		UserID:       userID,
		PointsChange: points,
		Reason:       reason,
		SourceID:     sourceID,
		CreatedAt:    s.clock.Now().UTC(),
	}); err != nil {
		return 0, err
	}
	p, err := tx.Progress.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.XP, nil
}

func (s *progressService) Publish(ctx context.Context, userID string, xp int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetXP(ctx, userID, xp); err != nil {
		// the database stays authoritative; the leaderboard falls back to it
		s.logger.Warn("leaderboard update failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// ────────────────────── GetProgress / History ──────────────────────

func (s *progressService) GetProgress(ctx context.Context, userID string) (*dto.ProgressResponse, error) {
	p, err := s.repo.Progress.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("load progress failed", zap.String("user_id", userID), zap.Error(err))
			return nil, err
		}
		p = &model.UserProgress{UserID: userID}
	}
	return s.toProgressResponse(p), nil
}

func (s *progressService) History(ctx context.Context, userID string, req *dto.PointsHistoryRequest) ([]dto.PointsHistoryItem, int64, error) {
	entries, total, err := s.repo.PointsHistory.ListByUser(ctx, userID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list points history failed", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}
	return toPointsHistoryItems(entries), total, nil
}

// ── converters ──

func (s *progressService) toProgressResponse(p *model.UserProgress) *dto.ProgressResponse {
	b := s.calc.Breakdown(p.XP)
	return &dto.ProgressResponse{
		UserID:               p.UserID,
		XP:                   p.XP,
		Level:                b.Level,
		XPIntoLevel:          b.XPIntoLevel,
		XPToNextLevel:        b.XPToNextLevel,
		LevelProgressPercent: b.LevelProgressPercent,
		Streak:               p.Streak,
		LastActiveDate:       formatDatePtr(p.LastActiveDate),
		ExercisesCompleted:   p.ExercisesCompleted,
		PerfectScores:        p.PerfectScores,
	}
}

func toCompletionResponse(r progression.Result, st progression.StreakResult, newAchievements []string) *dto.CompletionResponse {
	achievements := r.Achievements
	if achievements == nil {
		achievements = []string{}
	}
	return &dto.CompletionResponse{
		BaseXP:          r.BaseXP,
		BonusXP:         r.BonusXP,
		XPGained:        r.XPGained,
		TotalXP:         r.NewXP,
		Level:           r.NewLevel,
		LeveledUp:       r.LeveledUp,
		Achievements:    achievements,
		NewAchievements: newAchievements,
		Streak:          st.Streak,
		IsNewDay:        st.IsNewDay,
	}
}

func toPointsHistoryItems(entries []model.PointsHistory) []dto.PointsHistoryItem {
	items := make([]dto.PointsHistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.PointsHistoryItem{
			ID:           e.ID,
			PointsChange: e.PointsChange,
			Reason:       e.Reason,
			SourceID:     e.SourceID,
			CreatedAt:    formatTime(e.CreatedAt),
		})
	}
	return items
}
