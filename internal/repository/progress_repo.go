package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
)

// CompletionUpdate describes one completed exercise applied to a progress row.
type CompletionUpdate struct {
	UserID          string
	ExpectedVersion int
	XPGained        int
	LevelThreshold  int
	Streak          int
	ActiveDate      time.Time
	Perfect         bool
}

// ProgressRepository user_progress data access.
type ProgressRepository interface {
	Get(ctx context.Context, userID string) (*model.UserProgress, error)
	// GetOrCreate returns the row, inserting an empty one on first use.
	GetOrCreate(ctx context.Context, userID string) (*model.UserProgress, error)
	// ApplyCompletion increments XP atomically and writes the streak, guarded
	// by the row version. A stale version yields pkgerrors.ErrOptimisticLock.
	ApplyCompletion(ctx context.Context, u CompletionUpdate) error
	// AddXP atomically increments XP and recomputes the level.
	AddXP(ctx context.Context, userID string, delta, levelThreshold int) error
	TopByXP(ctx context.Context, limit int) ([]model.UserProgress, error)
	// AllXP returns user_id and xp for every row, used to rebuild the cache.
	AllXP(ctx context.Context) ([]model.UserProgress, error)
	// RankOf returns 1 + the number of users with strictly more XP.
	RankOf(ctx context.Context, userID string) (int64, error)
}

type progressRepo struct {
	db *gorm.DB
}

// NewProgressRepo creates a ProgressRepository.
func NewProgressRepo(db *gorm.DB) ProgressRepository {
	return &progressRepo{db: db}
}

func (r *progressRepo) Get(ctx context.Context, userID string) (*model.UserProgress, error) {
	var p model.UserProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *progressRepo) GetOrCreate(ctx context.Context, userID string) (*model.UserProgress, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserProgress{UserID: userID, VersionedModel: model.VersionedModel{Version: 1}}).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, userID)
}

func (r *progressRepo) ApplyCompletion(ctx context.Context, u CompletionUpdate) error {
	perfect := 0
	if u.Perfect {
		perfect = 1
	}
	result := r.db.WithContext(ctx).
		Model(&model.UserProgress{}).
		Where("user_id = ? AND version = ?", u.UserID, u.ExpectedVersion).
		Updates(map[string]interface{}{
			"xp":                  gorm.Expr("xp + ?", u.XPGained),
			"level":               gorm.Expr("(xp + ?) / ?", u.XPGained, u.LevelThreshold),
			"streak":              u.Streak,
			"last_active_date":    u.ActiveDate,
			"exercises_completed": gorm.Expr("exercises_completed + 1"),
			"perfect_scores":      gorm.Expr("perfect_scores + ?", perfect),
			"version":             gorm.Expr("version + 1"),
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *progressRepo) AddXP(ctx context.Context, userID string, delta, levelThreshold int) error {
	result := r.db.WithContext(ctx).
		Model(&model.UserProgress{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"xp":         gorm.Expr("xp + ?", delta),
			"level":      gorm.Expr("(xp + ?) / ?", delta, levelThreshold),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *progressRepo) TopByXP(ctx context.Context, limit int) ([]model.UserProgress, error) {
	var rows []model.UserProgress
	err := r.db.WithContext(ctx).
		Order("xp DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *progressRepo) AllXP(ctx context.Context) ([]model.UserProgress, error) {
	var rows []model.UserProgress
	err := r.db.WithContext(ctx).
		Select("user_id", "xp").
		Order("xp DESC").
		Find(&rows).Error
	return rows, err
}

func (r *progressRepo) RankOf(ctx context.Context, userID string) (int64, error) {
	p, err := r.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	var ahead int64
	err = r.db.WithContext(ctx).
		Model(&model.UserProgress{}).
		Where("xp > ?", p.XP).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return ahead + 1, nil
}
