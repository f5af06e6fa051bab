package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
)

// PointsHistoryRepository points_history data access. Append-only.
type PointsHistoryRepository interface {
	Append(ctx context.Context, entry *model.PointsHistory) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.PointsHistory, int64, error)
	SumByUser(ctx context.Context, userID string) (int, error)
	// SumInWindow sums points earned in [from, to).
	SumInWindow(ctx context.Context, userID string, from, to time.Time) (int, error)
}

type pointsHistoryRepo struct {
	db *gorm.DB
}

// NewPointsHistoryRepo creates a PointsHistoryRepository.
func NewPointsHistoryRepo(db *gorm.DB) PointsHistoryRepository {
	return &pointsHistoryRepo{db: db}
}

func (r *pointsHistoryRepo) Append(ctx context.Context, entry *model.PointsHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *pointsHistoryRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.PointsHistory, int64, error) {
	var entries []model.PointsHistory
	var total int64

	db := r.db.WithContext(ctx).Model(&model.PointsHistory{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *pointsHistoryRepo) SumByUser(ctx context.Context, userID string) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).
		Model(&model.PointsHistory{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points_change), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *pointsHistoryRepo) SumInWindow(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).
		Model(&model.PointsHistory{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		Select("COALESCE(SUM(points_change), 0)").
		Scan(&sum).Error
	return sum, err
}

// AchievementRepository user_achievements data access.
type AchievementRepository interface {
	// Award inserts the achievement and reports whether it is new for the user.
	Award(ctx context.Context, userID, name string, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]model.UserAchievement, error)
}

type achievementRepo struct {
	db *gorm.DB
}

// NewAchievementRepo creates an AchievementRepository.
func NewAchievementRepo(db *gorm.DB) AchievementRepository {
	return &achievementRepo{db: db}
}

func (r *achievementRepo) Award(ctx context.Context, userID, name string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserAchievement{UserID: userID, Name: name, AwardedAt: at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *achievementRepo) ListByUser(ctx context.Context, userID string) ([]model.UserAchievement, error) {
	var rows []model.UserAchievement
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("awarded_at ASC").
		Find(&rows).Error
	return rows, err
}
