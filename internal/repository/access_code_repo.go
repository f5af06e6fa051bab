package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
)

// ── beta invitation codes ──

// BetaCodeListFilters admin list filters.
type BetaCodeListFilters struct {
	Organization string
	BatchID      string
	Used         *bool
}

// BetaCodeRepository beta_invitation_codes data access.
type BetaCodeRepository interface {
	CreateBatch(ctx context.Context, codes []*model.BetaInvitationCode) error
	GetByCode(ctx context.Context, code string) (*model.BetaInvitationCode, error)
	// MarkUsed flips is_used with a conditional update. It reports false when
	// the code was already used or expired at `at`, so concurrent callers
	// cannot both succeed.
	MarkUsed(ctx context.Context, code, userID string, at time.Time) (bool, error)
	List(ctx context.Context, filters *BetaCodeListFilters, offset, limit int) ([]model.BetaInvitationCode, int64, error)
}

type betaCodeRepo struct {
	db *gorm.DB
}

// NewBetaCodeRepo creates a BetaCodeRepository.
func NewBetaCodeRepo(db *gorm.DB) BetaCodeRepository {
	return &betaCodeRepo{db: db}
}

func (r *betaCodeRepo) CreateBatch(ctx context.Context, codes []*model.BetaInvitationCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(codes, 100).Error
}

func (r *betaCodeRepo) GetByCode(ctx context.Context, code string) (*model.BetaInvitationCode, error) {
	var c model.BetaInvitationCode
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *betaCodeRepo) MarkUsed(ctx context.Context, code, userID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.BetaInvitationCode{}).
		Where("code = ? AND is_used = ?", code, false).
		Where("expires_at IS NULL OR expires_at > ?", at).
		Updates(map[string]interface{}{
			"is_used":    true,
			"used_by":    userID,
			"used_at":    at,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *betaCodeRepo) List(ctx context.Context, filters *BetaCodeListFilters, offset, limit int) ([]model.BetaInvitationCode, int64, error) {
	var codes []model.BetaInvitationCode
	var total int64

	db := r.db.WithContext(ctx).Model(&model.BetaInvitationCode{})
	if filters != nil {
		if filters.Organization != "" {
			db = db.Where("organization = ?", filters.Organization)
		}
		if filters.BatchID != "" {
			db = db.Where("batch_id = ?", filters.BatchID)
		}
		if filters.Used != nil {
			db = db.Where("is_used = ?", *filters.Used)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := db.Order("created_at DESC").Order("code ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

// ── guest codes and sessions ──

// GuestCodeRepository guest_codes data access.
type GuestCodeRepository interface {
	Create(ctx context.Context, code *model.GuestCode) error
	Get(ctx context.Context, code string) (*model.GuestCode, error)
	// Consume takes one activation; false when the code is exhausted.
	Consume(ctx context.Context, code string) (bool, error)
}

type guestCodeRepo struct {
	db *gorm.DB
}

// NewGuestCodeRepo creates a GuestCodeRepository.
func NewGuestCodeRepo(db *gorm.DB) GuestCodeRepository {
	return &guestCodeRepo{db: db}
}

func (r *guestCodeRepo) Create(ctx context.Context, code *model.GuestCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *guestCodeRepo) Get(ctx context.Context, code string) (*model.GuestCode, error) {
	var c model.GuestCode
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *guestCodeRepo) Consume(ctx context.Context, code string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.GuestCode{}).
		Where("code = ? AND activations < max_activations", code).
		Updates(map[string]interface{}{
			"activations": gorm.Expr("activations + 1"),
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GuestSessionRepository guest_sessions data access.
type GuestSessionRepository interface {
	Create(ctx context.Context, session *model.GuestSession) error
	LatestByUser(ctx context.Context, userID string) (*model.GuestSession, error)
	// MarkConverted sets converted_at once; false when already converted.
	MarkConverted(ctx context.Context, id string, at time.Time) (bool, error)
}

type guestSessionRepo struct {
	db *gorm.DB
}

// NewGuestSessionRepo creates a GuestSessionRepository.
func NewGuestSessionRepo(db *gorm.DB) GuestSessionRepository {
	return &guestSessionRepo{db: db}
}

func (r *guestSessionRepo) Create(ctx context.Context, session *model.GuestSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *guestSessionRepo) LatestByUser(ctx context.Context, userID string) (*model.GuestSession, error) {
	var s model.GuestSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *guestSessionRepo) MarkConverted(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.GuestSession{}).
		Where("id = ? AND converted_at IS NULL", id).
		Update("converted_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
