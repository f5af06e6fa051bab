package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
)

// ExerciseRepository exercises and attempts data access.
type ExerciseRepository interface {
	Create(ctx context.Context, e *model.Exercise) error
	GetByID(ctx context.Context, id string) (*model.Exercise, error)
	List(ctx context.Context, unit string) ([]model.Exercise, error)
	RecordAttempt(ctx context.Context, a *model.ExerciseAttempt) error
}

type exerciseRepo struct {
	db *gorm.DB
}

// NewExerciseRepo creates an ExerciseRepository.
func NewExerciseRepo(db *gorm.DB) ExerciseRepository {
	return &exerciseRepo{db: db}
}

func (r *exerciseRepo) Create(ctx context.Context, e *model.Exercise) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *exerciseRepo) GetByID(ctx context.Context, id string) (*model.Exercise, error) {
	var e model.Exercise
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *exerciseRepo) List(ctx context.Context, unit string) ([]model.Exercise, error) {
	var rows []model.Exercise
	db := r.db.WithContext(ctx)
	if unit != "" {
		db = db.Where("unit = ?", unit)
	}
	err := db.Order("unit ASC").Order("title ASC").Find(&rows).Error
	return rows, err
}

func (r *exerciseRepo) RecordAttempt(ctx context.Context, a *model.ExerciseAttempt) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// ObservationRepository observations and likes data access.
type ObservationRepository interface {
	Create(ctx context.Context, o *model.Observation) error
	GetByID(ctx context.Context, id string) (*model.Observation, error)
	// RemoveLike deletes the like and reports whether one existed.
	RemoveLike(ctx context.Context, observationID, userID string) (bool, error)
	// AddLike inserts the like and reports whether it is new.
	AddLike(ctx context.Context, observationID, userID string, at time.Time) (bool, error)
	// RecountLikes recomputes and stores the like counter.
	RecountLikes(ctx context.Context, observationID string) (int, error)
}

type observationRepo struct {
	db *gorm.DB
}

// NewObservationRepo creates an ObservationRepository.
func NewObservationRepo(db *gorm.DB) ObservationRepository {
	return &observationRepo{db: db}
}

func (r *observationRepo) Create(ctx context.Context, o *model.Observation) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *observationRepo) GetByID(ctx context.Context, id string) (*model.Observation, error) {
	var o model.Observation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *observationRepo) RemoveLike(ctx context.Context, observationID, userID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("observation_id = ? AND user_id = ?", observationID, userID).
		Delete(&model.ObservationLike{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *observationRepo) AddLike(ctx context.Context, observationID, userID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ObservationLike{ObservationID: observationID, UserID: userID, CreatedAt: at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *observationRepo) RecountLikes(ctx context.Context, observationID string) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&model.ObservationLike{}).
		Where("observation_id = ?", observationID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	err := r.db.WithContext(ctx).
		Model(&model.Observation{}).
		Where("id = ?", observationID).
		Updates(map[string]interface{}{"likes": n, "updated_at": time.Now().UTC()}).Error
	return int(n), err
}

// ChallengeRepository challenges data access.
type ChallengeRepository interface {
	Create(ctx context.Context, c *model.Challenge) error
	GetByID(ctx context.Context, id string) (*model.Challenge, error)
	ListActive(ctx context.Context, at time.Time) ([]model.Challenge, error)
}

type challengeRepo struct {
	db *gorm.DB
}

// NewChallengeRepo creates a ChallengeRepository.
func NewChallengeRepo(db *gorm.DB) ChallengeRepository {
	return &challengeRepo{db: db}
}

func (r *challengeRepo) Create(ctx context.Context, c *model.Challenge) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *challengeRepo) GetByID(ctx context.Context, id string) (*model.Challenge, error) {
	var c model.Challenge
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *challengeRepo) ListActive(ctx context.Context, at time.Time) ([]model.Challenge, error) {
	var rows []model.Challenge
	err := r.db.WithContext(ctx).
		Where("starts_at <= ? AND ends_at > ?", at, at).
		Order("ends_at ASC").
		Find(&rows).Error
	return rows, err
}

// PaymentRepository payments data access.
type PaymentRepository interface {
	// CreateIfAbsent inserts the payment unless its provider session was
	// already recorded, and reports whether it inserted.
	CreateIfAbsent(ctx context.Context, p *model.Payment) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]model.Payment, error)
}

type paymentRepo struct {
	db *gorm.DB
}

// NewPaymentRepo creates a PaymentRepository.
func NewPaymentRepo(db *gorm.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) CreateIfAbsent(ctx context.Context, p *model.Payment) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_session_id"}},
			DoNothing: true,
		}).
		Create(p)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, userID string) ([]model.Payment, error) {
	var rows []model.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
