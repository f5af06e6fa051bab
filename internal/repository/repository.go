package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository aggregates every repository.
type Repository struct {
	db *gorm.DB

	User          UserRepository
	Progress      ProgressRepository
	PointsHistory PointsHistoryRepository
	Achievement   AchievementRepository
	GuestCode     GuestCodeRepository
	GuestSession  GuestSessionRepository
	BetaCode      BetaCodeRepository
	Exercise      ExerciseRepository
	Observation   ObservationRepository
	Challenge     ChallengeRepository
	Payment       PaymentRepository
}

// NewRepository builds the aggregate on db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:            db,
		User:          NewUserRepo(db),
		Progress:      NewProgressRepo(db),
		PointsHistory: NewPointsHistoryRepo(db),
		Achievement:   NewAchievementRepo(db),
		GuestCode:     NewGuestCodeRepo(db),
		GuestSession:  NewGuestSessionRepo(db),
		BetaCode:      NewBetaCodeRepo(db),
		Exercise:      NewExerciseRepo(db),
		Observation:   NewObservationRepo(db),
		Challenge:     NewChallengeRepo(db),
		Payment:       NewPaymentRepo(db),
	}
}

// BeginTx opens a transaction. It returns a nil tx when the aggregate has no
// database (hand-assembled aggregates in unit tests).
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx returns an aggregate whose repositories all run inside tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction runs fn inside a transaction and commits when fn succeeds.
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) (err error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	if tx == nil {
		return fn(r)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(r.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
