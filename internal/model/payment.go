package model

import (
	"time"

	"gorm.io/gorm"
)

// Payment kinds.
const (
	PaymentKindDonation     = "donation"
	PaymentKindSubscription = "subscription"
)

// Payment table payments. ProviderSessionID is unique so webhook redelivery
// records a payment once.
type Payment struct {
	ID                string    `gorm:"type:uuid;primaryKey"                   json:"id"`
	UserID            string    `gorm:"type:uuid;not null;index"               json:"user_id"`
	ProviderSessionID string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"provider_session_id"`
	Kind              string    `gorm:"type:varchar(20);not null"              json:"kind"`
	AmountTotal       int64     `gorm:"not null"                               json:"amount_total"`
	Currency          string    `gorm:"type:varchar(10);not null"              json:"currency"`
	Status            string    `gorm:"type:varchar(30);not null"              json:"status"`
	CreatedAt         time.Time `gorm:"not null"                               json:"created_at"`
}

// TableName table name.
func (Payment) TableName() string { return "payments" }

// BeforeCreate assigns the primary key.
func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// All lists every model for AutoMigrate in tests.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserProgress{},
		&PointsHistory{},
		&UserAchievement{},
		&GuestCode{},
		&GuestSession{},
		&BetaInvitationCode{},
		&Exercise{},
		&ExerciseAttempt{},
		&Observation{},
		&ObservationLike{},
		&Challenge{},
		&Payment{},
	}
}
