package model

import (
	"time"

	"gorm.io/gorm"
)

// GuestCode table guest_codes. Activating a code opens a guest session.
type GuestCode struct {
	Code            string `gorm:"type:varchar(50);primaryKey" json:"code"`
	DurationMinutes int    `gorm:"not null"                    json:"duration_minutes"`
	MaxActivations  int    `gorm:"not null;default:1"          json:"max_activations"`
	Activations     int    `gorm:"not null;default:0"          json:"activations"`
	BaseModel
}

// TableName table name.
func (GuestCode) TableName() string { return "guest_codes" }

// GuestSession table guest_sessions. Only ConvertedAt is ever updated.
type GuestSession struct {
	ID          string     `gorm:"type:uuid;primaryKey"       json:"id"`
	UserID      string     `gorm:"type:uuid;not null;index"   json:"user_id"`
	GuestCode   string     `gorm:"type:varchar(50);not null"  json:"guest_code"`
	StartedAt   time.Time  `gorm:"not null"                   json:"started_at"`
	ExpiresAt   time.Time  `gorm:"not null"                   json:"expires_at"`
	ConvertedAt *time.Time `json:"converted_at,omitempty"`
}

// TableName table name.
func (GuestSession) TableName() string { return "guest_sessions" }

// BeforeCreate assigns the primary key.
func (g *GuestSession) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
