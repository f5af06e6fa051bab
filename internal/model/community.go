package model

import (
	"time"

	"gorm.io/gorm"
)

// Observation table observations: a wildlife sighting shared by a learner.
type Observation struct {
	ID      string `gorm:"type:uuid;primaryKey"          json:"id"`
	UserID  string `gorm:"type:uuid;not null;index"      json:"user_id"`
	Title   string `gorm:"type:varchar(200);not null"    json:"title"`
	Species string `gorm:"type:varchar(200);not null;default:''" json:"species"`
	Likes   int    `gorm:"not null;default:0"            json:"likes"`
	BaseModel
}

// TableName table name.
func (Observation) TableName() string { return "observations" }

// BeforeCreate assigns the primary key.
func (o *Observation) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// ObservationLike table observation_likes, one row per (observation, user).
type ObservationLike struct {
	ObservationID string    `gorm:"type:uuid;primaryKey" json:"observation_id"`
	UserID        string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt     time.Time `gorm:"not null"             json:"created_at"`
}

// TableName table name.
func (ObservationLike) TableName() string { return "observation_likes" }

// Challenge table challenges: earn TargetXP between StartsAt and EndsAt.
type Challenge struct {
	ID       string    `gorm:"type:uuid;primaryKey"       json:"id"`
	Title    string    `gorm:"type:varchar(200);not null" json:"title"`
	TargetXP int       `gorm:"not null"                   json:"target_xp"`
	StartsAt time.Time `gorm:"not null"                   json:"starts_at"`
	EndsAt   time.Time `gorm:"not null"                   json:"ends_at"`
	BaseModel
}

// TableName table name.
func (Challenge) TableName() string { return "challenges" }

// BeforeCreate assigns the primary key.
func (c *Challenge) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
