package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GapMarker separates the gaps of a gap-fill text.
const GapMarker = "___"

// Exercise table exercises: a gap-fill text and the expected answer per gap.
type Exercise struct {
	ID      string                      `gorm:"type:uuid;primaryKey"         json:"id"`
	Title   string                      `gorm:"type:varchar(200);not null"   json:"title"`
	Unit    string                      `gorm:"type:varchar(100);not null;index" json:"unit"`
	Text    string                      `gorm:"type:text;not null"           json:"text"`
	Answers datatypes.JSONSlice[string] `gorm:"not null"                     json:"-"`
	BaseModel
}

// TableName table name.
func (Exercise) TableName() string { return "exercises" }

// BeforeCreate assigns the primary key.
func (e *Exercise) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// ExerciseAttempt table exercise_attempts.
type ExerciseAttempt struct {
	ID         string    `gorm:"type:uuid;primaryKey"       json:"id"`
	UserID     string    `gorm:"type:uuid;not null;index"   json:"user_id"`
	ExerciseID string    `gorm:"type:uuid;not null;index"   json:"exercise_id"`
	Correct    int       `gorm:"not null"                   json:"correct"`
	Total      int       `gorm:"not null"                   json:"total"`
	XPGained   int       `gorm:"not null"                   json:"xp_gained"`
	CreatedAt  time.Time `gorm:"not null"                   json:"created_at"`
}

// TableName table name.
func (ExerciseAttempt) TableName() string { return "exercise_attempts" }

// BeforeCreate assigns the primary key.
func (a *ExerciseAttempt) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
