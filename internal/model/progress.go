package model

import (
	"time"

	"gorm.io/gorm"
)

// UserProgress table user_progress. Level is always written in the same
// statement as the XP it was derived from.
type UserProgress struct {
	UserID             string     `gorm:"type:uuid;primaryKey"    json:"user_id"`
	XP                 int        `gorm:"not null;default:0"      json:"xp"`
	Level              int        `gorm:"not null;default:0"      json:"level"`
	Streak             int        `gorm:"not null;default:0"      json:"streak"`
	LastActiveDate     *time.Time `gorm:"type:date"               json:"last_active_date,omitempty"`
	ExercisesCompleted int        `gorm:"not null;default:0"      json:"exercises_completed"`
	PerfectScores      int        `gorm:"not null;default:0"      json:"perfect_scores"`
	VersionedModel
}

// TableName table name.
func (UserProgress) TableName() string { return "user_progress" }

// Points history reasons.
const (
	PointsReasonExercise = "exercise"
	PointsReasonGame     = "game"
	PointsReasonDonation = "donation"
)

// PointsHistory table points_history. Append-only; the running sum per user
// equals UserProgress.XP.
type PointsHistory struct {
	ID           string    `gorm:"type:uuid;primaryKey"             json:"id"`
	UserID       string    `gorm:"type:uuid;not null;index"         json:"user_id"`
	PointsChange int       `gorm:"not null"                         json:"points_change"`
	Reason       string    `gorm:"type:varchar(30);not null"        json:"reason"`
	SourceID     string    `gorm:"type:varchar(64);not null;default:''" json:"source_id,omitempty"`
	CreatedAt    time.Time `gorm:"not null;index"                   json:"created_at"`
}

// TableName table name.
func (PointsHistory) TableName() string { return "points_history" }

// BeforeCreate assigns the primary key.
func (p *PointsHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// UserAchievement table user_achievements, one row per (user, achievement).
type UserAchievement struct {
	UserID    string    `gorm:"type:uuid;primaryKey"         json:"user_id"`
	Name      string    `gorm:"type:varchar(100);primaryKey" json:"name"`
	AwardedAt time.Time `gorm:"not null"                     json:"awarded_at"`
}

// TableName table name.
func (UserAchievement) TableName() string { return "user_achievements" }
