package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel audit timestamps embedded by every mutable table.
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// VersionedModel adds an optimistic-lock counter.
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// ensureID fills an empty primary key with a fresh UUID. IDs are assigned in
// Go so the same models work against PostgreSQL and the SQLite test database.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
