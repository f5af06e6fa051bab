package model

import (
	"time"

	"gorm.io/gorm"
)

// BetaInvitationCode table beta_invitation_codes.
// IsUsed flips false → true exactly once, through a conditional update.
type BetaInvitationCode struct {
	ID           string     `gorm:"type:uuid;primaryKey"                 json:"id"`
	Code         string     `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`
	Organization string     `gorm:"type:varchar(200);not null;index"     json:"organization"`
	BatchID      string     `gorm:"type:uuid;not null;index"             json:"batch_id"`
	IsUsed       bool       `gorm:"not null;default:false"               json:"is_used"`
	UsedBy       *string    `gorm:"type:uuid"                            json:"used_by,omitempty"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedBy    *string    `gorm:"type:uuid"                            json:"created_by,omitempty"`
	BaseModel
}

// TableName table name.
func (BetaInvitationCode) TableName() string { return "beta_invitation_codes" }

// BeforeCreate assigns the primary key.
func (b *BetaInvitationCode) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
