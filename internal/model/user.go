package model

import "gorm.io/gorm"

// Roles.
const (
	RoleGuest      = "guest"
	RoleUser       = "user"
	RoleBetaTester = "beta_tester"
	RolePremium    = "premium"
	RoleAdmin      = "admin"
)

// Subscription states.
const (
	SubscriptionNone   = "none"
	SubscriptionActive = "active"
)

// User table users. Identities are issued by the external identity provider;
// this row mirrors the provider's user id and email.
type User struct {
	UserID             string `gorm:"type:uuid;primaryKey"                       json:"user_id"`
	Email              string `gorm:"type:varchar(255);not null;uniqueIndex"     json:"email"`
	Name               string `gorm:"type:varchar(100);not null;default:''"      json:"name"`
	Role               string `gorm:"type:varchar(20);not null;default:'user'"   json:"role"`
	SubscriptionStatus string `gorm:"type:varchar(20);not null;default:'none'"   json:"subscription_status"`
	BaseModel
}

// TableName table name.
func (User) TableName() string { return "users" }

// BeforeCreate assigns the primary key.
func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.UserID)
	return nil
}
