// Package models contains domain entities and business models for the finance backend
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`

	// Identity fields
	Username     string  `gorm:"size:50;not null;uniqueIndex:uk_users_username" json:"username"`
	Email        string  `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	PasswordHash string  `gorm:"size:255;not null" json:"-"` // Never serialize password hash
	FullName     *string `gorm:"size:100" json:"full_name,omitempty"`

	// Preferences
	DefaultCurrency string `gorm:"size:3;not null;default:VND" json:"default_currency"`

	// Activation state, flipped only by redeeming an activation token
	IsActive *bool `gorm:"default:false;index:idx_users_is_active" json:"is_active"`

	// Timestamps
	CreatedAt   time.Time  `gorm:"index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	// Relations
	Accounts  []Account  `gorm:"foreignKey:UserID" json:"accounts,omitempty"`
	AuditLogs []AuditLog `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate ensures UUID is set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	return nil
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Username      *string
	Email         *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// UserPatch carries the mutable profile fields. Nil fields are left untouched.
type UserPatch struct {
	FullName        *string
	DefaultCurrency *string
}

// Apply merges the non-nil patch fields into the user.
func (p UserPatch) Apply(u *User) {
	if p.FullName != nil {
		u.FullName = p.FullName
	}
	if p.DefaultCurrency != nil {
		u.DefaultCurrency = *p.DefaultCurrency
	}
}
