// Package models contains domain entities and business models for the finance backend
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Account struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_accounts_uuid" json:"uuid"`

	// Ownership, immutable after creation
	UserID uint  `gorm:"not null;index:idx_accounts_user_id;uniqueIndex:uk_accounts_owner_active_name,priority:1" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID;references:ID" json:"-"`

	// The partial unique index guards the name among the owner's active
	// accounts only; soft deleted names stay reusable.
	AccountName string `gorm:"size:100;not null;uniqueIndex:uk_accounts_owner_active_name,priority:2,where:is_active" json:"account_name"`
	AccountType string `gorm:"size:20;not null;index:idx_accounts_account_type" json:"account_type"`

	// InitialBalance is fixed at creation; CurrentBalance starts equal to it
	InitialBalance float64 `gorm:"not null;default:0" json:"initial_balance"`
	CurrentBalance float64 `gorm:"not null;default:0" json:"current_balance"`
	Currency       string  `gorm:"size:3;not null" json:"currency"`

	// Soft delete flag
	IsActive *bool `gorm:"default:true;index:idx_accounts_is_active" json:"is_active"`

	// Timestamps
	CreatedAt time.Time `gorm:"index:idx_accounts_created_at" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// BeforeCreate ensures UUID is set
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	return nil
}

// Account type constants
const (
	AccountTypeCash       = "cash"
	AccountTypeBank       = "bank_account"
	AccountTypeCreditCard = "credit_card"
	AccountTypeEWallet    = "e_wallet"
	AccountTypeInvestment = "investment"
	AccountTypeOther      = "other"
)

// ValidAccountTypes lists the accepted account type values.
var ValidAccountTypes = []string{
	AccountTypeCash,
	AccountTypeBank,
	AccountTypeCreditCard,
	AccountTypeEWallet,
	AccountTypeInvestment,
	AccountTypeOther,
}

// IsValidAccountType reports whether t is one of the accepted account types.
func IsValidAccountType(t string) bool {
	for _, v := range ValidAccountTypes {
		if v == t {
			return true
		}
	}
	return false
}

// AccountFilter represents filter criteria for account queries
type AccountFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	UserID        *uint
	AccountName   *string
	AccountType   *string
	Currency      *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// AccountPatch carries the mutable account fields. Nil fields are left untouched.
type AccountPatch struct {
	AccountName    *string
	AccountType    *string
	CurrentBalance *float64
	Currency       *string
}

// Apply merges the non-nil patch fields into the account.
func (p AccountPatch) Apply(a *Account) {
	if p.AccountName != nil {
		a.AccountName = *p.AccountName
	}
	if p.AccountType != nil {
		a.AccountType = *p.AccountType
	}
	if p.CurrentBalance != nil {
		a.CurrentBalance = *p.CurrentBalance
	}
	if p.Currency != nil {
		a.Currency = *p.Currency
	}
}
