// Package dto contains Data Transfer Objects for API request and response structures
package dto

// CreateAccountRequest represents the request to open a financial account
type CreateAccountRequest struct {
	AccountName    string  `json:"account_name" validate:"required,min=1,max=100" example:"Daily expenses"`
	AccountType    string  `json:"account_type" validate:"required,oneof=cash bank_account credit_card e_wallet investment other" example:"cash"`
	InitialBalance float64 `json:"initial_balance" validate:"omitempty,gte=0" example:"1500000"`
	Currency       string  `json:"currency" validate:"required,len=3,alpha" example:"VND"`
}

// UpdateAccountRequest represents the request to update a financial account.
// Omitted fields are left unchanged.
type UpdateAccountRequest struct {
	AccountName    *string  `json:"account_name,omitempty" validate:"omitempty,min=1,max=100" example:"Savings"`
	AccountType    *string  `json:"account_type,omitempty" validate:"omitempty,oneof=cash bank_account credit_card e_wallet investment other" example:"bank_account"`
	CurrentBalance *float64 `json:"current_balance,omitempty" example:"2000000"`
	Currency       *string  `json:"currency,omitempty" validate:"omitempty,len=3,alpha" example:"USD"`
}

// AccountDTO represents a financial account in API responses
type AccountDTO struct {
	ID             uint    `json:"id" example:"42"`
	UUID           string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	AccountName    string  `json:"account_name" example:"Daily expenses"`
	AccountType    string  `json:"account_type" example:"cash"`
	InitialBalance float64 `json:"initial_balance" example:"1500000"`
	CurrentBalance float64 `json:"current_balance" example:"1200000"`
	Currency       string  `json:"currency" example:"VND"`
	IsActive       *bool   `json:"is_active" example:"true"`
	CreatedAt      string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt      string  `json:"updated_at" example:"2024-01-20T08:00:00Z"`
}

// ListAccountsResponse represents the account listing response
type ListAccountsResponse struct {
	Accounts []AccountDTO `json:"accounts"`
	Total    int          `json:"total" example:"3"`
}
