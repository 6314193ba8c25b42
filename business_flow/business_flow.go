// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/minhlq/finbook/app/dto"
	"github.com/minhlq/finbook/models"
)

const RequestIDKey = "request_id"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToUserDTO converts a user model to UserDTO for API responses
func ToUserDTO(user models.User) dto.UserDTO {
	return dto.UserDTO{
		ID:              user.ID,
		UUID:            user.UUID.String(),
		Username:        user.Username,
		Email:           user.Email,
		FullName:        user.FullName,
		DefaultCurrency: user.DefaultCurrency,
		IsActive:        user.IsActive,
		CreatedAt:       user.CreatedAt.Format(time.RFC3339),
	}
}

// ToAccountDTO converts an account model to AccountDTO for API responses
func ToAccountDTO(account models.Account) dto.AccountDTO {
	return dto.AccountDTO{
		ID:             account.ID,
		UUID:           account.UUID.String(),
		AccountName:    account.AccountName,
		AccountType:    account.AccountType,
		InitialBalance: account.InitialBalance,
		CurrentBalance: account.CurrentBalance,
		Currency:       account.Currency,
		IsActive:       account.IsActive,
		CreatedAt:      account.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      account.UpdatedAt.Format(time.RFC3339),
	}
}
