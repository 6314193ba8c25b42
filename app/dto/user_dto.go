// Package dto contains Data Transfer Objects for API request and response structures
package dto

// UserDTO represents user information returned in API responses
type UserDTO struct {
	ID              uint    `json:"id" example:"123"`
	UUID            string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Username        string  `json:"username" example:"johndoe"`
	Email           string  `json:"email" example:"user@example.com"`
	FullName        *string `json:"full_name,omitempty" example:"John Doe"`
	DefaultCurrency string  `json:"default_currency" example:"VND"`
	IsActive        *bool   `json:"is_active" example:"true"`
	CreatedAt       string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// UpdateProfileRequest represents the request to update profile fields.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	FullName        *string `json:"full_name,omitempty" validate:"omitempty,max=100" example:"John Doe"`
	DefaultCurrency *string `json:"default_currency,omitempty" validate:"omitempty,len=3,alpha" example:"USD"`
}
