// Package dto contains Data Transfer Objects for API request and response structures
package dto

// RegisterRequest represents the request payload for user registration
type RegisterRequest struct {
	Username        string  `json:"username" validate:"required,min=3,max=50,alphanum" example:"johndoe"`
	Email           string  `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password        string  `json:"password" validate:"required,min=8,max=100,password_strength" example:"SecurePass123!"`
	FullName        *string `json:"full_name,omitempty" validate:"omitempty,max=100" example:"John Doe"`
	DefaultCurrency string  `json:"default_currency,omitempty" validate:"omitempty,len=3,alpha" example:"VND"`
}

// RegisterResponse represents the successful registration response
type RegisterResponse struct {
	Message string  `json:"message" example:"Registration successful. Check your email for the activation link."`
	User    UserDTO `json:"user"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Message     string  `json:"message" example:"Login successful"`
	User        UserDTO `json:"user"`
	AccessToken string  `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType   string  `json:"token_type" example:"Bearer"`
	ExpiresIn   int     `json:"expires_in" example:"1800"`
}

// ActivateRequest represents the request to activate an account
type ActivateRequest struct {
	Token string `json:"token" validate:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// ActivateResponse represents the response after account activation
type ActivateResponse struct {
	Message string `json:"message" example:"Account activated successfully"`
}

// ForgotPasswordRequest represents the request to initiate password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
}

// ForgotPasswordResponse represents the response after requesting password
// reset. It never reveals whether the email is registered.
type ForgotPasswordResponse struct {
	Message string `json:"message" example:"If the email is registered, a password reset link has been sent."`
}

// ResetPasswordRequest represents the request to reset password with a token
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	NewPassword string `json:"new_password" validate:"required,min=8,max=100,password_strength" example:"NewSecurePass123!"`
}

// ResetPasswordResponse represents the response after successful password reset
type ResetPasswordResponse struct {
	Message string `json:"message" example:"Password reset successfully"`
}

// ChangePasswordRequest represents the request to change the password while
// logged in
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,min=8,max=100" example:"SecurePass123!"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100,password_strength" example:"NewSecurePass123!"`
}
