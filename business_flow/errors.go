// Package businessflow contains the core business logic and use cases for authentication and account workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrUsernameAlreadyExists = errors.New("username already exists")

	// Credential errors. Unknown email and wrong password deliberately share
	// one error value so callers cannot probe which emails are registered.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrInvalidToken       = errors.New("invalid token")

	// Account-related errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountNameTaken   = errors.New("account name already in use")
	ErrInvalidAccountType = errors.New("invalid account type")

	// Dependency errors
	ErrEmailDeliveryFailed = errors.New("email delivery failed")
	ErrCacheNotAvailable   = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsUsernameAlreadyExists(err error) bool {
	return errors.Is(err, ErrUsernameAlreadyExists)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsAccountNameTaken(err error) bool {
	return errors.Is(err, ErrAccountNameTaken)
}

func IsInvalidAccountType(err error) bool {
	return errors.Is(err, ErrInvalidAccountType)
}

func IsEmailDeliveryFailed(err error) bool {
	return errors.Is(err, ErrEmailDeliveryFailed)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}
