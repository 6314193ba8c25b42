// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordService hashes and verifies user passwords
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// PasswordServiceImpl implements PasswordService using bcrypt
type PasswordServiceImpl struct {
	cost int
}

// NewPasswordService creates a new password service. Costs outside the bcrypt
// range fall back to the library default.
func NewPasswordService(cost int) PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordServiceImpl{cost: cost}
}

// Hash derives a salted bcrypt hash from the plaintext password. Each call
// produces a different hash for the same input.
func (s *PasswordServiceImpl) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether the plaintext password matches the stored hash.
// Malformed hashes verify as false rather than erroring.
func (s *PasswordServiceImpl) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
