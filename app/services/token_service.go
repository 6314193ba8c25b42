// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/minhlq/finbook/utils"
)

// TokenKind discriminates the three token families. A token of one kind is
// never accepted where another kind is expected.
type TokenKind string

const (
	TokenKindAccess        TokenKind = "access"
	TokenKindActivation    TokenKind = "activation"
	TokenKindResetPassword TokenKind = "reset_password"
)

// ErrTokenInvalid is returned for every parse failure. Expired, tampered,
// malformed, and wrong-kind tokens are deliberately indistinguishable to the
// caller.
var ErrTokenInvalid = fmt.Errorf("invalid token")

// TokenService handles JWT token generation and validation
type TokenService interface {
	IssueAccessToken(userID uint) (token string, expiresAt time.Time, err error)
	IssueActivationToken(userID uint) (string, error)
	IssueResetToken(userID uint) (string, error)
	ParseToken(token string, expected TokenKind) (*TokenClaims, error)
	AccessTokenTTL() time.Duration
}

// TokenClaims represents the claims in a JWT token
type TokenClaims struct {
	UserID    uint      `json:"user_id"`
	Kind      TokenKind `json:"token_kind"`
	TokenID   string    `json:"jti"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenServiceImpl implements TokenService
type TokenServiceImpl struct {
	accessTokenTTL     time.Duration
	activationTokenTTL time.Duration
	resetTokenTTL      time.Duration
	secretKey          []byte
	issuer             string
	audience           string
}

// NewTokenService creates a new token service
func NewTokenService(accessTokenTTL, activationTokenTTL, resetTokenTTL time.Duration, issuer, audience, secretKey string) (TokenService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}

	return &TokenServiceImpl{
		accessTokenTTL:     accessTokenTTL,
		activationTokenTTL: activationTokenTTL,
		resetTokenTTL:      resetTokenTTL,
		secretKey:          []byte(secretKey),
		issuer:             issuer,
		audience:           audience,
	}, nil
}

// IssueAccessToken generates a short-lived access token for a user
func (s *TokenServiceImpl) IssueAccessToken(userID uint) (string, time.Time, error) {
	token, claims, err := s.issue(userID, TokenKindAccess, s.accessTokenTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt, nil
}

// IssueActivationToken generates a single-purpose token for account activation
func (s *TokenServiceImpl) IssueActivationToken(userID uint) (string, error) {
	token, _, err := s.issue(userID, TokenKindActivation, s.activationTokenTTL)
	return token, err
}

// IssueResetToken generates a single-purpose token for password reset
func (s *TokenServiceImpl) IssueResetToken(userID uint) (string, error) {
	token, _, err := s.issue(userID, TokenKindResetPassword, s.resetTokenTTL)
	return token, err
}

// AccessTokenTTL reports the configured access token lifetime
func (s *TokenServiceImpl) AccessTokenTTL() time.Duration {
	return s.accessTokenTTL
}

func (s *TokenServiceImpl) issue(userID uint, kind TokenKind, ttl time.Duration) (string, *TokenClaims, error) {
	now := utils.UTCNow()

	tokenID, err := generateTokenID()
	if err != nil {
		return "", nil, err
	}

	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"user_id":    userID,
		"token_kind": string(kind),
		"jti":        tokenID,
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
		"iss":        s.issuer,
		"aud":        s.audience,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, &TokenClaims{
		UserID:    userID,
		Kind:      kind,
		TokenID:   tokenID,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken validates a JWT and its kind. Every failure mode maps to
// ErrTokenInvalid.
func (s *TokenServiceImpl) ParseToken(token string, expected TokenKind) (*TokenClaims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (any, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))

	if err != nil || !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}

	kind, ok := claims["token_kind"].(string)
	if !ok || TokenKind(kind) != expected {
		return nil, ErrTokenInvalid
	}

	tokenID, ok := claims["jti"].(string)
	if !ok {
		return nil, ErrTokenInvalid
	}

	issuedAt, ok := claims["iat"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}

	expiresAt, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}

	if utils.UTCNow().After(time.Unix(int64(expiresAt), 0)) {
		return nil, ErrTokenInvalid
	}

	return &TokenClaims{
		UserID:    uint(userID),
		Kind:      TokenKind(kind),
		TokenID:   tokenID,
		IssuedAt:  time.Unix(int64(issuedAt), 0),
		ExpiresAt: time.Unix(int64(expiresAt), 0),
	}, nil
}

// generateTokenID generates a unique token ID
func generateTokenID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}
