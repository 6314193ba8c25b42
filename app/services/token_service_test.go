package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "test-secret-key-at-least-32-chars-long"

func newTestTokenService(t *testing.T) TokenService {
	t.Helper()
	svc, err := NewTokenService(30*time.Minute, 24*time.Hour, 1*time.Hour, "test-issuer", "test-audience", testSecretKey)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	t.Run("RequiresSecretKey", func(t *testing.T) {
		_, err := NewTokenService(time.Minute, time.Minute, time.Minute, "iss", "aud", "")
		assert.Error(t, err)
	})

	t.Run("CreatesService", func(t *testing.T) {
		svc := newTestTokenService(t)
		assert.Equal(t, 30*time.Minute, svc.AccessTokenTTL())
	})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	t.Run("AccessToken", func(t *testing.T) {
		token, expiresAt, err := svc.IssueAccessToken(42)
		require.NoError(t, err)
		require.NotEmpty(t, token)
		assert.WithinDuration(t, time.Now().UTC().Add(30*time.Minute), expiresAt, 5*time.Second)

		claims, err := svc.ParseToken(token, TokenKindAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.UserID)
		assert.Equal(t, TokenKindAccess, claims.Kind)
		assert.NotEmpty(t, claims.TokenID)
	})

	t.Run("ActivationToken", func(t *testing.T) {
		token, err := svc.IssueActivationToken(7)
		require.NoError(t, err)

		claims, err := svc.ParseToken(token, TokenKindActivation)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.UserID)
		assert.Equal(t, TokenKindActivation, claims.Kind)
	})

	t.Run("ResetToken", func(t *testing.T) {
		token, err := svc.IssueResetToken(9)
		require.NoError(t, err)

		claims, err := svc.ParseToken(token, TokenKindResetPassword)
		require.NoError(t, err)
		assert.Equal(t, uint(9), claims.UserID)
		assert.Equal(t, TokenKindResetPassword, claims.Kind)
	})

	t.Run("UniqueTokenIDs", func(t *testing.T) {
		first, err := svc.IssueActivationToken(1)
		require.NoError(t, err)
		second, err := svc.IssueActivationToken(1)
		require.NoError(t, err)

		firstClaims, err := svc.ParseToken(first, TokenKindActivation)
		require.NoError(t, err)
		secondClaims, err := svc.ParseToken(second, TokenKindActivation)
		require.NoError(t, err)
		assert.NotEqual(t, firstClaims.TokenID, secondClaims.TokenID)
	})
}

func TestTokenKindIsolation(t *testing.T) {
	svc := newTestTokenService(t)

	accessToken, _, err := svc.IssueAccessToken(1)
	require.NoError(t, err)
	activationToken, err := svc.IssueActivationToken(1)
	require.NoError(t, err)
	resetToken, err := svc.IssueResetToken(1)
	require.NoError(t, err)

	cases := []struct {
		name     string
		token    string
		expected TokenKind
	}{
		{"AccessAsActivation", accessToken, TokenKindActivation},
		{"AccessAsReset", accessToken, TokenKindResetPassword},
		{"ActivationAsAccess", activationToken, TokenKindAccess},
		{"ResetAsAccess", resetToken, TokenKindAccess},
		{"ResetAsActivation", resetToken, TokenKindActivation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ParseToken(tc.token, tc.expected)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestParseTokenFailures(t *testing.T) {
	svc := newTestTokenService(t)

	t.Run("ExpiredToken", func(t *testing.T) {
		expired, err := NewTokenService(-time.Minute, -time.Minute, -time.Minute, "test-issuer", "test-audience", testSecretKey)
		require.NoError(t, err)

		token, _, err := expired.IssueAccessToken(1)
		require.NoError(t, err)

		_, err = svc.ParseToken(token, TokenKindAccess)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("WrongSigningKey", func(t *testing.T) {
		other, err := NewTokenService(time.Hour, time.Hour, time.Hour, "test-issuer", "test-audience", "another-secret-key-32-chars-long!!")
		require.NoError(t, err)

		token, _, err := other.IssueAccessToken(1)
		require.NoError(t, err)

		_, err = svc.ParseToken(token, TokenKindAccess)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		other, err := NewTokenService(time.Hour, time.Hour, time.Hour, "another-issuer", "test-audience", testSecretKey)
		require.NoError(t, err)

		token, _, err := other.IssueAccessToken(1)
		require.NoError(t, err)

		_, err = svc.ParseToken(token, TokenKindAccess)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("WrongAudience", func(t *testing.T) {
		other, err := NewTokenService(time.Hour, time.Hour, time.Hour, "test-issuer", "another-audience", testSecretKey)
		require.NoError(t, err)

		token, _, err := other.IssueAccessToken(1)
		require.NoError(t, err)

		_, err = svc.ParseToken(token, TokenKindAccess)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("TamperedToken", func(t *testing.T) {
		token, _, err := svc.IssueAccessToken(1)
		require.NoError(t, err)

		tampered := token[:len(token)-4] + "abcd"
		_, err = svc.ParseToken(tampered, TokenKindAccess)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("MalformedToken", func(t *testing.T) {
		_, err := svc.ParseToken("not-a-jwt", TokenKindAccess)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("EmptyToken", func(t *testing.T) {
		_, err := svc.ParseToken("", TokenKindAccess)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
