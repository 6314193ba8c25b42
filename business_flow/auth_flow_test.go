package businessflow_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/minhlq/finbook/app/dto"
	"github.com/minhlq/finbook/app/services"
	businessflow "github.com/minhlq/finbook/business_flow"
	"github.com/minhlq/finbook/models"
	"github.com/minhlq/finbook/repository"
	testingutil "github.com/minhlq/finbook/testing"
	"github.com/minhlq/finbook/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFlowEnv struct {
	flow         businessflow.AuthFlow
	tokenService services.TokenService
	tokenUsage   services.TokenUsageStore
	auditRepo    repository.AuditLogRepository
}

func newAuthFlowEnv(t *testing.T, testDB *testingutil.TestDB, emailProvider services.EmailProvider) *authFlowEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	tokenService, err := services.NewTokenService(
		30*time.Minute, 24*time.Hour, 1*time.Hour,
		"test-issuer", "test-audience",
		"test-secret-key-at-least-32-chars-long",
	)
	require.NoError(t, err)

	passwordService := services.NewPasswordService(bcrypt.MinCost)
	notificationService := services.NewNotificationService(emailProvider, "https://finbook.test")
	tokenUsage := services.NewRedisTokenUsageStore(client)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	flow := businessflow.NewAuthFlow(
		repository.NewUserRepository(testDB.DB),
		auditRepo,
		tokenService,
		passwordService,
		notificationService,
		tokenUsage,
		testDB.DB,
	)
	return &authFlowEnv{
		flow:         flow,
		tokenService: tokenService,
		tokenUsage:   tokenUsage,
		auditRepo:    auditRepo,
	}
}

func newAuthFlow(t *testing.T, testDB *testingutil.TestDB) (businessflow.AuthFlow, services.TokenService) {
	t.Helper()

	env := newAuthFlowEnv(t, testDB, services.NewMockEmailProvider())
	return env.flow, env.tokenService
}

// brokenEmailProvider records outgoing messages and fails every delivery
type brokenEmailProvider struct {
	mu       sync.Mutex
	messages []string
}

func (p *brokenEmailProvider) SendEmail(email, subject, message string) error {
	p.mu.Lock()
	p.messages = append(p.messages, message)
	p.mu.Unlock()
	return errors.New("smtp unreachable")
}

func (p *brokenEmailProvider) lastToken(t *testing.T) string {
	t.Helper()

	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.messages)

	message := p.messages[len(p.messages)-1]
	idx := strings.LastIndex(message, "token=")
	require.GreaterOrEqual(t, idx, 0)
	return strings.Fields(message[idx+len("token="):])[0]
}

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("192.0.2.1", "go-test")
}

func registerRequest(username, email string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Username:        username,
		Email:           email,
		Password:        "SecurePass123!",
		FullName:        utils.ToPtr("Test User"),
		DefaultCurrency: "VND",
	}
}

func TestRegister(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _ := newAuthFlow(t, testDB)
		ctx := context.Background()

		t.Run("SuccessfulRegistration", func(t *testing.T) {
			resp, err := flow.Register(ctx, registerRequest("alice", "alice@example.com"), testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "alice", resp.User.Username)
			assert.Equal(t, "alice@example.com", resp.User.Email)
			assert.False(t, utils.IsTrue(resp.User.IsActive))
		})

		t.Run("NormalizesEmailCase", func(t *testing.T) {
			resp, err := flow.Register(ctx, registerRequest("bob", "Bob@Example.COM"), testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "bob@example.com", resp.User.Email)
		})

		t.Run("DuplicateEmailRejected", func(t *testing.T) {
			_, err := flow.Register(ctx, registerRequest("carol", "carol@example.com"), testMetadata())
			require.NoError(t, err)

			_, err = flow.Register(ctx, registerRequest("carol2", "carol@example.com"), testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsEmailAlreadyExists(err))
		})

		t.Run("DuplicateUsernameRejected", func(t *testing.T) {
			_, err := flow.Register(ctx, registerRequest("dave", "dave@example.com"), testMetadata())
			require.NoError(t, err)

			_, err = flow.Register(ctx, registerRequest("dave", "dave2@example.com"), testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsUsernameAlreadyExists(err))
		})

		t.Run("DefaultsCurrency", func(t *testing.T) {
			req := registerRequest("erin", "erin@example.com")
			req.DefaultCurrency = ""
			resp, err := flow.Register(ctx, req, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, utils.DefaultCurrency, resp.User.DefaultCurrency)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, tokenService := newAuthFlow(t, testDB)
		ctx := context.Background()

		t.Run("SuccessfulLogin", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			resp, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: testingutil.TestPassword,
			}, testMetadata())
			require.NoError(t, err)
			assert.NotEmpty(t, resp.AccessToken)
			assert.Equal(t, "Bearer", resp.TokenType)
			assert.Greater(t, resp.ExpiresIn, 0)

			claims, err := tokenService.ParseToken(resp.AccessToken, services.TokenKindAccess)
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)

			// Login stamps last_login_at
			var stored models.User
			require.NoError(t, testDB.DB.Last(&stored, user.ID).Error)
			assert.NotNil(t, stored.LastLoginAt)
		})

		t.Run("WrongPassword", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "WrongPassword1!",
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		t.Run("UnknownEmailIndistinguishable", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, wrongPassErr := flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "WrongPassword1!",
			}, testMetadata())
			_, unknownErr := flow.Login(ctx, &dto.LoginRequest{
				Email:    "nobody@example.com",
				Password: testingutil.TestPassword,
			}, testMetadata())

			require.Error(t, wrongPassErr)
			require.Error(t, unknownErr)
			assert.True(t, businessflow.IsInvalidCredentials(wrongPassErr))
			assert.True(t, businessflow.IsInvalidCredentials(unknownErr))
			assert.Equal(t, wrongPassErr.Error(), unknownErr.Error())
		})

		return nil
	})
	require.NoError(t, err)
}

func TestActivate(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, tokenService := newAuthFlow(t, testDB)
		ctx := context.Background()

		t.Run("ActivatesUser", func(t *testing.T) {
			user, err := fixtures.CreateInactiveTestUser()
			require.NoError(t, err)

			token, err := tokenService.IssueActivationToken(user.ID)
			require.NoError(t, err)

			resp, err := flow.Activate(ctx, &dto.ActivateRequest{Token: token}, testMetadata())
			require.NoError(t, err)
			assert.NotEmpty(t, resp.Message)

			var stored models.User
			require.NoError(t, testDB.DB.Last(&stored, user.ID).Error)
			assert.True(t, utils.IsTrue(stored.IsActive))
		})

		t.Run("TokenIsSingleUse", func(t *testing.T) {
			user, err := fixtures.CreateInactiveTestUser()
			require.NoError(t, err)

			token, err := tokenService.IssueActivationToken(user.ID)
			require.NoError(t, err)

			_, err = flow.Activate(ctx, &dto.ActivateRequest{Token: token}, testMetadata())
			require.NoError(t, err)

			_, err = flow.Activate(ctx, &dto.ActivateRequest{Token: token}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidToken(err))
		})

		t.Run("RejectsAccessToken", func(t *testing.T) {
			user, err := fixtures.CreateInactiveTestUser()
			require.NoError(t, err)

			token, _, err := tokenService.IssueAccessToken(user.ID)
			require.NoError(t, err)

			_, err = flow.Activate(ctx, &dto.ActivateRequest{Token: token}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidToken(err))
		})

		t.Run("RejectsGarbageToken", func(t *testing.T) {
			_, err := flow.Activate(ctx, &dto.ActivateRequest{Token: "garbage"}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidToken(err))
		})

		t.Run("AlreadyActiveSucceeds", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			token, err := tokenService.IssueActivationToken(user.ID)
			require.NoError(t, err)

			_, err = flow.Activate(ctx, &dto.ActivateRequest{Token: token}, testMetadata())
			assert.NoError(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPasswordReset(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, tokenService := newAuthFlow(t, testDB)
		ctx := context.Background()

		t.Run("UniformResponseForUnknownEmail", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			known, err := flow.RequestPasswordReset(ctx, &dto.ForgotPasswordRequest{Email: user.Email}, testMetadata())
			require.NoError(t, err)
			unknown, err := flow.RequestPasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "nobody@example.com"}, testMetadata())
			require.NoError(t, err)

			assert.Equal(t, known.Message, unknown.Message)
		})

		t.Run("ResetAllowsNewPasswordLogin", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			token, err := tokenService.IssueResetToken(user.ID)
			require.NoError(t, err)

			_, err = flow.ResetPassword(ctx, &dto.ResetPasswordRequest{
				Token:       token,
				NewPassword: "BrandNewPass123!",
			}, testMetadata())
			require.NoError(t, err)

			_, err = flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testingutil.TestPassword}, testMetadata())
			require.Error(t, err)

			resp, err := flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "BrandNewPass123!"}, testMetadata())
			require.NoError(t, err)
			assert.NotEmpty(t, resp.AccessToken)
		})

		t.Run("ResetTokenIsSingleUse", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			token, err := tokenService.IssueResetToken(user.ID)
			require.NoError(t, err)

			_, err = flow.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "BrandNewPass123!"}, testMetadata())
			require.NoError(t, err)

			_, err = flow.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "AnotherPass123!"}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidToken(err))
		})

		t.Run("RejectsActivationToken", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			token, err := tokenService.IssueActivationToken(user.ID)
			require.NoError(t, err)

			_, err = flow.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "BrandNewPass123!"}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidToken(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, _ := newAuthFlow(t, testDB)
		ctx := context.Background()

		t.Run("ChangesPassword", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			err = flow.ChangePassword(ctx, user.ID, &dto.ChangePasswordRequest{
				CurrentPassword: testingutil.TestPassword,
				NewPassword:     "ChangedPass123!",
			}, testMetadata())
			require.NoError(t, err)

			_, err = flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "ChangedPass123!"}, testMetadata())
			assert.NoError(t, err)
		})

		t.Run("RejectsWrongCurrentPassword", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			err = flow.ChangePassword(ctx, user.ID, &dto.ChangePasswordRequest{
				CurrentPassword: "WrongPassword1!",
				NewPassword:     "ChangedPass123!",
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsIncorrectPassword(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, tokenService := newAuthFlow(t, testDB)
		ctx := context.Background()

		t.Run("ResolvesUser", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			token, _, err := tokenService.IssueAccessToken(user.ID)
			require.NoError(t, err)

			resolved, err := flow.Authenticate(ctx, token)
			require.NoError(t, err)
			assert.Equal(t, user.ID, resolved.ID)
		})

		t.Run("RejectsActivationToken", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			token, err := tokenService.IssueActivationToken(user.ID)
			require.NoError(t, err)

			_, err = flow.Authenticate(ctx, token)
			assert.ErrorIs(t, err, businessflow.ErrInvalidToken)
		})

		t.Run("RejectsVanishedUser", func(t *testing.T) {
			token, _, err := tokenService.IssueAccessToken(999999)
			require.NoError(t, err)

			_, err = flow.Authenticate(ctx, token)
			assert.ErrorIs(t, err, businessflow.ErrInvalidToken)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		provider := &brokenEmailProvider{}
		env := newAuthFlowEnv(t, testDB, provider)
		ctx := context.Background()

		t.Run("RegistrationSurvivesFailedActivationEmail", func(t *testing.T) {
			resp, err := env.flow.Register(ctx, registerRequest("carol", "carol@example.com"), testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "carol", resp.User.Username)

			login, err := env.flow.Login(ctx, &dto.LoginRequest{Email: "carol@example.com", Password: "SecurePass123!"}, testMetadata())
			require.NoError(t, err)
			assert.NotEmpty(t, login.AccessToken)

			action := models.AuditActionEmailDispatchFailed
			require.Eventually(t, func() bool {
				count, err := env.auditRepo.Count(ctx, models.AuditLogFilter{Action: &action})
				return err == nil && count >= 1
			}, 2*time.Second, 10*time.Millisecond)
		})

		t.Run("ResetTokenFromFailedEmailStaysValid", func(t *testing.T) {
			resp, err := env.flow.RequestPasswordReset(ctx, &dto.ForgotPasswordRequest{Email: "carol@example.com"}, testMetadata())
			require.NoError(t, err)
			assert.NotEmpty(t, resp.Message)

			require.Eventually(t, func() bool {
				provider.mu.Lock()
				defer provider.mu.Unlock()
				return len(provider.messages) >= 2
			}, 2*time.Second, 10*time.Millisecond)

			token := provider.lastToken(t)
			_, err = env.flow.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "RecoveredPass123!"}, testMetadata())
			require.NoError(t, err)

			login, err := env.flow.Login(ctx, &dto.LoginRequest{Email: "carol@example.com", Password: "RecoveredPass123!"}, testMetadata())
			require.NoError(t, err)
			assert.NotEmpty(t, login.AccessToken)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestFailedRedemptionKeepsTokenRedeemable(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		env := newAuthFlowEnv(t, testDB, services.NewMockEmailProvider())
		ctx := context.Background()

		t.Run("ResetForVanishedUser", func(t *testing.T) {
			token, err := env.tokenService.IssueResetToken(999999)
			require.NoError(t, err)

			_, err = env.flow.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "BrandNewPass123!"}, testMetadata())
			require.Error(t, err)

			claims, err := env.tokenService.ParseToken(token, services.TokenKindResetPassword)
			require.NoError(t, err)
			used, err := env.tokenUsage.Used(ctx, claims.TokenID)
			require.NoError(t, err)
			assert.False(t, used)
		})

		t.Run("ActivationForVanishedUser", func(t *testing.T) {
			token, err := env.tokenService.IssueActivationToken(999999)
			require.NoError(t, err)

			_, err = env.flow.Activate(ctx, &dto.ActivateRequest{Token: token}, testMetadata())
			require.Error(t, err)

			claims, err := env.tokenService.ParseToken(token, services.TokenKindActivation)
			require.NoError(t, err)
			used, err := env.tokenUsage.Used(ctx, claims.TokenID)
			require.NoError(t, err)
			assert.False(t, used)
		})

		t.Run("SuccessfulResetBurnsToken", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			token, err := env.tokenService.IssueResetToken(user.ID)
			require.NoError(t, err)

			_, err = env.flow.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "BrandNewPass123!"}, testMetadata())
			require.NoError(t, err)

			claims, err := env.tokenService.ParseToken(token, services.TokenKindResetPassword)
			require.NoError(t, err)
			used, err := env.tokenUsage.Used(ctx, claims.TokenID)
			require.NoError(t, err)
			assert.True(t, used)
		})

		return nil
	})
	require.NoError(t, err)
}
