// Package businessflow contains the core business logic and use cases for authentication and account workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minhlq/finbook/app/dto"
	"github.com/minhlq/finbook/app/services"
	"github.com/minhlq/finbook/models"
	"github.com/minhlq/finbook/repository"
	"github.com/minhlq/finbook/utils"
	"gorm.io/gorm"
)

// AuthFlow handles registration, login, and the credential lifecycle
type AuthFlow interface {
	Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
	Activate(ctx context.Context, req *dto.ActivateRequest, metadata *ClientMetadata) (*dto.ActivateResponse, error)
	RequestPasswordReset(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) (*dto.ResetPasswordResponse, error)
	ChangePassword(ctx context.Context, userID uint, req *dto.ChangePasswordRequest, metadata *ClientMetadata) error
	Logout(ctx context.Context, userID uint, metadata *ClientMetadata) error
}

// AuthFlowImpl implements the authentication business flow
type AuthFlowImpl struct {
	userRepo        repository.UserRepository
	auditRepo       repository.AuditLogRepository
	tokenService    services.TokenService
	passwordService services.PasswordService
	notificationSvc services.NotificationService
	tokenUsage      services.TokenUsageStore
	db              *gorm.DB
}

// NewAuthFlow creates a new authentication flow instance
func NewAuthFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	passwordService services.PasswordService,
	notificationSvc services.NotificationService,
	tokenUsage services.TokenUsageStore,
	db *gorm.DB,
) AuthFlow {
	return &AuthFlowImpl{
		userRepo:        userRepo,
		auditRepo:       auditRepo,
		tokenService:    tokenService,
		passwordService: passwordService,
		notificationSvc: notificationSvc,
		tokenUsage:      tokenUsage,
		db:              db,
	}
}

// Register creates an inactive user and dispatches the activation email
func (s *AuthFlowImpl) Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	var user *models.User
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		existing, err := s.userRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyExists
		}

		existing, err = s.userRepo.ByUsername(txCtx, username)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrUsernameAlreadyExists
		}

		passwordHash, err := s.passwordService.Hash(req.Password)
		if err != nil {
			return err
		}

		currency := strings.ToUpper(req.DefaultCurrency)
		if currency == "" {
			currency = utils.DefaultCurrency
		}

		user = &models.User{
			Username:        username,
			Email:           email,
			PasswordHash:    passwordHash,
			FullName:        req.FullName,
			DefaultCurrency: currency,
			IsActive:        utils.ToPtr(false),
		}

		// The unique indexes stay authoritative under concurrent signups
		return s.userRepo.Save(txCtx, user)
	})

	// Classify a unique violation outside the aborted transaction
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = s.classifyDuplicateUser(ctx, email)
	}

	if err != nil {
		errMsg := fmt.Sprintf("Registration failed: %s", err.Error())
		_ = s.createAuditLog(ctx, user, models.AuditActionSignupCompleted, errMsg, false, &errMsg, metadata)

		if errors.Is(err, ErrEmailAlreadyExists) || errors.Is(err, ErrUsernameAlreadyExists) {
			return nil, NewBusinessError("REGISTRATION_CONFLICT", "Registration conflict", err)
		}
		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	}

	msg := fmt.Sprintf("User registered: %d", user.ID)
	_ = s.createAuditLog(ctx, user, models.AuditActionSignupCompleted, msg, true, nil, metadata)

	activationToken, err := s.tokenService.IssueActivationToken(user.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate activation token", err)
	}

	// Send activation email outside the transaction so a delivery failure
	// never rolls back the created user
	go func() {
		if err := s.notificationSvc.SendActivationEmail(user.Email, activationToken); err != nil {
			errMsg := fmt.Sprintf("Failed to send activation email: %v", err)
			_ = s.createAuditLog(context.Background(), user, models.AuditActionEmailDispatchFailed, errMsg, false, &errMsg, metadata)
		}
	}()

	return &dto.RegisterResponse{
		Message: "Registration successful. Check your email for the activation link.",
		User:    ToUserDTO(*user),
	}, nil
}

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords are indistinguishable in the returned error.
func (s *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	if user == nil || !s.passwordService.Verify(req.Password, user.PasswordHash) {
		errMsg := fmt.Sprintf("Failed login attempt for %s", email)
		_ = s.createAuditLog(ctx, user, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Incorrect email or password", ErrInvalidCredentials)
	}

	accessToken, expiresAt, err := s.tokenService.IssueAccessToken(user.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate access token", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	msg := fmt.Sprintf("User logged in: %d", user.ID)
	_ = s.createAuditLog(ctx, user, models.AuditActionLoginSuccessful, msg, true, nil, metadata)

	return &dto.LoginResponse{
		Message:     "Login successful",
		User:        ToUserDTO(*user),
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(expiresAt).Seconds()),
	}, nil
}

// Authenticate resolves an access token to its user
func (s *AuthFlowImpl) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokenService.ParseToken(accessToken, services.TokenKindAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.ByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	return user, nil
}

// Activate redeems an activation token and marks the user active. Activating
// an already active user succeeds without effect.
func (s *AuthFlowImpl) Activate(ctx context.Context, req *dto.ActivateRequest, metadata *ClientMetadata) (*dto.ActivateResponse, error) {
	claims, err := s.tokenService.ParseToken(req.Token, services.TokenKindActivation)
	if err != nil {
		return nil, NewBusinessError("ACTIVATION_FAILED", "Invalid token", ErrInvalidToken)
	}

	used, err := s.tokenUsage.Used(ctx, claims.TokenID)
	if err != nil {
		return nil, NewBusinessError("ACTIVATION_FAILED", "Activation failed", err)
	}
	if used {
		return nil, NewBusinessError("ACTIVATION_FAILED", "Invalid token", ErrInvalidToken)
	}

	user, err := s.userRepo.ByID(ctx, claims.UserID)
	if err != nil {
		return nil, NewBusinessError("ACTIVATION_FAILED", "Activation failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("ACTIVATION_FAILED", "Invalid token", ErrInvalidToken)
	}

	if !utils.IsTrue(user.IsActive) {
		if err := s.userRepo.Activate(ctx, user.ID); err != nil {
			return nil, NewBusinessError("ACTIVATION_FAILED", "Activation failed", err)
		}

		msg := fmt.Sprintf("User activated: %d", user.ID)
		_ = s.createAuditLog(ctx, user, models.AuditActionAccountActivated, msg, true, nil, metadata)
	}

	// Burn the jti only after the state change landed. A redemption that
	// failed above leaves the token redeemable.
	if _, err := s.tokenUsage.MarkUsed(ctx, claims.TokenID, time.Until(claims.ExpiresAt)); err != nil {
		errMsg := fmt.Sprintf("Failed to mark activation token used: %v", err)
		_ = s.createAuditLog(ctx, user, models.AuditActionAccountActivated, errMsg, false, &errMsg, metadata)
	}

	return &dto.ActivateResponse{
		Message: "Account activated successfully",
	}, nil
}

// RequestPasswordReset issues a reset token for known emails. The response is
// identical whether or not the email is registered.
func (s *AuthFlowImpl) RequestPasswordReset(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.ForgotPasswordResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	response := &dto.ForgotPasswordResponse{
		Message: "If the email is registered, a password reset link has been sent.",
	}

	user, err := s.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Password reset request failed", err)
	}
	if user == nil {
		return response, nil
	}

	resetToken, err := s.tokenService.IssueResetToken(user.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate reset token", err)
	}

	msg := fmt.Sprintf("Password reset requested: %d", user.ID)
	_ = s.createAuditLog(ctx, user, models.AuditActionPasswordResetRequested, msg, true, nil, metadata)

	go func() {
		if err := s.notificationSvc.SendPasswordResetEmail(user.Email, resetToken); err != nil {
			errMsg := fmt.Sprintf("Failed to send reset email: %v", err)
			_ = s.createAuditLog(context.Background(), user, models.AuditActionEmailDispatchFailed, errMsg, false, &errMsg, metadata)
		}
	}()

	return response, nil
}

// ResetPassword redeems a reset token and overwrites the password hash
func (s *AuthFlowImpl) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) (*dto.ResetPasswordResponse, error) {
	claims, err := s.tokenService.ParseToken(req.Token, services.TokenKindResetPassword)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Invalid token", ErrInvalidToken)
	}

	used, err := s.tokenUsage.Used(ctx, claims.TokenID)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}
	if used {
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Invalid token", ErrInvalidToken)
	}

	user, err := s.userRepo.ByID(ctx, claims.UserID)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Invalid token", ErrInvalidToken)
	}

	passwordHash, err := s.passwordService.Hash(req.NewPassword)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		errMsg := fmt.Sprintf("Password reset failed: %v", err)
		_ = s.createAuditLog(ctx, user, models.AuditActionPasswordResetFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}

	// Burn the jti only after the new hash is stored. A redemption that
	// failed above leaves the token redeemable.
	if _, err := s.tokenUsage.MarkUsed(ctx, claims.TokenID, time.Until(claims.ExpiresAt)); err != nil {
		errMsg := fmt.Sprintf("Failed to mark reset token used: %v", err)
		_ = s.createAuditLog(ctx, user, models.AuditActionPasswordResetFailed, errMsg, false, &errMsg, metadata)
	}

	msg := fmt.Sprintf("Password reset completed: %d", user.ID)
	_ = s.createAuditLog(ctx, user, models.AuditActionPasswordResetCompleted, msg, true, nil, metadata)

	return &dto.ResetPasswordResponse{
		Message: "Password reset successfully",
	}, nil
}

// ChangePassword verifies the current password before overwriting the hash
func (s *AuthFlowImpl) ChangePassword(ctx context.Context, userID uint, req *dto.ChangePasswordRequest, metadata *ClientMetadata) error {
	user, err := s.userRepo.ByID(ctx, userID)
	if err != nil {
		return NewBusinessError("PASSWORD_CHANGE_FAILED", "Password change failed", err)
	}
	if user == nil {
		return NewBusinessError("PASSWORD_CHANGE_FAILED", "User not found", ErrUserNotFound)
	}

	if !s.passwordService.Verify(req.CurrentPassword, user.PasswordHash) {
		errMsg := fmt.Sprintf("Password change rejected for user %d", user.ID)
		_ = s.createAuditLog(ctx, user, models.AuditActionPasswordChanged, errMsg, false, &errMsg, metadata)
		return NewBusinessError("PASSWORD_CHANGE_FAILED", "Incorrect password", ErrIncorrectPassword)
	}

	passwordHash, err := s.passwordService.Hash(req.NewPassword)
	if err != nil {
		return NewBusinessError("PASSWORD_CHANGE_FAILED", "Password change failed", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return NewBusinessError("PASSWORD_CHANGE_FAILED", "Password change failed", err)
	}

	msg := fmt.Sprintf("Password changed: %d", user.ID)
	_ = s.createAuditLog(ctx, user, models.AuditActionPasswordChanged, msg, true, nil, metadata)

	return nil
}

// Logout records the logout event. Access tokens stay valid until expiry, so
// this is an audit-only operation.
func (s *AuthFlowImpl) Logout(ctx context.Context, userID uint, metadata *ClientMetadata) error {
	user, err := s.userRepo.ByID(ctx, userID)
	if err != nil || user == nil {
		return nil
	}

	msg := fmt.Sprintf("User logged out: %d", user.ID)
	_ = s.createAuditLog(ctx, user, models.AuditActionLogout, msg, true, nil, metadata)

	return nil
}

// classifyDuplicateUser resolves a unique violation to the right conflict error
func (s *AuthFlowImpl) classifyDuplicateUser(ctx context.Context, email string) error {
	existing, err := s.userRepo.ByEmail(ctx, email)
	if err == nil && existing != nil {
		return ErrEmailAlreadyExists
	}
	return ErrUsernameAlreadyExists
}

func (s *AuthFlowImpl) createAuditLog(ctx context.Context, user *models.User, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var userID *uint
	if user != nil {
		userID = &user.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return s.auditRepo.Save(ctx, audit)
}
