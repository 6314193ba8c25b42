// Package businessflow contains the core business logic and use cases for authentication and account workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/minhlq/finbook/app/dto"
	"github.com/minhlq/finbook/models"
	"github.com/minhlq/finbook/repository"
	"github.com/minhlq/finbook/utils"
	"gorm.io/gorm"
)

// ProfileFlow handles user profile reads and updates
type ProfileFlow interface {
	GetProfile(ctx context.Context, userID uint) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, userID uint, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UserDTO, error)
}

// ProfileFlowImpl implements the profile business flow
type ProfileFlowImpl struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditLogRepository
	db        *gorm.DB
}

// NewProfileFlow creates a new profile flow instance
func NewProfileFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) ProfileFlow {
	return &ProfileFlowImpl{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		db:        db,
	}
}

// GetProfile returns the user's profile
func (s *ProfileFlowImpl) GetProfile(ctx context.Context, userID uint) (*dto.UserDTO, error) {
	user, err := s.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("PROFILE_FETCH_FAILED", "Failed to fetch profile", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	userDTO := ToUserDTO(*user)
	return &userDTO, nil
}

// UpdateProfile applies the provided profile fields. Omitted fields keep
// their stored values.
func (s *ProfileFlowImpl) UpdateProfile(ctx context.Context, userID uint, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UserDTO, error) {
	var user *models.User
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		user, err = s.userRepo.ByID(txCtx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		var currency *string
		if req.DefaultCurrency != nil {
			currency = utils.ToPtr(strings.ToUpper(*req.DefaultCurrency))
		}

		patch := models.UserPatch{
			FullName:        req.FullName,
			DefaultCurrency: currency,
		}
		patch.Apply(user)
		user.UpdatedAt = utils.UTCNow()

		return s.userRepo.Update(txCtx, user)
	})

	if err != nil {
		if IsUserNotFound(err) {
			return nil, NewBusinessError("USER_NOT_FOUND", "User not found", err)
		}
		return nil, NewBusinessError("PROFILE_UPDATE_FAILED", "Profile update failed", err)
	}

	msg := fmt.Sprintf("Profile updated: %d", user.ID)
	_ = s.createAuditLog(ctx, user.ID, models.AuditActionProfileUpdated, msg, true, nil, metadata)

	userDTO := ToUserDTO(*user)
	return &userDTO, nil
}

func (s *ProfileFlowImpl) createAuditLog(ctx context.Context, userID uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:       &userID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		if requestIDStr, ok := requestID.(string); ok {
			audit.RequestID = &requestIDStr
		}
	}

	return s.auditRepo.Save(ctx, audit)
}
