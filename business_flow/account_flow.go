// Package businessflow contains the core business logic and use cases for authentication and account workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/minhlq/finbook/app/dto"
	"github.com/minhlq/finbook/models"
	"github.com/minhlq/finbook/repository"
	"github.com/minhlq/finbook/utils"
	"gorm.io/gorm"
)

// AccountFlow handles financial account management. Every operation is scoped
// to the owner; accounts of other users are reported as absent, never as
// forbidden.
type AccountFlow interface {
	CreateAccount(ctx context.Context, userID uint, req *dto.CreateAccountRequest, metadata *ClientMetadata) (*dto.AccountDTO, error)
	ListAccounts(ctx context.Context, userID uint, isActive *bool, limit, offset int) ([]dto.AccountDTO, error)
	GetAccount(ctx context.Context, userID, accountID uint) (*dto.AccountDTO, error)
	UpdateAccount(ctx context.Context, userID, accountID uint, req *dto.UpdateAccountRequest, metadata *ClientMetadata) (*dto.AccountDTO, error)
	DeleteAccount(ctx context.Context, userID, accountID uint, metadata *ClientMetadata) error
}

// AccountFlowImpl implements the account business flow
type AccountFlowImpl struct {
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewAccountFlow creates a new account flow instance
func NewAccountFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) AccountFlow {
	return &AccountFlowImpl{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// CreateAccount opens a new financial account for the user. The opening
// balance seeds the current balance.
func (s *AccountFlowImpl) CreateAccount(ctx context.Context, userID uint, req *dto.CreateAccountRequest, metadata *ClientMetadata) (*dto.AccountDTO, error) {
	if !models.IsValidAccountType(req.AccountType) {
		return nil, NewBusinessError("ACCOUNT_VALIDATION_FAILED", "Invalid account type", ErrInvalidAccountType)
	}

	var account *models.Account
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		existing, err := s.accountRepo.ByOwnerAndName(txCtx, userID, req.AccountName)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAccountNameTaken
		}

		account = &models.Account{
			UserID:         userID,
			AccountName:    req.AccountName,
			AccountType:    req.AccountType,
			InitialBalance: req.InitialBalance,
			CurrentBalance: req.InitialBalance,
			Currency:       req.Currency,
			IsActive:       utils.ToPtr(true),
		}

		// The partial unique index stays authoritative under concurrent creates
		return s.accountRepo.Save(txCtx, account)
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = ErrAccountNameTaken
	}

	if err != nil {
		if IsAccountNameTaken(err) {
			return nil, NewBusinessError("ACCOUNT_NAME_CONFLICT", "Account name already in use", err)
		}
		return nil, NewBusinessError("ACCOUNT_CREATION_FAILED", "Account creation failed", err)
	}

	msg := fmt.Sprintf("Account created: %d", account.ID)
	_ = s.createAuditLog(ctx, userID, models.AuditActionAccountCreated, msg, true, nil, metadata)

	accountDTO := ToAccountDTO(*account)
	return &accountDTO, nil
}

// ListAccounts returns the user's accounts, optionally filtered by active state
func (s *AccountFlowImpl) ListAccounts(ctx context.Context, userID uint, isActive *bool, limit, offset int) ([]dto.AccountDTO, error) {
	accounts, err := s.accountRepo.ListByOwner(ctx, userID, isActive, limit, offset)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LIST_FAILED", "Failed to list accounts", err)
	}

	result := make([]dto.AccountDTO, 0, len(accounts))
	for _, account := range accounts {
		result = append(result, ToAccountDTO(*account))
	}

	return result, nil
}

// GetAccount retrieves a single account owned by the user
func (s *AccountFlowImpl) GetAccount(ctx context.Context, userID, accountID uint) (*dto.AccountDTO, error) {
	account, err := s.accountRepo.ByIDAndOwner(ctx, accountID, userID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_FETCH_FAILED", "Failed to fetch account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", ErrAccountNotFound)
	}

	accountDTO := ToAccountDTO(*account)
	return &accountDTO, nil
}

// UpdateAccount applies the provided fields to the account. Omitted fields
// keep their stored values. The owner and initial balance never change.
func (s *AccountFlowImpl) UpdateAccount(ctx context.Context, userID, accountID uint, req *dto.UpdateAccountRequest, metadata *ClientMetadata) (*dto.AccountDTO, error) {
	if req.AccountType != nil && !models.IsValidAccountType(*req.AccountType) {
		return nil, NewBusinessError("ACCOUNT_VALIDATION_FAILED", "Invalid account type", ErrInvalidAccountType)
	}

	var account *models.Account
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		account, err = s.accountRepo.ByIDAndOwner(txCtx, accountID, userID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}

		if req.AccountName != nil && *req.AccountName != account.AccountName {
			existing, err := s.accountRepo.ByOwnerAndName(txCtx, userID, *req.AccountName)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != account.ID {
				return ErrAccountNameTaken
			}
		}

		patch := models.AccountPatch{
			AccountName:    req.AccountName,
			AccountType:    req.AccountType,
			CurrentBalance: req.CurrentBalance,
			Currency:       req.Currency,
		}
		patch.Apply(account)
		account.UpdatedAt = utils.UTCNow()

		return s.accountRepo.Update(txCtx, account)
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = ErrAccountNameTaken
	}

	if err != nil {
		switch {
		case IsAccountNotFound(err):
			return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", err)
		case IsAccountNameTaken(err):
			return nil, NewBusinessError("ACCOUNT_NAME_CONFLICT", "Account name already in use", err)
		default:
			return nil, NewBusinessError("ACCOUNT_UPDATE_FAILED", "Account update failed", err)
		}
	}

	msg := fmt.Sprintf("Account updated: %d", account.ID)
	_ = s.createAuditLog(ctx, userID, models.AuditActionAccountUpdated, msg, true, nil, metadata)

	accountDTO := ToAccountDTO(*account)
	return &accountDTO, nil
}

// DeleteAccount soft deletes the account. Deleting an already inactive
// account succeeds without effect. The record stays retrievable by id.
func (s *AccountFlowImpl) DeleteAccount(ctx context.Context, userID, accountID uint, metadata *ClientMetadata) error {
	account, err := s.accountRepo.ByIDAndOwner(ctx, accountID, userID)
	if err != nil {
		return NewBusinessError("ACCOUNT_DELETE_FAILED", "Account deletion failed", err)
	}
	if account == nil {
		return NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", ErrAccountNotFound)
	}

	if !utils.IsTrue(account.IsActive) {
		return nil
	}

	if err := s.accountRepo.SoftDelete(ctx, account.ID); err != nil {
		return NewBusinessError("ACCOUNT_DELETE_FAILED", "Account deletion failed", err)
	}

	msg := fmt.Sprintf("Account deleted: %d", account.ID)
	_ = s.createAuditLog(ctx, userID, models.AuditActionAccountDeleted, msg, true, nil, metadata)

	return nil
}

func (s *AccountFlowImpl) createAuditLog(ctx context.Context, userID uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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
