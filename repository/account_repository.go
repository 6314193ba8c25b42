// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/minhlq/finbook/models"
	"github.com/minhlq/finbook/utils"
	"gorm.io/gorm"
)

// AccountRepositoryImpl implements AccountRepository interface
type AccountRepositoryImpl struct {
	*BaseRepository[models.Account, models.AccountFilter]
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Account, models.AccountFilter](db),
	}
}

// ByIDAndOwner retrieves an account scoped to its owner. Accounts belonging
// to other users are reported as absent.
func (r *AccountRepositoryImpl) ByIDAndOwner(ctx context.Context, accountID, ownerID uint) (*models.Account, error) {
	filter := models.AccountFilter{ID: &accountID, UserID: &ownerID}
	accounts, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by id and owner: %w", err)
	}

	if len(accounts) == 0 {
		return nil, nil
	}

	return accounts[0], nil
}

// ByOwnerAndName retrieves the owner's active account carrying the given name
func (r *AccountRepositoryImpl) ByOwnerAndName(ctx context.Context, ownerID uint, accountName string) (*models.Account, error) {
	filter := models.AccountFilter{
		UserID:      &ownerID,
		AccountName: &accountName,
		IsActive:    utils.ToPtr(true),
	}
	accounts, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by owner and name: %w", err)
	}

	if len(accounts) == 0 {
		return nil, nil
	}

	return accounts[0], nil
}

// ListByOwner retrieves the owner's accounts, optionally filtered by active state
func (r *AccountRepositoryImpl) ListByOwner(ctx context.Context, ownerID uint, isActive *bool, limit, offset int) ([]*models.Account, error) {
	filter := models.AccountFilter{
		UserID:   &ownerID,
		IsActive: isActive,
	}

	accounts, err := r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts by owner: %w", err)
	}

	return accounts, nil
}

// SoftDelete marks the account inactive. Deleting an inactive account is a no-op.
func (r *AccountRepositoryImpl) SoftDelete(ctx context.Context, accountID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to soft delete account: %w", err)
	}

	return nil
}

// ByFilter retrieves accounts based on filter criteria
func (r *AccountRepositoryImpl) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Account{}), filter)

	// Apply ordering (default to id DESC)
	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	// Apply pagination
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var accounts []*models.Account
	err := query.Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts by filter: %w", err)
	}

	return accounts, nil
}

// Count returns the number of accounts matching the filter
func (r *AccountRepositoryImpl) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Account{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return count, nil
}

// Exists checks if any account matching the filter exists
func (r *AccountRepositoryImpl) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *AccountRepositoryImpl) applyFilter(query *gorm.DB, filter models.AccountFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}

	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	if filter.AccountName != nil {
		query = query.Where("account_name = ?", *filter.AccountName)
	}

	if filter.AccountType != nil {
		query = query.Where("account_type = ?", *filter.AccountType)
	}

	if filter.Currency != nil {
		query = query.Where("currency = ?", *filter.Currency)
	}

	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}

	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	return query
}
