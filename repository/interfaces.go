// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/minhlq/finbook/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Update(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUsername(ctx context.Context, username string) (*models.User, error)
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
	Activate(ctx context.Context, userID uint) error
	UpdateLastLogin(ctx context.Context, userID uint) error
}

// AccountRepository defines operations for financial accounts
type AccountRepository interface {
	Repository[models.Account, models.AccountFilter]
	ByIDAndOwner(ctx context.Context, accountID, ownerID uint) (*models.Account, error)
	ByOwnerAndName(ctx context.Context, ownerID uint, accountName string) (*models.Account, error)
	ListByOwner(ctx context.Context, ownerID uint, isActive *bool, limit, offset int) ([]*models.Account, error)
	SoftDelete(ctx context.Context, accountID uint) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
