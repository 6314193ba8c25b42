package testing

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/minhlq/finbook/models"
	"github.com/minhlq/finbook/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext password every fixture user is created with
const TestPassword = "TestPass123!"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates an active user with a bcrypt-hashed password
func (tf *TestFixtures) CreateTestUser() (*models.User, error) {
	return tf.createUser(true)
}

// CreateInactiveTestUser creates a user that has not activated their account yet
func (tf *TestFixtures) CreateInactiveTestUser() (*models.User, error) {
	return tf.createUser(false)
}

func (tf *TestFixtures) createUser(active bool) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	suffix := rand.Intn(1000000)
	user := &models.User{
		UUID:            uuid.New(),
		Username:        fmt.Sprintf("testuser%d", suffix),
		Email:           fmt.Sprintf("testuser%d@example.com", suffix),
		PasswordHash:    string(hashedPassword),
		FullName:        utils.ToPtr("Test User"),
		DefaultCurrency: utils.DefaultCurrency,
		IsActive:        utils.ToPtr(active),
		CreatedAt:       utils.UTCNow(),
		UpdatedAt:       utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestAccount creates an active account for the user
func (tf *TestFixtures) CreateTestAccount(userID uint, name string) (*models.Account, error) {
	account := &models.Account{
		UUID:           uuid.New(),
		UserID:         userID,
		AccountName:    name,
		AccountType:    models.AccountTypeCash,
		InitialBalance: 1000,
		CurrentBalance: 1000,
		Currency:       utils.DefaultCurrency,
		IsActive:       utils.ToPtr(true),
		CreatedAt:      utils.UTCNow(),
		UpdatedAt:      utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}
	return account, nil
}
