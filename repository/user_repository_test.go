package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/minhlq/finbook/models"
	"github.com/minhlq/finbook/repository"
	testingutil "github.com/minhlq/finbook/testing"
	"github.com/minhlq/finbook/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewUserRepository(testDB.DB)
		ctx := context.Background()

		t.Run("SaveAndByID", func(t *testing.T) {
			user := &models.User{
				Username:        "saveuser",
				Email:           "saveuser@example.com",
				PasswordHash:    "hash",
				DefaultCurrency: "VND",
				IsActive:        utils.ToPtr(false),
			}
			require.NoError(t, repo.Save(ctx, user))
			require.NotZero(t, user.ID)
			assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", user.UUID.String())

			found, err := repo.ByID(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, "saveuser", found.Username)
		})

		t.Run("ByIDMissingReturnsNil", func(t *testing.T) {
			found, err := repo.ByID(ctx, 999999)
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ByEmailAndByUsername", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			byEmail, err := repo.ByEmail(ctx, user.Email)
			require.NoError(t, err)
			require.NotNil(t, byEmail)
			assert.Equal(t, user.ID, byEmail.ID)

			byUsername, err := repo.ByUsername(ctx, user.Username)
			require.NoError(t, err)
			require.NotNil(t, byUsername)
			assert.Equal(t, user.ID, byUsername.ID)

			missing, err := repo.ByEmail(ctx, "missing@example.com")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("ByUUID", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			found, err := repo.ByUUID(ctx, user.UUID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, user.ID, found.ID)
		})

		t.Run("DuplicateEmailTranslated", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			dup := &models.User{
				Username:        "different",
				Email:           user.Email,
				PasswordHash:    "hash",
				DefaultCurrency: "VND",
				IsActive:        utils.ToPtr(false),
			}
			err = repo.Save(ctx, dup)
			require.Error(t, err)
			assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
		})

		t.Run("UpdatePassword", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))

			found, err := repo.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, "new-hash", found.PasswordHash)
		})

		t.Run("Activate", func(t *testing.T) {
			user, err := fixtures.CreateInactiveTestUser()
			require.NoError(t, err)

			require.NoError(t, repo.Activate(ctx, user.ID))

			found, err := repo.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.True(t, utils.IsTrue(found.IsActive))
		})

		t.Run("UpdateLastLogin", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			require.Nil(t, user.LastLoginAt)

			require.NoError(t, repo.UpdateLastLogin(ctx, user.ID))

			found, err := repo.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.NotNil(t, found.LastLoginAt)
		})

		t.Run("FilterByActiveState", func(t *testing.T) {
			require.NoError(t, testDB.Truncate("users"))

			_, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			_, err = fixtures.CreateInactiveTestUser()
			require.NoError(t, err)

			active, err := repo.ByFilter(ctx, models.UserFilter{IsActive: utils.ToPtr(true)}, "", 0, 0)
			require.NoError(t, err)
			assert.Len(t, active, 1)

			total, err := repo.Count(ctx, models.UserFilter{})
			require.NoError(t, err)
			assert.Equal(t, int64(2), total)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestWithTransactionRollback(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewUserRepository(testDB.DB)
		ctx := context.Background()

		sentinel := errors.New("boom")
		err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
			user := &models.User{
				Username:        "rollback",
				Email:           "rollback@example.com",
				PasswordHash:    "hash",
				DefaultCurrency: "VND",
				IsActive:        utils.ToPtr(false),
			}
			if err := repo.Save(txCtx, user); err != nil {
				return err
			}
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)

		found, err := repo.ByEmail(ctx, "rollback@example.com")
		require.NoError(t, err)
		assert.Nil(t, found)

		return nil
	})
	require.NoError(t, err)
}
