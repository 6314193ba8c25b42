package businessflow_test

import (
	"context"
	"testing"

	"github.com/minhlq/finbook/app/dto"
	businessflow "github.com/minhlq/finbook/business_flow"
	"github.com/minhlq/finbook/models"
	"github.com/minhlq/finbook/repository"
	testingutil "github.com/minhlq/finbook/testing"
	"github.com/minhlq/finbook/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountFlow(testDB *testingutil.TestDB) businessflow.AccountFlow {
	return businessflow.NewAccountFlow(
		repository.NewAccountRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
	)
}

func createAccountRequest(name string) *dto.CreateAccountRequest {
	return &dto.CreateAccountRequest{
		AccountName:    name,
		AccountType:    models.AccountTypeCash,
		InitialBalance: 500,
		Currency:       "VND",
	}
}

func TestCreateAccount(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAccountFlow(testDB)
		ctx := context.Background()

		t.Run("CreatesAccount", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			account, err := flow.CreateAccount(ctx, user.ID, createAccountRequest("Wallet"), testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "Wallet", account.AccountName)
			assert.Equal(t, models.AccountTypeCash, account.AccountType)
			assert.Equal(t, 500.0, account.InitialBalance)
			assert.Equal(t, 500.0, account.CurrentBalance)
			assert.True(t, utils.IsTrue(account.IsActive))
			assert.NotEmpty(t, account.UUID)
		})

		t.Run("RejectsInvalidType", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			req := createAccountRequest("Broken")
			req.AccountType = "stocks"
			_, err = flow.CreateAccount(ctx, user.ID, req, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidAccountType(err))
		})

		t.Run("RejectsDuplicateNamePerOwner", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = flow.CreateAccount(ctx, user.ID, createAccountRequest("Savings"), testMetadata())
			require.NoError(t, err)

			_, err = flow.CreateAccount(ctx, user.ID, createAccountRequest("Savings"), testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountNameTaken(err))
		})

		t.Run("SameNameAllowedForDifferentOwners", func(t *testing.T) {
			first, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			second, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = flow.CreateAccount(ctx, first.ID, createAccountRequest("Shared name"), testMetadata())
			require.NoError(t, err)
			_, err = flow.CreateAccount(ctx, second.ID, createAccountRequest("Shared name"), testMetadata())
			assert.NoError(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestListAccounts(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAccountFlow(testDB)
		ctx := context.Background()

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		other, err := fixtures.CreateTestUser()
		require.NoError(t, err)

		_, err = fixtures.CreateTestAccount(user.ID, "Cash")
		require.NoError(t, err)
		deleted, err := fixtures.CreateTestAccount(user.ID, "Old wallet")
		require.NoError(t, err)
		_, err = fixtures.CreateTestAccount(other.ID, "Other cash")
		require.NoError(t, err)

		require.NoError(t, flow.DeleteAccount(ctx, user.ID, deleted.ID, testMetadata()))

		t.Run("ScopedToOwner", func(t *testing.T) {
			accounts, err := flow.ListAccounts(ctx, user.ID, nil, 100, 0)
			require.NoError(t, err)
			assert.Len(t, accounts, 2)
		})

		t.Run("FilterActiveOnly", func(t *testing.T) {
			accounts, err := flow.ListAccounts(ctx, user.ID, utils.ToPtr(true), 100, 0)
			require.NoError(t, err)
			require.Len(t, accounts, 1)
			assert.Equal(t, "Cash", accounts[0].AccountName)
		})

		t.Run("FilterInactiveOnly", func(t *testing.T) {
			accounts, err := flow.ListAccounts(ctx, user.ID, utils.ToPtr(false), 100, 0)
			require.NoError(t, err)
			require.Len(t, accounts, 1)
			assert.Equal(t, "Old wallet", accounts[0].AccountName)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestGetAccount(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAccountFlow(testDB)
		ctx := context.Background()

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		other, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		account, err := fixtures.CreateTestAccount(user.ID, "Cash")
		require.NoError(t, err)

		t.Run("ReturnsOwnAccount", func(t *testing.T) {
			fetched, err := flow.GetAccount(ctx, user.ID, account.ID)
			require.NoError(t, err)
			assert.Equal(t, account.ID, fetched.ID)
		})

		t.Run("OtherOwnersAccountReportedAbsent", func(t *testing.T) {
			_, err := flow.GetAccount(ctx, other.ID, account.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountNotFound(err))
		})

		t.Run("UnknownAccount", func(t *testing.T) {
			_, err := flow.GetAccount(ctx, user.ID, 999999)
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestUpdateAccount(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAccountFlow(testDB)
		ctx := context.Background()

		t.Run("AppliesPartialUpdate", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			account, err := fixtures.CreateTestAccount(user.ID, "Cash")
			require.NoError(t, err)

			updated, err := flow.UpdateAccount(ctx, user.ID, account.ID, &dto.UpdateAccountRequest{
				AccountName:    utils.ToPtr("Renamed"),
				CurrentBalance: utils.ToPtr(2500.0),
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "Renamed", updated.AccountName)
			assert.Equal(t, 2500.0, updated.CurrentBalance)
			// Untouched fields keep their stored values
			assert.Equal(t, account.AccountType, updated.AccountType)
			assert.Equal(t, account.InitialBalance, updated.InitialBalance)
		})

		t.Run("RenameToTakenNameRejected", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			_, err = fixtures.CreateTestAccount(user.ID, "First")
			require.NoError(t, err)
			second, err := fixtures.CreateTestAccount(user.ID, "Second")
			require.NoError(t, err)

			_, err = flow.UpdateAccount(ctx, user.ID, second.ID, &dto.UpdateAccountRequest{
				AccountName: utils.ToPtr("First"),
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountNameTaken(err))
		})

		t.Run("RenameToOwnNameAllowed", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			account, err := fixtures.CreateTestAccount(user.ID, "Keeper")
			require.NoError(t, err)

			_, err = flow.UpdateAccount(ctx, user.ID, account.ID, &dto.UpdateAccountRequest{
				AccountName: utils.ToPtr("Keeper"),
			}, testMetadata())
			assert.NoError(t, err)
		})

		t.Run("InvalidTypeRejected", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			account, err := fixtures.CreateTestAccount(user.ID, "Typed")
			require.NoError(t, err)

			_, err = flow.UpdateAccount(ctx, user.ID, account.ID, &dto.UpdateAccountRequest{
				AccountType: utils.ToPtr("stocks"),
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidAccountType(err))
		})

		t.Run("CrossOwnerReportedAbsent", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			other, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			account, err := fixtures.CreateTestAccount(user.ID, "Private")
			require.NoError(t, err)

			_, err = flow.UpdateAccount(ctx, other.ID, account.ID, &dto.UpdateAccountRequest{
				AccountName: utils.ToPtr("Hijacked"),
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAccountFlow(testDB)
		ctx := context.Background()

		t.Run("SoftDeletesAccount", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			account, err := fixtures.CreateTestAccount(user.ID, "Doomed")
			require.NoError(t, err)

			require.NoError(t, flow.DeleteAccount(ctx, user.ID, account.ID, testMetadata()))

			// Record stays retrievable by id
			fetched, err := flow.GetAccount(ctx, user.ID, account.ID)
			require.NoError(t, err)
			assert.False(t, utils.IsTrue(fetched.IsActive))
		})

		t.Run("DeleteIsIdempotent", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			account, err := fixtures.CreateTestAccount(user.ID, "Twice")
			require.NoError(t, err)

			require.NoError(t, flow.DeleteAccount(ctx, user.ID, account.ID, testMetadata()))
			assert.NoError(t, flow.DeleteAccount(ctx, user.ID, account.ID, testMetadata()))
		})

		t.Run("DeletedNameIsReusable", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			account, err := fixtures.CreateTestAccount(user.ID, "Recycled")
			require.NoError(t, err)

			require.NoError(t, flow.DeleteAccount(ctx, user.ID, account.ID, testMetadata()))

			_, err = flow.CreateAccount(ctx, user.ID, createAccountRequest("Recycled"), testMetadata())
			assert.NoError(t, err)
		})

		t.Run("CrossOwnerReportedAbsent", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			other, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			account, err := fixtures.CreateTestAccount(user.ID, "Guarded")
			require.NoError(t, err)

			err = flow.DeleteAccount(ctx, other.ID, account.ID, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
