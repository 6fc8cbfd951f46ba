package repository

import (
	"context"
	"testing"

	"betledger/models"
	"betledger/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceRepository_GetByUser(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewBalanceRepository(testDB.DB)
	ctx := context.Background()

	userID := testutil.CreateTestUser(t, testDB.DB, "balance_user")
	testutil.CreateTestBalance(t, testDB.DB, userID, "100.00")

	t.Run("returns all balance rows", func(t *testing.T) {
		balances, err := repo.GetByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, balances, 1)
		assert.Equal(t, models.BalanceTypeBets, balances[0].BalanceType)
		assert.True(t, balances[0].Amount.Equal(decimal.RequireFromString("100.00")))
	})

	t.Run("empty for unknown user", func(t *testing.T) {
		balances, err := repo.GetByUser(ctx, 999999)
		require.NoError(t, err)
		assert.Empty(t, balances)
	})
}

func TestBalanceRepository_GetAndGetForUpdate(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewBalanceRepository(testDB.DB)
	ctx := context.Background()

	userID := testutil.CreateTestUser(t, testDB.DB, "lock_user")
	testutil.CreateTestBalance(t, testDB.DB, userID, "50.00")

	t.Run("get returns the row", func(t *testing.T) {
		balance, err := repo.Get(ctx, userID, models.BalanceTypeBets)
		require.NoError(t, err)
		require.NotNil(t, balance)
		assert.Equal(t, userID, balance.UserID)
	})

	t.Run("nil for missing balance type", func(t *testing.T) {
		balance, err := repo.Get(ctx, userID, models.BalanceTypeCrypto)
		require.NoError(t, err)
		assert.Nil(t, balance)
	})

	t.Run("for update inside a transaction", func(t *testing.T) {
		tx, err := testDB.DB.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		txRepo := newBalanceRepositoryWithTx(tx)
		balance, err := txRepo.GetForUpdate(ctx, userID, models.BalanceTypeBets)
		require.NoError(t, err)
		require.NotNil(t, balance)
		assert.True(t, balance.Amount.Equal(decimal.RequireFromString("50.00")))
	})
}

func TestBalanceRepository_UpdateAmount(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewBalanceRepository(testDB.DB)
	ctx := context.Background()

	userID := testutil.CreateTestUser(t, testDB.DB, "update_user")
	testutil.CreateTestBalance(t, testDB.DB, userID, "100.00")

	t.Run("updates the amount", func(t *testing.T) {
		err := repo.UpdateAmount(ctx, userID, models.BalanceTypeBets, decimal.RequireFromString("73.50"))
		require.NoError(t, err)

		balance, err := repo.Get(ctx, userID, models.BalanceTypeBets)
		require.NoError(t, err)
		assert.True(t, balance.Amount.Equal(decimal.RequireFromString("73.50")))
	})

	t.Run("errors when no row matches", func(t *testing.T) {
		err := repo.UpdateAmount(ctx, 999999, models.BalanceTypeBets, decimal.Zero)
		assert.Error(t, err)
	})
}
