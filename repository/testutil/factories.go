package testutil

import (
	"context"
	"testing"

	"betledger/database"
	"betledger/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// CreateTestUser inserts a user row and returns its id
func CreateTestUser(t *testing.T, db *database.DB, username string) int64 {
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO users (username) VALUES ($1) RETURNING id`, username).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateTestBalance inserts a funded balance row for the user
func CreateTestBalance(t *testing.T, db *database.DB, userID int64, amount string) *models.Balance {
	balance := &models.Balance{
		UserID:      userID,
		BalanceType: models.BalanceTypeBets,
		Amount:      decimal.RequireFromString(amount),
	}
	err := db.QueryRow(context.Background(),
		`INSERT INTO user_balances (user_id, balance_type, amount)
		 VALUES ($1, $2, $3)
		 RETURNING id, updated_at`,
		balance.UserID, balance.BalanceType, balance.Amount).Scan(&balance.ID, &balance.UpdatedAt)
	require.NoError(t, err)
	return balance
}

// CreateTestBet builds an unsaved single winner bet with sensible defaults
func CreateTestBet(userID int64, stake, odds string) *models.Bet {
	bet := &models.Bet{
		UserID:      userID,
		BetType:     models.BetTypeSingle,
		Category:    "test",
		StakeAmount: decimal.RequireFromString(stake),
		TotalOdds:   decimal.RequireFromString(odds),
		Status:      models.BetStatusActive,
		Events: []*models.BetEvent{
			{
				Discipline: models.DisciplineCounterStrike,
				TeamA:      "NAVI",
				TeamB:      "FaZe",
				Scope:      models.ScopeOverall,
				Market:     models.MarketWinner,
				Selection:  "NAVI",
				Odds:       decimal.RequireFromString(odds),
			},
		},
	}
	bet.PotentialPayout = bet.BasePayout()
	return bet
}
