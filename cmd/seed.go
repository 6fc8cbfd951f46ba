package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"betledger/config"
	"betledger/database"
	"betledger/models"
)

const (
	seedUserCount   = 10
	seedUserIDBase  = 1000
	seedUsernameFmt = "test_user_%d"
)

var seedInitialBalance = decimal.NewFromInt(100)

// Seed populates the database with test users and funded balances for local
// development. Existing users are left untouched.
func Seed(ctx context.Context) error {
	cfg := config.Get()

	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	log.Printf("Seeding %d users...", seedUserCount)

	return db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for i := 0; i < seedUserCount; i++ {
			userID := int64(seedUserIDBase + i)

			tag, err := tx.Exec(ctx, `
				INSERT INTO users (id, username)
				VALUES ($1, $2)
				ON CONFLICT (id) DO NOTHING`,
				userID, fmt.Sprintf(seedUsernameFmt, i))
			if err != nil {
				return fmt.Errorf("failed to insert user %d: %w", userID, err)
			}
			if tag.RowsAffected() == 0 {
				continue
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO user_balances (user_id, balance_type, amount)
				VALUES ($1, $2, $3)`,
				userID, models.BalanceTypeBets, seedInitialBalance)
			if err != nil {
				return fmt.Errorf("failed to insert balance for user %d: %w", userID, err)
			}

			log.Printf("Seeded user %d with balance %s", userID, seedInitialBalance)
		}
		return nil
	})
}
