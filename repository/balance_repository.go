package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"betledger/database"
	"betledger/models"
)

// BalanceRepository implements the BalanceRepository interface
type BalanceRepository struct {
	q queryable
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *database.DB) *BalanceRepository {
	return &BalanceRepository{q: db.Pool}
}

// newBalanceRepositoryWithTx creates a new balance repository with a transaction
func newBalanceRepositoryWithTx(tx queryable) *BalanceRepository {
	return &BalanceRepository{q: tx}
}

// GetByUser returns all balance rows for a user
func (r *BalanceRepository) GetByUser(ctx context.Context, userID int64) ([]*models.Balance, error) {
	query := `
		SELECT id, user_id, balance_type, amount, updated_at
		FROM user_balances
		WHERE user_id = $1
		ORDER BY balance_type
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances for user %d: %w", userID, err)
	}
	defer rows.Close()

	var balances []*models.Balance
	for rows.Next() {
		var b models.Balance
		if err := rows.Scan(&b.ID, &b.UserID, &b.BalanceType, &b.Amount, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance row: %w", err)
		}
		balances = append(balances, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read balance rows: %w", err)
	}

	return balances, nil
}

// Get returns the balance row for a (user, type) pair, or nil if absent
func (r *BalanceRepository) Get(ctx context.Context, userID int64, balanceType models.BalanceType) (*models.Balance, error) {
	return r.get(ctx, userID, balanceType, false)
}

// GetForUpdate locks the balance row exclusively for the rest of the
// transaction and returns it, or nil if absent. Concurrent operations on the
// same balance block here until the holder commits or rolls back.
func (r *BalanceRepository) GetForUpdate(ctx context.Context, userID int64, balanceType models.BalanceType) (*models.Balance, error) {
	return r.get(ctx, userID, balanceType, true)
}

func (r *BalanceRepository) get(ctx context.Context, userID int64, balanceType models.BalanceType, forUpdate bool) (*models.Balance, error) {
	query := `
		SELECT id, user_id, balance_type, amount, updated_at
		FROM user_balances
		WHERE user_id = $1 AND balance_type = $2
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var b models.Balance
	err := r.q.QueryRow(ctx, query, userID, balanceType).Scan(
		&b.ID,
		&b.UserID,
		&b.BalanceType,
		&b.Amount,
		&b.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s balance for user %d: %w", balanceType, userID, err)
	}

	return &b, nil
}

// UpdateAmount sets a new amount on the (user, type) row
func (r *BalanceRepository) UpdateAmount(ctx context.Context, userID int64, balanceType models.BalanceType, amount decimal.Decimal) error {
	query := `
		UPDATE user_balances
		SET amount = $3, updated_at = NOW()
		WHERE user_id = $1 AND balance_type = $2
	`

	tag, err := r.q.Exec(ctx, query, userID, balanceType, amount)
	if err != nil {
		return fmt.Errorf("failed to update %s balance for user %d: %w", balanceType, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no %s balance row for user %d", balanceType, userID)
	}

	return nil
}

// Create inserts a balance row. Provisioning-time helper, used by tests and
// the seeder; the coordinator never creates balance rows.
func (r *BalanceRepository) Create(ctx context.Context, balance *models.Balance) error {
	query := `
		INSERT INTO user_balances (user_id, balance_type, amount)
		VALUES ($1, $2, $3)
		RETURNING id, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		balance.UserID,
		balance.BalanceType,
		balance.Amount,
	).Scan(&balance.ID, &balance.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create balance: %w", err)
	}

	return nil
}
