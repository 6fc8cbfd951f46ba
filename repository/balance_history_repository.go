package repository

import (
	"context"
	"fmt"

	"betledger/database"
	"betledger/models"
)

// BalanceHistoryRepository implements the BalanceHistoryRepository interface
type BalanceHistoryRepository struct {
	q queryable
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(db *database.DB) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: db.Pool}
}

// newBalanceHistoryRepositoryWithTx creates a new balance history repository with a transaction
func newBalanceHistoryRepositoryWithTx(tx queryable) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: tx}
}

// Record creates a new balance history entry
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	query := `
		INSERT INTO balance_history
		(user_id, balance_type, amount_before, amount_after, change_type, related_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		history.UserID,
		history.BalanceType,
		history.AmountBefore,
		history.AmountAfter,
		history.ChangeType,
		history.RelatedBetID,
		history.Description,
	).Scan(&history.ID, &history.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	return nil
}

// GetByUserAndType returns history entries for a (user, balance type) pair,
// oldest first. With excludeManual set, manual_adjustment entries are
// filtered out.
func (r *BalanceHistoryRepository) GetByUserAndType(ctx context.Context, userID int64, balanceType models.BalanceType, excludeManual bool) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, user_id, balance_type, amount_before, amount_after, change_type, related_id, description, created_at
		FROM balance_history
		WHERE user_id = $1 AND balance_type = $2
	`
	args := []any{userID, balanceType}
	if excludeManual {
		query += ` AND change_type != $3`
		args = append(args, models.ChangeTypeManualAdjustment)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for user %d: %w", userID, err)
	}
	defer rows.Close()

	var entries []*models.BalanceHistory
	for rows.Next() {
		var h models.BalanceHistory
		if err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.BalanceType,
			&h.AmountBefore,
			&h.AmountAfter,
			&h.ChangeType,
			&h.RelatedBetID,
			&h.Description,
			&h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan balance history row: %w", err)
		}
		entries = append(entries, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read balance history rows: %w", err)
	}

	return entries, nil
}
