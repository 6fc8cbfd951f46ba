package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"betledger/database"
	"betledger/models"
)

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

// newBetRepositoryWithTx creates a new bet repository with a transaction
func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

// Create inserts a bet and its event legs. Must run inside a transaction so
// a failed leg insert never leaves a legless bet behind.
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	betQuery := `
		INSERT INTO bets (user_id, bet_type, category, stake_amount, total_odds, potential_payout, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, betQuery,
		bet.UserID,
		bet.BetType,
		bet.Category,
		bet.StakeAmount,
		bet.TotalOdds,
		bet.PotentialPayout,
		bet.Status,
	).Scan(&bet.ID, &bet.CreatedAt, &bet.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create bet: %w", err)
	}

	eventQuery := `
		INSERT INTO bet_events
		(bet_id, discipline, team_a, team_b, scope, map_number, market, selection, total_side, total_line, odds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	for _, ev := range bet.Events {
		ev.BetID = bet.ID
		err := r.q.QueryRow(ctx, eventQuery,
			ev.BetID,
			ev.Discipline,
			ev.TeamA,
			ev.TeamB,
			ev.Scope,
			ev.MapNumber,
			ev.Market,
			ev.Selection,
			ev.TotalSide,
			ev.TotalLine,
			ev.Odds,
		).Scan(&ev.ID)
		if err != nil {
			return fmt.Errorf("failed to create bet event for bet %d: %w", bet.ID, err)
		}
	}

	return nil
}

// GetByIDForUpdate locks the bet row for the rest of the transaction and
// returns it, or nil when no bet matches the (id, user) pair. Event legs are
// not loaded; settlement only needs the bet row.
func (r *BetRepository) GetByIDForUpdate(ctx context.Context, id, userID int64) (*models.Bet, error) {
	query := `
		SELECT id, user_id, bet_type, category, stake_amount, total_odds, potential_payout, status, created_at, updated_at
		FROM bets
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`

	var bet models.Bet
	err := r.q.QueryRow(ctx, query, id, userID).Scan(
		&bet.ID,
		&bet.UserID,
		&bet.BetType,
		&bet.Category,
		&bet.StakeAmount,
		&bet.TotalOdds,
		&bet.PotentialPayout,
		&bet.Status,
		&bet.CreatedAt,
		&bet.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d for user %d: %w", id, userID, err)
	}

	return &bet, nil
}

// UpdateStatus sets status and potential payout on a bet
func (r *BetRepository) UpdateStatus(ctx context.Context, id int64, status models.BetStatus, potentialPayout decimal.Decimal) error {
	query := `
		UPDATE bets
		SET status = $2, potential_payout = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, id, status, potentialPayout)
	if err != nil {
		return fmt.Errorf("failed to update status of bet %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no bet with id %d", id)
	}

	return nil
}

// GetAllByUser returns a user's bets with nested events, newest first
func (r *BetRepository) GetAllByUser(ctx context.Context, userID int64) ([]*models.Bet, error) {
	betsQuery := `
		SELECT id, user_id, bet_type, category, stake_amount, total_odds, potential_payout, status, created_at, updated_at
		FROM bets
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.q.Query(ctx, betsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets for user %d: %w", userID, err)
	}
	defer rows.Close()

	var bets []*models.Bet
	byID := make(map[int64]*models.Bet)
	for rows.Next() {
		var bet models.Bet
		if err := rows.Scan(
			&bet.ID,
			&bet.UserID,
			&bet.BetType,
			&bet.Category,
			&bet.StakeAmount,
			&bet.TotalOdds,
			&bet.PotentialPayout,
			&bet.Status,
			&bet.CreatedAt,
			&bet.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bet row: %w", err)
		}
		bets = append(bets, &bet)
		byID[bet.ID] = &bet
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bet rows: %w", err)
	}
	if len(bets) == 0 {
		return bets, nil
	}

	eventsQuery := `
		SELECT e.id, e.bet_id, e.discipline, e.team_a, e.team_b, e.scope, e.map_number, e.market, e.selection, e.total_side, e.total_line, e.odds
		FROM bet_events e
		JOIN bets b ON b.id = e.bet_id
		WHERE b.user_id = $1
		ORDER BY e.bet_id, e.id
	`

	eventRows, err := r.q.Query(ctx, eventsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet events for user %d: %w", userID, err)
	}
	defer eventRows.Close()

	for eventRows.Next() {
		var ev models.BetEvent
		if err := eventRows.Scan(
			&ev.ID,
			&ev.BetID,
			&ev.Discipline,
			&ev.TeamA,
			&ev.TeamB,
			&ev.Scope,
			&ev.MapNumber,
			&ev.Market,
			&ev.Selection,
			&ev.TotalSide,
			&ev.TotalLine,
			&ev.Odds,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bet event row: %w", err)
		}
		if bet, ok := byID[ev.BetID]; ok {
			bet.Events = append(bet.Events, &ev)
		}
	}
	if err := eventRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bet event rows: %w", err)
	}

	return bets, nil
}
