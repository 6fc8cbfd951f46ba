package service

import (
	"context"

	"betledger/events"
	"betledger/models"

	"github.com/shopspring/decimal"
)

// BalanceRepository defines the interface for balance data access
type BalanceRepository interface {
	// GetByUser returns all balance rows for a user
	GetByUser(ctx context.Context, userID int64) ([]*models.Balance, error)

	// Get returns the balance row for a (user, type) pair, or nil if absent
	Get(ctx context.Context, userID int64, balanceType models.BalanceType) (*models.Balance, error)

	// GetForUpdate locks the balance row exclusively for the rest of the
	// transaction and returns it, or nil if absent
	GetForUpdate(ctx context.Context, userID int64, balanceType models.BalanceType) (*models.Balance, error)

	// UpdateAmount sets a new amount on the (user, type) row
	UpdateAmount(ctx context.Context, userID int64, balanceType models.BalanceType, amount decimal.Decimal) error
}

// BalanceHistoryRepository defines the interface for the append-only audit trail
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUserAndType returns history entries ordered by creation time
	// ascending, optionally excluding manual adjustments
	GetByUserAndType(ctx context.Context, userID int64, balanceType models.BalanceType, excludeManual bool) ([]*models.BalanceHistory, error)
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// Create inserts a bet together with its event legs
	Create(ctx context.Context, bet *models.Bet) error

	// GetByIDForUpdate locks the bet row for the rest of the transaction and
	// returns it, or nil when no bet matches the (id, user) pair
	GetByIDForUpdate(ctx context.Context, id, userID int64) (*models.Bet, error)

	// UpdateStatus sets status and potential payout on a bet
	UpdateStatus(ctx context.Context, id int64, status models.BetStatus, potentialPayout decimal.Decimal) error

	// GetAllByUser returns a user's bets with nested events, newest first
	GetAllByUser(ctx context.Context, userID int64) ([]*models.Bet, error)
}

// UnitOfWork represents one atomic transaction over the repositories
type UnitOfWork interface {
	// Begin starts the transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events.
	// Safe to call after Commit as a no-op.
	Rollback() error

	BalanceRepository() BalanceRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	BetRepository() BetRepository

	// EventBus stages events for publication after a successful commit
	EventBus() events.Publisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// BalanceCache is a read-through cache for balance lookups. Implementations
// must tolerate being skipped entirely: a cache error never fails the
// operation, and mutations invalidate rather than update.
type BalanceCache interface {
	Get(ctx context.Context, userID int64) ([]*models.Balance, bool)
	Set(ctx context.Context, userID int64, balances []*models.Balance)
	Invalidate(ctx context.Context, userID int64)
}

// PlaceBetResult is returned to the caller after a successful placement
type PlaceBetResult struct {
	BetID      int64
	NewBalance decimal.Decimal
}

// SettleBetResult is returned to the caller after a status transition
type SettleBetResult struct {
	NewBalance decimal.Decimal
	Bet        *models.Bet
}

// AdjustOperation is the direction of a manual balance adjustment
type AdjustOperation string

const (
	AdjustOperationAdd      AdjustOperation = "add"
	AdjustOperationSubtract AdjustOperation = "subtract"
)

// BettingService defines bet placement and settlement operations
type BettingService interface {
	// PlaceBet validates and places a bet, debiting the stake atomically
	PlaceBet(ctx context.Context, userID int64, req *PlaceBetRequest) (*PlaceBetResult, error)

	// SetBetStatus transitions a bet between statuses, applying the signed
	// balance delta. Same-status calls are idempotent no-ops.
	SetBetStatus(ctx context.Context, userID, betID int64, newStatus models.BetStatus) (*SettleBetResult, error)

	// GetBetHistory returns the user's bets with nested events, newest first
	GetBetHistory(ctx context.Context, userID int64) ([]*models.Bet, error)
}

// BalanceService defines balance reads and manual adjustments
type BalanceService interface {
	// GetBalances returns all of a user's balance rows
	GetBalances(ctx context.Context, userID int64) ([]*models.Balance, error)

	// GetBalanceHistory returns the audit trail for one balance, oldest first
	GetBalanceHistory(ctx context.Context, userID int64, balanceType models.BalanceType, excludeManual bool) ([]*models.BalanceHistory, error)

	// AdjustBalance applies a manual add/subtract outside the betting flow.
	// Subtractions clamp at zero.
	AdjustBalance(ctx context.Context, userID int64, amount decimal.Decimal, op AdjustOperation) (decimal.Decimal, error)
}
