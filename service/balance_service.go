package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"betledger/events"
	"betledger/models"
)

type balanceService struct {
	uowFactory UnitOfWorkFactory
	cache      BalanceCache
}

// NewBalanceService creates a new balance service
func NewBalanceService(uowFactory UnitOfWorkFactory, cache BalanceCache) BalanceService {
	return &balanceService{
		uowFactory: uowFactory,
		cache:      cache,
	}
}

// GetBalances returns all of the user's balance rows, served from the cache
// when a fresh entry exists
func (s *balanceService) GetBalances(ctx context.Context, userID int64) ([]*models.Balance, error) {
	if balances, ok := s.cache.Get(ctx, userID); ok {
		return balances, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, classifyStoreError(err)
	}
	defer uow.Rollback()

	balances, err := uow.BalanceRepository().GetByUser(ctx, userID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if err := uow.Commit(); err != nil {
		return nil, classifyStoreError(err)
	}

	s.cache.Set(ctx, userID, balances)
	return balances, nil
}

// GetBalanceHistory returns the audit trail for one balance type, oldest
// first. With excludeManual set, manual adjustments are filtered out so the
// result reflects pure win/loss accounting.
func (s *balanceService) GetBalanceHistory(ctx context.Context, userID int64, balanceType models.BalanceType, excludeManual bool) ([]*models.BalanceHistory, error) {
	if !balanceType.Valid() {
		return nil, validationErr(-1, "unknown balance type %q", balanceType)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, classifyStoreError(err)
	}
	defer uow.Rollback()

	history, err := uow.BalanceHistoryRepository().GetByUserAndType(ctx, userID, balanceType, excludeManual)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if err := uow.Commit(); err != nil {
		return nil, classifyStoreError(err)
	}
	return history, nil
}

// AdjustBalance applies a manual add/subtract against the bets balance under
// the same row-lock discipline as the betting flow. Subtractions clamp at a
// floor of zero. The audit entry is tagged manual_adjustment so downstream
// statistics can exclude it.
func (s *balanceService) AdjustBalance(ctx context.Context, userID int64, amount decimal.Decimal, op AdjustOperation) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, validationErr(-1, "adjustment amount must be positive")
	}
	if op != AdjustOperationAdd && op != AdjustOperationSubtract {
		return decimal.Zero, validationErr(-1, "unknown adjustment operation %q", op)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, classifyStoreError(err)
	}
	defer uow.Rollback()

	balance, err := uow.BalanceRepository().GetForUpdate(ctx, userID, models.BalanceTypeBets)
	if err != nil {
		return decimal.Zero, classifyStoreError(err)
	}
	if balance == nil {
		return decimal.Zero, ErrBalanceNotFound
	}

	var newAmount decimal.Decimal
	var description string
	if op == AdjustOperationAdd {
		newAmount = models.RoundMoney(balance.Amount.Add(amount))
		description = fmt.Sprintf("Manual deposit: +%s", amount.StringFixed(2))
	} else {
		newAmount = models.RoundMoney(decimal.Max(decimal.Zero, balance.Amount.Sub(amount)))
		description = fmt.Sprintf("Manual withdrawal: -%s", amount.StringFixed(2))
	}

	if err := uow.BalanceRepository().UpdateAmount(ctx, userID, models.BalanceTypeBets, newAmount); err != nil {
		return decimal.Zero, classifyStoreError(err)
	}

	history := &models.BalanceHistory{
		UserID:       userID,
		BalanceType:  models.BalanceTypeBets,
		AmountBefore: balance.Amount,
		AmountAfter:  newAmount,
		ChangeType:   models.ChangeTypeManualAdjustment,
		Description:  description,
	}
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return decimal.Zero, classifyStoreError(err)
	}

	uow.EventBus().Publish(events.BalanceAdjustedEvent{
		UserID:     userID,
		Operation:  string(op),
		Amount:     amount,
		NewBalance: newAmount,
	})

	if err := uow.Commit(); err != nil {
		return decimal.Zero, classifyStoreError(err)
	}
	s.cache.Invalidate(ctx, userID)

	log.WithFields(log.Fields{
		"userID":    userID,
		"operation": op,
		"amount":    amount,
	}).Info("Balance adjusted manually")

	return newAmount, nil
}
