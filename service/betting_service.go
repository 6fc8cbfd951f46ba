package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"betledger/events"
	"betledger/models"
)

type bettingService struct {
	uowFactory UnitOfWorkFactory
	cache      BalanceCache
}

// NewBettingService creates a new betting service
func NewBettingService(uowFactory UnitOfWorkFactory, cache BalanceCache) BettingService {
	return &bettingService{
		uowFactory: uowFactory,
		cache:      cache,
	}
}

// PlaceBet validates the request, then debits the stake, inserts the bet with
// its event legs and records the audit entry in one atomic unit of work. The
// user's balance row is locked for the whole transaction, so concurrent
// placements for the same user serialize and the second sees the first's
// committed debit before deciding insufficiency.
func (s *bettingService) PlaceBet(ctx context.Context, userID int64, req *PlaceBetRequest) (*PlaceBetResult, error) {
	if err := ValidateBetRequest(req); err != nil {
		return nil, err
	}
	totalOdds := ComputeTotalOdds(req.BetType, req.Events)
	stake := models.RoundMoney(req.Stake)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, classifyStoreError(err)
	}
	defer uow.Rollback() // No-op if already committed

	balance, err := uow.BalanceRepository().GetForUpdate(ctx, userID, models.BalanceTypeBets)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if balance == nil {
		return nil, ErrBalanceNotFound
	}
	if balance.Amount.LessThan(stake) {
		return nil, &InsufficientFundsError{Available: balance.Amount, Required: stake}
	}

	bet := &models.Bet{
		UserID:      userID,
		BetType:     req.BetType,
		Category:    req.Category,
		StakeAmount: stake,
		TotalOdds:   totalOdds,
		Status:      models.BetStatusActive,
		Events:      req.Events,
	}
	bet.PotentialPayout = bet.BasePayout()

	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		return nil, classifyStoreError(err)
	}

	// Debit exactly the stake the bet records, so a refund restores it in full
	newAmount := models.RoundMoney(balance.Amount.Sub(stake))
	if err := uow.BalanceRepository().UpdateAmount(ctx, userID, models.BalanceTypeBets, newAmount); err != nil {
		return nil, classifyStoreError(err)
	}

	history := &models.BalanceHistory{
		UserID:       userID,
		BalanceType:  models.BalanceTypeBets,
		AmountBefore: balance.Amount,
		AmountAfter:  newAmount,
		ChangeType:   models.ChangeTypeBetPlaced,
		RelatedBetID: &bet.ID,
		Description:  fmt.Sprintf("Stake for bet #%d", bet.ID),
	}
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return nil, classifyStoreError(err)
	}

	uow.EventBus().Publish(events.BetPlacedEvent{
		UserID:     userID,
		BetID:      bet.ID,
		BetType:    bet.BetType,
		Stake:      bet.StakeAmount,
		TotalOdds:  bet.TotalOdds,
		NewBalance: newAmount,
		EventCount: len(bet.Events),
	})

	if err := uow.Commit(); err != nil {
		return nil, classifyStoreError(err)
	}
	s.cache.Invalidate(ctx, userID)

	log.WithFields(log.Fields{
		"userID":    userID,
		"betID":     bet.ID,
		"betType":   bet.BetType,
		"stake":     bet.StakeAmount,
		"totalOdds": bet.TotalOdds,
	}).Info("Bet placed")

	return &PlaceBetResult{BetID: bet.ID, NewBalance: newAmount}, nil
}

// SetBetStatus transitions a bet between any two statuses and applies the
// signed balance delta between the old and new credit. Re-settling to the
// same status is an idempotent no-op: the balance is untouched and no audit
// row is written. Both the bet row and the balance row are locked, so
// concurrent settlements of the same bet serialize and the loser computes its
// delta against the winner's committed status.
func (s *bettingService) SetBetStatus(ctx context.Context, userID, betID int64, newStatus models.BetStatus) (*SettleBetResult, error) {
	if !newStatus.Valid() {
		return nil, validationErr(-1, "unknown bet status %q", newStatus)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, classifyStoreError(err)
	}
	defer uow.Rollback()

	bet, err := uow.BetRepository().GetByIDForUpdate(ctx, betID, userID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if bet == nil {
		return nil, ErrBetNotFound
	}

	if bet.Status == newStatus {
		// Nothing to do; report the current balance unchanged
		balance, err := uow.BalanceRepository().Get(ctx, userID, models.BalanceTypeBets)
		if err != nil {
			return nil, classifyStoreError(err)
		}
		if balance == nil {
			return nil, ErrBalanceNotFound
		}
		return &SettleBetResult{NewBalance: balance.Amount, Bet: bet}, nil
	}

	balance, err := uow.BalanceRepository().GetForUpdate(ctx, userID, models.BalanceTypeBets)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if balance == nil {
		return nil, ErrBalanceNotFound
	}

	oldStatus := bet.Status
	delta := bet.SettlementDelta(newStatus)
	newPotential := bet.PayoutForStatus(newStatus)

	if err := uow.BetRepository().UpdateStatus(ctx, betID, newStatus, newPotential); err != nil {
		return nil, classifyStoreError(err)
	}

	newAmount := balance.Amount
	if !delta.IsZero() {
		newAmount = models.RoundMoney(balance.Amount.Add(delta))
		if err := uow.BalanceRepository().UpdateAmount(ctx, userID, models.BalanceTypeBets, newAmount); err != nil {
			return nil, classifyStoreError(err)
		}

		history := &models.BalanceHistory{
			UserID:       userID,
			BalanceType:  models.BalanceTypeBets,
			AmountBefore: balance.Amount,
			AmountAfter:  newAmount,
			ChangeType:   settlementChangeType(newStatus, delta.IsPositive()),
			RelatedBetID: &betID,
			Description:  settlementDescription(newStatus, delta.IsPositive(), betID),
		}
		if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
			return nil, classifyStoreError(err)
		}
	}

	bet.Status = newStatus
	bet.PotentialPayout = newPotential
	bet.UpdatedAt = time.Now()

	uow.EventBus().Publish(events.BetSettledEvent{
		UserID:     userID,
		BetID:      betID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		Delta:      delta,
		NewBalance: newAmount,
	})

	if err := uow.Commit(); err != nil {
		return nil, classifyStoreError(err)
	}
	s.cache.Invalidate(ctx, userID)

	log.WithFields(log.Fields{
		"userID":    userID,
		"betID":     betID,
		"oldStatus": oldStatus,
		"newStatus": newStatus,
		"delta":     delta,
	}).Info("Bet settled")

	return &SettleBetResult{NewBalance: newAmount, Bet: bet}, nil
}

// GetBetHistory returns the user's bets with nested events, newest first
func (s *bettingService) GetBetHistory(ctx context.Context, userID int64) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, classifyStoreError(err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().GetAllByUser(ctx, userID)
	if err != nil {
		return nil, classifyStoreError(err)
	}

	if err := uow.Commit(); err != nil {
		return nil, classifyStoreError(err)
	}
	return bets, nil
}

// settlementChangeType derives the audit change type from the target status
// and the delta sign: credits are attributed to the status, every debit is a
// correction.
func settlementChangeType(status models.BetStatus, positive bool) models.ChangeType {
	if positive {
		switch status {
		case models.BetStatusWin:
			return models.ChangeTypeBetWin
		case models.BetStatusRefund:
			return models.ChangeTypeBetRefund
		}
		return models.ChangeTypeBetAdjust
	}
	return models.ChangeTypeBetAdjust
}

func settlementDescription(status models.BetStatus, positive bool, betID int64) string {
	if positive {
		switch status {
		case models.BetStatusWin:
			return fmt.Sprintf("Payout for bet #%d", betID)
		case models.BetStatusRefund:
			return fmt.Sprintf("Stake refund for bet #%d", betID)
		}
		return fmt.Sprintf("Credit for bet #%d", betID)
	}
	return fmt.Sprintf("Correction for bet #%d", betID)
}
