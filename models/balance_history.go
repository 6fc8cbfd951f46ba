package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ChangeType represents the type of balance change
type ChangeType string

const (
	ChangeTypeBetPlaced        ChangeType = "bet_placed"
	ChangeTypeBetWin           ChangeType = "bet_win"
	ChangeTypeBetRefund        ChangeType = "bet_refund"
	ChangeTypeBetAdjust        ChangeType = "bet_adjust"
	ChangeTypeManualAdjustment ChangeType = "manual_adjustment"
)

// IsManual reports whether the change came from a manual adjustment rather
// than the betting flow. Manual changes are excluded from win/loss statistics.
func (t ChangeType) IsManual() bool {
	return t == ChangeTypeManualAdjustment
}

// BalanceHistory represents a historical balance change. Rows are append-only:
// every balance mutation writes exactly one entry in the same transaction.
type BalanceHistory struct {
	ID           int64           `db:"id"`
	UserID       int64           `db:"user_id"`
	BalanceType  BalanceType     `db:"balance_type"`
	AmountBefore decimal.Decimal `db:"amount_before"`
	AmountAfter  decimal.Decimal `db:"amount_after"`
	ChangeType   ChangeType      `db:"change_type"`
	RelatedBetID *int64          `db:"related_id"`
	Description  string          `db:"description"`
	CreatedAt    time.Time       `db:"created_at"`
}

// ChangeAmount returns the signed delta this entry applied to the balance
func (bh *BalanceHistory) ChangeAmount() decimal.Decimal {
	return bh.AmountAfter.Sub(bh.AmountBefore)
}

// Validate performs basic consistency checks on the entry
func (bh *BalanceHistory) Validate() error {
	if bh.AmountBefore.IsNegative() || bh.AmountAfter.IsNegative() {
		return errors.New("balance amounts cannot be negative")
	}
	if !bh.BalanceType.Valid() {
		return errors.New("unknown balance type")
	}
	return nil
}
