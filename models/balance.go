package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceType identifies one of a user's balance buckets
type BalanceType string

const (
	BalanceTypeBets   BalanceType = "bets"
	BalanceTypeCrypto BalanceType = "crypto"
)

// Valid reports whether the balance type is one of the known buckets
func (t BalanceType) Valid() bool {
	switch t {
	case BalanceTypeBets, BalanceTypeCrypto:
		return true
	}
	return false
}

// Balance represents one (user, balance type) row in the ledger.
// Amount is kept at two-decimal precision and is never negative;
// it is mutated only inside a unit of work that also records a
// matching BalanceHistory entry.
type Balance struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	BalanceType BalanceType     `db:"balance_type"`
	Amount      decimal.Decimal `db:"amount"`
	UpdatedAt   time.Time       `db:"updated_at"`
}
