package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetStatus is the lifecycle state of a bet. Every bet starts as active;
// the other three are settlement outcomes. No transition is structurally
// forbidden: a settled bet may be re-settled as a correction, with the
// balance delta computed between the two states.
type BetStatus string

const (
	BetStatusActive BetStatus = "active"
	BetStatusWin    BetStatus = "win"
	BetStatusLoss   BetStatus = "loss"
	BetStatusRefund BetStatus = "refund"
)

// Valid reports whether the status is one of the four known states
func (s BetStatus) Valid() bool {
	switch s {
	case BetStatusActive, BetStatusWin, BetStatusLoss, BetStatusRefund:
		return true
	}
	return false
}

// BetType distinguishes a single bet from an express (multi-leg) bet
type BetType string

const (
	BetTypeSingle  BetType = "single"
	BetTypeExpress BetType = "express"
)

// Discipline is the esports title a bet event belongs to
type Discipline string

const (
	DisciplineCounterStrike Discipline = "counter_strike"
	DisciplineDota2         Discipline = "dota2"
	DisciplineLoL           Discipline = "lol"
	DisciplineValorant      Discipline = "valorant"
)

// Disciplines lists every accepted discipline
var Disciplines = []Discipline{
	DisciplineCounterStrike,
	DisciplineDota2,
	DisciplineLoL,
	DisciplineValorant,
}

// Valid reports whether the discipline is known
func (d Discipline) Valid() bool {
	for _, known := range Disciplines {
		if d == known {
			return true
		}
	}
	return false
}

// Scope says whether an event covers the whole match or a single map
type Scope string

const (
	ScopeOverall Scope = "overall"
	ScopeMap     Scope = "map"
)

// Market is the kind of outcome being wagered on
type Market string

const (
	MarketWinner     Market = "winner"
	MarketTotal      Market = "total"
	MarketExactScore Market = "exact_score"
)

// TotalSide is the direction of a total-market bet
type TotalSide string

const (
	TotalSideOver  TotalSide = "over"
	TotalSideUnder TotalSide = "under"
)

// Bet represents a placed bet with 1..N event legs
type Bet struct {
	ID              int64           `db:"id"`
	UserID          int64           `db:"user_id"`
	BetType         BetType         `db:"bet_type"`
	Category        string          `db:"category"`
	StakeAmount     decimal.Decimal `db:"stake_amount"`
	TotalOdds       decimal.Decimal `db:"total_odds"`
	PotentialPayout decimal.Decimal `db:"potential_payout"`
	Status          BetStatus       `db:"status"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
	Events          []*BetEvent     `db:"-"`
}

// BetEvent is one wagered event within a bet. MapNumber is set only for
// map-scoped events; TotalSide and TotalLine only for total-market events.
// Rows are immutable after insert.
type BetEvent struct {
	ID         int64            `db:"id"`
	BetID      int64            `db:"bet_id"`
	Discipline Discipline       `db:"discipline"`
	TeamA      string           `db:"team_a"`
	TeamB      string           `db:"team_b"`
	Scope      Scope            `db:"scope"`
	MapNumber  *int             `db:"map_number"`
	Market     Market           `db:"market"`
	Selection  string           `db:"selection"`
	TotalSide  *TotalSide       `db:"total_side"`
	TotalLine  *decimal.Decimal `db:"total_line"`
	Odds       decimal.Decimal  `db:"odds"`
}

// RoundMoney rounds a monetary value to two decimal places
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// BasePayout returns stake x total odds rounded to money precision
func (b *Bet) BasePayout() decimal.Decimal {
	return RoundMoney(b.StakeAmount.Mul(b.TotalOdds))
}

// CreditForStatus returns the amount a given status credits back to the
// balance: the full payout on a win, the stake on a refund, nothing otherwise.
func (b *Bet) CreditForStatus(status BetStatus) decimal.Decimal {
	switch status {
	case BetStatusWin:
		return b.BasePayout()
	case BetStatusRefund:
		return RoundMoney(b.StakeAmount)
	default:
		return decimal.Zero
	}
}

// PayoutForStatus returns the potential_payout value displayed for a status
func (b *Bet) PayoutForStatus(status BetStatus) decimal.Decimal {
	switch status {
	case BetStatusLoss:
		return decimal.Zero
	case BetStatusRefund:
		return RoundMoney(b.StakeAmount)
	default:
		return b.BasePayout()
	}
}

// SettlementDelta returns the signed balance change of moving this bet from
// its current status to newStatus. A win followed by a loss correction yields
// a negative delta that claws the payout back.
func (b *Bet) SettlementDelta(newStatus BetStatus) decimal.Decimal {
	return RoundMoney(b.CreditForStatus(newStatus).Sub(b.CreditForStatus(b.Status)))
}
