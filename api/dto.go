package api

import (
	"time"

	"github.com/shopspring/decimal"

	"betledger/models"
	"betledger/service"
)

// betEventInput is one leg of a place-bet request
type betEventInput struct {
	Discipline string           `json:"discipline"`
	TeamA      string           `json:"team_a"`
	TeamB      string           `json:"team_b"`
	Scope      string           `json:"scope"`
	MapNumber  *int             `json:"map_number,omitempty"`
	Market     string           `json:"market"`
	Selection  string           `json:"selection"`
	TotalSide  *string          `json:"total_side,omitempty"`
	TotalLine  *decimal.Decimal `json:"total_line,omitempty"`
	Odds       decimal.Decimal  `json:"odds"`
}

// placeBetInput is the body of POST /bets. TotalOdds carries the client's own
// odds computation and is optional.
type placeBetInput struct {
	BetType   string           `json:"bet_type"`
	Category  string           `json:"category"`
	Stake     decimal.Decimal  `json:"stake_amount"`
	TotalOdds *decimal.Decimal `json:"total_odds,omitempty"`
	Events    []betEventInput  `json:"events"`
}

func (in *placeBetInput) toRequest() *service.PlaceBetRequest {
	events := make([]*models.BetEvent, 0, len(in.Events))
	for _, ev := range in.Events {
		leg := &models.BetEvent{
			Discipline: models.Discipline(ev.Discipline),
			TeamA:      ev.TeamA,
			TeamB:      ev.TeamB,
			Scope:      models.Scope(ev.Scope),
			MapNumber:  ev.MapNumber,
			Market:     models.Market(ev.Market),
			Selection:  ev.Selection,
			TotalLine:  ev.TotalLine,
			Odds:       ev.Odds,
		}
		if ev.TotalSide != nil {
			side := models.TotalSide(*ev.TotalSide)
			leg.TotalSide = &side
		}
		events = append(events, leg)
	}
	return &service.PlaceBetRequest{
		BetType:           models.BetType(in.BetType),
		Category:          in.Category,
		Stake:             in.Stake,
		Events:            events,
		DeclaredTotalOdds: in.TotalOdds,
	}
}

// setStatusInput is the body of PATCH /bets/{id}/status
type setStatusInput struct {
	Status string `json:"status"`
}

// adjustBalanceInput is the body of PATCH /balance
type adjustBalanceInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Operation string          `json:"operation"`
}

type placeBetResponse struct {
	BetID   int64           `json:"bet_id"`
	Balance decimal.Decimal `json:"balance"`
}

type settleBetResponse struct {
	Balance decimal.Decimal `json:"balance"`
	Bet     betView         `json:"bet"`
}

type adjustBalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type balanceView struct {
	BalanceType models.BalanceType `json:"balance_type"`
	Amount      decimal.Decimal    `json:"amount"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type historyView struct {
	ID           int64              `json:"id"`
	BalanceType  models.BalanceType `json:"balance_type"`
	AmountBefore decimal.Decimal    `json:"amount_before"`
	AmountAfter  decimal.Decimal    `json:"amount_after"`
	ChangeType   models.ChangeType  `json:"change_type"`
	RelatedBetID *int64             `json:"related_id,omitempty"`
	Description  string             `json:"description"`
	CreatedAt    time.Time          `json:"created_at"`
}

type betEventView struct {
	ID         int64             `json:"id"`
	Discipline models.Discipline `json:"discipline"`
	TeamA      string            `json:"team_a"`
	TeamB      string            `json:"team_b"`
	Scope      models.Scope      `json:"scope"`
	MapNumber  *int              `json:"map_number,omitempty"`
	Market     models.Market     `json:"market"`
	Selection  string            `json:"selection"`
	TotalSide  *models.TotalSide `json:"total_side,omitempty"`
	TotalLine  *decimal.Decimal  `json:"total_line,omitempty"`
	Odds       decimal.Decimal   `json:"odds"`
}

type betView struct {
	ID              int64            `json:"id"`
	BetType         models.BetType   `json:"bet_type"`
	Category        string           `json:"category"`
	StakeAmount     decimal.Decimal  `json:"stake_amount"`
	TotalOdds       decimal.Decimal  `json:"total_odds"`
	PotentialPayout decimal.Decimal  `json:"potential_payout"`
	Status          models.BetStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Events          []betEventView   `json:"events"`
}

func toBetView(bet *models.Bet) betView {
	events := make([]betEventView, 0, len(bet.Events))
	for _, ev := range bet.Events {
		events = append(events, betEventView{
			ID:         ev.ID,
			Discipline: ev.Discipline,
			TeamA:      ev.TeamA,
			TeamB:      ev.TeamB,
			Scope:      ev.Scope,
			MapNumber:  ev.MapNumber,
			Market:     ev.Market,
			Selection:  ev.Selection,
			TotalSide:  ev.TotalSide,
			TotalLine:  ev.TotalLine,
			Odds:       ev.Odds,
		})
	}
	return betView{
		ID:              bet.ID,
		BetType:         bet.BetType,
		Category:        bet.Category,
		StakeAmount:     bet.StakeAmount,
		TotalOdds:       bet.TotalOdds,
		PotentialPayout: bet.PotentialPayout,
		Status:          bet.Status,
		CreatedAt:       bet.CreatedAt,
		UpdatedAt:       bet.UpdatedAt,
		Events:          events,
	}
}
