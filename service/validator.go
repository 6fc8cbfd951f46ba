package service

import (
	"github.com/shopspring/decimal"

	"betledger/models"
)

// PlaceBetRequest is the validated input of a bet placement
type PlaceBetRequest struct {
	BetType  models.BetType
	Category string
	Stake    decimal.Decimal
	Events   []*models.BetEvent

	// DeclaredTotalOdds is the client's own odds computation, checked against
	// the server-side value to catch stale or tampered clients. Nil skips the
	// check.
	DeclaredTotalOdds *decimal.Decimal
}

// oddsTolerance bounds the accepted drift between declared and computed odds
var oddsTolerance = decimal.RequireFromString("0.001")

// totalLineOverall is the only accepted line for match-scoped totals
var totalLineOverall = decimal.RequireFromString("2.5")

// totalLinesMap are the accepted lines for map-scoped totals
var totalLinesMap = func() []decimal.Decimal {
	lines := make([]decimal.Decimal, 0, 6)
	for l := 18.5; l <= 23.5; l++ {
		lines = append(lines, decimal.NewFromFloat(l))
	}
	return lines
}()

// exactScoreSelections are the accepted series scores for the exact_score market
var exactScoreSelections = map[string]bool{
	"2-0": true,
	"2-1": true,
	"0-2": true,
	"1-2": true,
}

const (
	minMapNumber = 1
	maxMapNumber = 5
)

// ComputeTotalOdds derives a bet's total odds from its legs: the sole leg's
// odds for a single, the sum of all legs' odds for an express. The additive
// express rule is intentional and matches the upstream product behavior.
func ComputeTotalOdds(betType models.BetType, events []*models.BetEvent) decimal.Decimal {
	if betType == models.BetTypeSingle && len(events) == 1 {
		return events[0].Odds
	}
	total := decimal.Zero
	for _, ev := range events {
		total = total.Add(ev.Odds)
	}
	return total
}

// ValidateBetRequest checks a proposed bet's shape before it touches the
// ledger. Pure function: no I/O, no side effects. Returns a ValidationError
// naming the offending leg on failure.
func ValidateBetRequest(req *PlaceBetRequest) error {
	if req.BetType != models.BetTypeSingle && req.BetType != models.BetTypeExpress {
		return validationErr(-1, "unknown bet type %q", req.BetType)
	}
	if len(req.Events) == 0 {
		return validationErr(-1, "bet must contain at least one event")
	}
	if req.BetType == models.BetTypeExpress && len(req.Events) < 2 {
		return validationErr(-1, "express bet requires at least two events")
	}
	if req.BetType == models.BetTypeSingle && len(req.Events) != 1 {
		return validationErr(-1, "single bet must contain exactly one event")
	}
	if !req.Stake.IsPositive() {
		return validationErr(-1, "stake must be positive")
	}
	// A stake finer than the money precision would debit a different amount
	// than the bet records, so a later refund would not return what was taken.
	if !models.RoundMoney(req.Stake).Equal(req.Stake) {
		return validationErr(-1, "stake must have at most two decimal places")
	}

	for i, ev := range req.Events {
		if err := validateEvent(i, ev); err != nil {
			return err
		}
	}

	if req.DeclaredTotalOdds != nil {
		computed := ComputeTotalOdds(req.BetType, req.Events)
		if computed.Sub(*req.DeclaredTotalOdds).Abs().GreaterThan(oddsTolerance) {
			return validationErr(-1, "declared total odds %s do not match computed %s",
				req.DeclaredTotalOdds.String(), computed.String())
		}
	}

	return nil
}

func validateEvent(i int, ev *models.BetEvent) error {
	if !ev.Discipline.Valid() {
		return validationErr(i, "unknown discipline %q", ev.Discipline)
	}
	if ev.TeamA == "" || ev.TeamB == "" {
		return validationErr(i, "both teams must be set")
	}
	if ev.TeamA == ev.TeamB {
		return validationErr(i, "teams must differ")
	}

	switch ev.Scope {
	case models.ScopeMap:
		if ev.MapNumber == nil {
			return validationErr(i, "map number is required for map scope")
		}
		if *ev.MapNumber < minMapNumber || *ev.MapNumber > maxMapNumber {
			return validationErr(i, "map number must be between %d and %d", minMapNumber, maxMapNumber)
		}
	case models.ScopeOverall:
		if ev.MapNumber != nil {
			return validationErr(i, "map number is only valid for map scope")
		}
	default:
		return validationErr(i, "unknown scope %q", ev.Scope)
	}

	if ev.Selection == "" {
		return validationErr(i, "selection must not be empty")
	}
	if !ev.Odds.IsPositive() {
		return validationErr(i, "odds must be positive")
	}

	switch ev.Market {
	case models.MarketWinner:
		if ev.Selection != ev.TeamA && ev.Selection != ev.TeamB {
			return validationErr(i, "winner selection must name one of the teams")
		}
	case models.MarketExactScore:
		if !exactScoreSelections[ev.Selection] {
			return validationErr(i, "exact score selection %q is not allowed", ev.Selection)
		}
	case models.MarketTotal:
		if ev.TotalSide == nil || (*ev.TotalSide != models.TotalSideOver && *ev.TotalSide != models.TotalSideUnder) {
			return validationErr(i, "total market requires an over/under side")
		}
		if ev.TotalLine == nil {
			return validationErr(i, "total market requires a line")
		}
		if !totalLineAllowed(ev.Scope, *ev.TotalLine) {
			return validationErr(i, "total line %s is not allowed for %s scope", ev.TotalLine.String(), ev.Scope)
		}
	default:
		return validationErr(i, "unknown market %q", ev.Market)
	}

	// Total fields are meaningless outside the total market
	if ev.Market != models.MarketTotal && (ev.TotalSide != nil || ev.TotalLine != nil) {
		return validationErr(i, "total side/line are only valid for the total market")
	}

	return nil
}

func totalLineAllowed(scope models.Scope, line decimal.Decimal) bool {
	if scope == models.ScopeOverall {
		return line.Equal(totalLineOverall)
	}
	for _, allowed := range totalLinesMap {
		if line.Equal(allowed) {
			return true
		}
	}
	return false
}
