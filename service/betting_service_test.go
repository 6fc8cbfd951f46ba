package service

import (
	"context"
	"errors"
	"testing"

	"betledger/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// decEq matches a decimal argument by value rather than representation, since
// 80 and 80.00 compare unequal under reflection.
func decEq(expected string) interface{} {
	want := dec(expected)
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(want)
	})
}

func placementMocks() (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockBalanceRepository, *MockBalanceHistoryRepository, *MockBetRepository) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockBalanceRepo := new(MockBalanceRepository)
	mockHistoryRepo := new(MockBalanceHistoryRepository)
	mockBetRepo := new(MockBetRepository)

	mockUoW.SetRepositories(mockBalanceRepo, mockHistoryRepo, mockBetRepo, nil)
	return mockUoW, mockFactory, mockBalanceRepo, mockHistoryRepo, mockBetRepo
}

func TestBettingService_PlaceBet_Success(t *testing.T) {
	ctx := context.Background()

	// Setup mocks
	mockUoW, mockFactory, mockBalanceRepo, mockHistoryRepo, mockBetRepo := placementMocks()
	service := NewBettingService(mockFactory, noopCache{})

	balance := &models.Balance{
		UserID:      1,
		BalanceType: models.BalanceTypeBets,
		Amount:      dec("100"),
	}

	// Mock expectations
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockBalanceRepo.On("GetForUpdate", ctx, int64(1), models.BalanceTypeBets).Return(balance, nil)

	// Insert assigns the bet id
	mockBetRepo.On("Create", ctx, mock.AnythingOfType("*models.Bet")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Bet).ID = 42
	}).Return(nil)

	mockBalanceRepo.On("UpdateAmount", ctx, int64(1), models.BalanceTypeBets, decEq("80")).Return(nil)

	mockHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.UserID == 1 &&
			h.AmountBefore.Equal(dec("100")) &&
			h.AmountAfter.Equal(dec("80")) &&
			h.ChangeType == models.ChangeTypeBetPlaced &&
			h.RelatedBetID != nil && *h.RelatedBetID == 42
	})).Return(nil)

	req := singleRequest(winnerEvent())
	req.Stake = dec("20")

	result, err := service.PlaceBet(ctx, 1, req)

	require.NoError(t, err)
	assert.Equal(t, int64(42), result.BetID)
	assert.True(t, result.NewBalance.Equal(dec("80")))

	mockFactory.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
	mockBalanceRepo.AssertExpectations(t)
	mockHistoryRepo.AssertExpectations(t)
	mockBetRepo.AssertExpectations(t)
}

func TestBettingService_PlaceBet_InsufficientFunds(t *testing.T) {
	ctx := context.Background()

	// Setup mocks
	mockUoW, mockFactory, mockBalanceRepo, mockHistoryRepo, mockBetRepo := placementMocks()
	service := NewBettingService(mockFactory, noopCache{})

	balance := &models.Balance{
		UserID:      1,
		BalanceType: models.BalanceTypeBets,
		Amount:      dec("5"),
	}

	// Mock expectations
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	// No Commit expected: the placement is rejected before any write

	mockBalanceRepo.On("GetForUpdate", ctx, int64(1), models.BalanceTypeBets).Return(balance, nil)

	req := singleRequest(winnerEvent())
	req.Stake = dec("20")

	result, err := service.PlaceBet(ctx, 1, req)

	require.Error(t, err)
	assert.Nil(t, result)

	var fundsErr *InsufficientFundsError
	require.True(t, errors.As(err, &fundsErr))
	assert.True(t, fundsErr.Available.Equal(dec("5")))
	assert.True(t, fundsErr.Required.Equal(dec("20")))

	mockBetRepo.AssertNotCalled(t, "Create")
	mockBalanceRepo.AssertNotCalled(t, "UpdateAmount")
	mockHistoryRepo.AssertNotCalled(t, "Record")
	mockUoW.AssertExpectations(t)
}

func TestBettingService_PlaceBet_BalanceMissing(t *testing.T) {
	ctx := context.Background()

	// Setup mocks
	mockUoW, mockFactory, mockBalanceRepo, _, mockBetRepo := placementMocks()
	service := NewBettingService(mockFactory, noopCache{})

	// Mock expectations
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockBalanceRepo.On("GetForUpdate", ctx, int64(1), models.BalanceTypeBets).Return(nil, nil)

	result, err := service.PlaceBet(ctx, 1, singleRequest(winnerEvent()))

	assert.ErrorIs(t, err, ErrBalanceNotFound)
	assert.Nil(t, result)
	mockBetRepo.AssertNotCalled(t, "Create")
}

func TestBettingService_PlaceBet_ValidationFailsBeforeTransaction(t *testing.T) {
	ctx := context.Background()

	mockFactory := new(MockUnitOfWorkFactory)
	service := NewBettingService(mockFactory, noopCache{})

	req := singleRequest(winnerEvent())
	req.Stake = dec("-1")

	result, err := service.PlaceBet(ctx, 1, req)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Nil(t, result)
	mockFactory.AssertNotCalled(t, "Create")
}

// A sub-cent stake would debit the balance by a different amount than the bet
// records, letting a refund return more than was taken. It must never reach
// the ledger.
func TestBettingService_PlaceBet_SubCentStakeRejected(t *testing.T) {
	ctx := context.Background()

	mockFactory := new(MockUnitOfWorkFactory)
	service := NewBettingService(mockFactory, noopCache{})

	req := singleRequest(winnerEvent())
	req.Stake = dec("10.005")

	result, err := service.PlaceBet(ctx, 1, req)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Error(), "two decimal places")
	assert.Nil(t, result)
	mockFactory.AssertNotCalled(t, "Create")
}

// A bet of stake 20 at odds 2.5 pays 50. Settling active -> win credits the
// payout; correcting win -> loss claws exactly the payout back.
func TestBettingService_SetBetStatus_WinThenLossCorrection(t *testing.T) {
	ctx := context.Background()

	// active -> win
	{
		mockUoW, mockFactory, mockBalanceRepo, mockHistoryRepo, mockBetRepo := placementMocks()
		service := NewBettingService(mockFactory, noopCache{})

		bet := &models.Bet{
			ID:          42,
			UserID:      1,
			BetType:     models.BetTypeSingle,
			StakeAmount: dec("20"),
			TotalOdds:   dec("2.5"),
			Status:      models.BetStatusActive,
		}
		balance := &models.Balance{UserID: 1, BalanceType: models.BalanceTypeBets, Amount: dec("80")}

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Commit").Return(nil)
		mockUoW.On("Rollback").Return(nil)

		mockBetRepo.On("GetByIDForUpdate", ctx, int64(42), int64(1)).Return(bet, nil)
		mockBalanceRepo.On("GetForUpdate", ctx, int64(1), models.BalanceTypeBets).Return(balance, nil)
		mockBetRepo.On("UpdateStatus", ctx, int64(42), models.BetStatusWin, decEq("50")).Return(nil)
		mockBalanceRepo.On("UpdateAmount", ctx, int64(1), models.BalanceTypeBets, decEq("130")).Return(nil)

		mockHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.ChangeType == models.ChangeTypeBetWin &&
				h.AmountBefore.Equal(dec("80")) &&
				h.AmountAfter.Equal(dec("130"))
		})).Return(nil)

		result, err := service.SetBetStatus(ctx, 1, 42, models.BetStatusWin)

		require.NoError(t, err)
		assert.True(t, result.NewBalance.Equal(dec("130")))
		assert.Equal(t, models.BetStatusWin, result.Bet.Status)
		mockUoW.AssertExpectations(t)
		mockHistoryRepo.AssertExpectations(t)
	}

	// win -> loss correction
	{
		mockUoW, mockFactory, mockBalanceRepo, mockHistoryRepo, mockBetRepo := placementMocks()
		service := NewBettingService(mockFactory, noopCache{})

		bet := &models.Bet{
			ID:          42,
			UserID:      1,
			BetType:     models.BetTypeSingle,
			StakeAmount: dec("20"),
			TotalOdds:   dec("2.5"),
			Status:      models.BetStatusWin,
		}
		balance := &models.Balance{UserID: 1, BalanceType: models.BalanceTypeBets, Amount: dec("130")}

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Commit").Return(nil)
		mockUoW.On("Rollback").Return(nil)

		mockBetRepo.On("GetByIDForUpdate", ctx, int64(42), int64(1)).Return(bet, nil)
		mockBalanceRepo.On("GetForUpdate", ctx, int64(1), models.BalanceTypeBets).Return(balance, nil)
		mockBetRepo.On("UpdateStatus", ctx, int64(42), models.BetStatusLoss, decEq("0")).Return(nil)
		mockBalanceRepo.On("UpdateAmount", ctx, int64(1), models.BalanceTypeBets, decEq("80")).Return(nil)

		// A debit correction is always bet_adjust regardless of target status
		mockHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.ChangeType == models.ChangeTypeBetAdjust &&
				h.AmountBefore.Equal(dec("130")) &&
				h.AmountAfter.Equal(dec("80"))
		})).Return(nil)

		result, err := service.SetBetStatus(ctx, 1, 42, models.BetStatusLoss)

		require.NoError(t, err)
		assert.True(t, result.NewBalance.Equal(dec("80")))
		mockHistoryRepo.AssertExpectations(t)
	}
}

func TestBettingService_SetBetStatus_LossFromActiveMovesNoMoney(t *testing.T) {
	ctx := context.Background()

	// Setup mocks
	mockUoW, mockFactory, mockBalanceRepo, mockHistoryRepo, mockBetRepo := placementMocks()
	service := NewBettingService(mockFactory, noopCache{})

	bet := &models.Bet{
		ID:          42,
		UserID:      1,
		StakeAmount: dec("20"),
		TotalOdds:   dec("2.5"),
		Status:      models.BetStatusActive,
	}
	balance := &models.Balance{UserID: 1, BalanceType: models.BalanceTypeBets, Amount: dec("80")}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockBetRepo.On("GetByIDForUpdate", ctx, int64(42), int64(1)).Return(bet, nil)
	mockBalanceRepo.On("GetForUpdate", ctx, int64(1), models.BalanceTypeBets).Return(balance, nil)
	// Status and displayed payout still change even though the delta is zero
	mockBetRepo.On("UpdateStatus", ctx, int64(42), models.BetStatusLoss, decEq("0")).Return(nil)

	result, err := service.SetBetStatus(ctx, 1, 42, models.BetStatusLoss)

	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(dec("80")))
	mockBalanceRepo.AssertNotCalled(t, "UpdateAmount")
	mockHistoryRepo.AssertNotCalled(t, "Record")
	mockUoW.AssertExpectations(t)
}

func TestBettingService_SetBetStatus_SameStatusIsNoOp(t *testing.T) {
	ctx := context.Background()

	// Setup mocks
	mockUoW, mockFactory, mockBalanceRepo, mockHistoryRepo, mockBetRepo := placementMocks()
	service := NewBettingService(mockFactory, noopCache{})

	bet := &models.Bet{
		ID:          42,
		UserID:      1,
		StakeAmount: dec("20"),
		TotalOdds:   dec("2.5"),
		Status:      models.BetStatusWin,
	}
	balance := &models.Balance{UserID: 1, BalanceType: models.BalanceTypeBets, Amount: dec("130")}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockBetRepo.On("GetByIDForUpdate", ctx, int64(42), int64(1)).Return(bet, nil)
	// Read without lock: nothing will be written
	mockBalanceRepo.On("Get", ctx, int64(1), models.BalanceTypeBets).Return(balance, nil)

	result, err := service.SetBetStatus(ctx, 1, 42, models.BetStatusWin)

	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(dec("130")))

	mockBetRepo.AssertNotCalled(t, "UpdateStatus")
	mockBalanceRepo.AssertNotCalled(t, "UpdateAmount")
	mockHistoryRepo.AssertNotCalled(t, "Record")
}

func TestBettingService_SetBetStatus_BetNotFound(t *testing.T) {
	ctx := context.Background()

	// Setup mocks
	mockUoW, mockFactory, _, _, mockBetRepo := placementMocks()
	service := NewBettingService(mockFactory, noopCache{})

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockBetRepo.On("GetByIDForUpdate", ctx, int64(99), int64(1)).Return(nil, nil)

	result, err := service.SetBetStatus(ctx, 1, 99, models.BetStatusWin)

	assert.ErrorIs(t, err, ErrBetNotFound)
	assert.Nil(t, result)
}

func TestBettingService_SetBetStatus_UnknownStatusRejected(t *testing.T) {
	ctx := context.Background()

	mockFactory := new(MockUnitOfWorkFactory)
	service := NewBettingService(mockFactory, noopCache{})

	result, err := service.SetBetStatus(ctx, 1, 42, "void")

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Nil(t, result)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestBettingService_SetBetStatus_RefundCreditsStake(t *testing.T) {
	ctx := context.Background()

	// Setup mocks
	mockUoW, mockFactory, mockBalanceRepo, mockHistoryRepo, mockBetRepo := placementMocks()
	service := NewBettingService(mockFactory, noopCache{})

	bet := &models.Bet{
		ID:          7,
		UserID:      1,
		StakeAmount: dec("20"),
		TotalOdds:   dec("2.5"),
		Status:      models.BetStatusActive,
	}
	balance := &models.Balance{UserID: 1, BalanceType: models.BalanceTypeBets, Amount: dec("80")}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockBetRepo.On("GetByIDForUpdate", ctx, int64(7), int64(1)).Return(bet, nil)
	mockBalanceRepo.On("GetForUpdate", ctx, int64(1), models.BalanceTypeBets).Return(balance, nil)
	// Refund displays the stake as payout
	mockBetRepo.On("UpdateStatus", ctx, int64(7), models.BetStatusRefund, decEq("20")).Return(nil)
	mockBalanceRepo.On("UpdateAmount", ctx, int64(1), models.BalanceTypeBets, decEq("100")).Return(nil)

	mockHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.ChangeType == models.ChangeTypeBetRefund
	})).Return(nil)

	result, err := service.SetBetStatus(ctx, 1, 7, models.BetStatusRefund)

	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(dec("100")))
	mockHistoryRepo.AssertExpectations(t)
}

func TestBettingService_PlaceBet_CacheInvalidatedAfterCommit(t *testing.T) {
	ctx := context.Background()

	// Setup mocks
	mockUoW, mockFactory, mockBalanceRepo, mockHistoryRepo, mockBetRepo := placementMocks()
	mockCache := new(MockBalanceCache)
	service := NewBettingService(mockFactory, mockCache)

	balance := &models.Balance{UserID: 1, BalanceType: models.BalanceTypeBets, Amount: dec("100")}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockBalanceRepo.On("GetForUpdate", ctx, int64(1), models.BalanceTypeBets).Return(balance, nil)
	mockBetRepo.On("Create", ctx, mock.Anything).Return(nil)
	mockBalanceRepo.On("UpdateAmount", ctx, int64(1), models.BalanceTypeBets, mock.Anything).Return(nil)
	mockHistoryRepo.On("Record", ctx, mock.Anything).Return(nil)
	mockCache.On("Invalidate", ctx, int64(1)).Return()

	_, err := service.PlaceBet(ctx, 1, singleRequest(winnerEvent()))

	require.NoError(t, err)
	mockCache.AssertExpectations(t)
}
