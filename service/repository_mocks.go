package service

import (
	"context"

	"betledger/events"
	"betledger/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockBalanceRepository is a mock implementation of BalanceRepository
type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) GetByUser(ctx context.Context, userID int64) ([]*models.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Balance), args.Error(1)
}

func (m *MockBalanceRepository) Get(ctx context.Context, userID int64, balanceType models.BalanceType) (*models.Balance, error) {
	args := m.Called(ctx, userID, balanceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceRepository) GetForUpdate(ctx context.Context, userID int64, balanceType models.BalanceType) (*models.Balance, error) {
	args := m.Called(ctx, userID, balanceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceRepository) UpdateAmount(ctx context.Context, userID int64, balanceType models.BalanceType, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, balanceType, amount)
	return args.Error(0)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUserAndType(ctx context.Context, userID int64, balanceType models.BalanceType, excludeManual bool) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, balanceType, excludeManual)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByIDForUpdate(ctx context.Context, id, userID int64) (*models.Bet, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) UpdateStatus(ctx context.Context, id int64, status models.BetStatus, potentialPayout decimal.Decimal) error {
	args := m.Called(ctx, id, status, potentialPayout)
	return args.Error(0)
}

func (m *MockBetRepository) GetAllByUser(ctx context.Context, userID int64) ([]*models.Bet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

// MockEventPublisher is a mock implementation of events.Publisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// injected with SetRepositories so tests share one set of repo mocks across
// every unit of work the service creates.
type MockUnitOfWork struct {
	mock.Mock

	balanceRepo        BalanceRepository
	balanceHistoryRepo BalanceHistoryRepository
	betRepo            BetRepository
	eventBus           events.Publisher
}

// SetRepositories wires repository mocks into the unit of work. A nil
// eventBus gets a permissive publisher that accepts anything.
func (m *MockUnitOfWork) SetRepositories(balanceRepo BalanceRepository, balanceHistoryRepo BalanceHistoryRepository, betRepo BetRepository, eventBus events.Publisher) {
	if eventBus == nil {
		permissive := new(MockEventPublisher)
		permissive.On("Publish", mock.Anything).Maybe()
		eventBus = permissive
	}
	m.balanceRepo = balanceRepo
	m.balanceHistoryRepo = balanceHistoryRepo
	m.betRepo = betRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) BalanceRepository() BalanceRepository {
	return m.balanceRepo
}

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository {
	return m.balanceHistoryRepo
}

func (m *MockUnitOfWork) BetRepository() BetRepository {
	return m.betRepo
}

func (m *MockUnitOfWork) EventBus() events.Publisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockBalanceCache is a mock implementation of BalanceCache
type MockBalanceCache struct {
	mock.Mock
}

func (m *MockBalanceCache) Get(ctx context.Context, userID int64) ([]*models.Balance, bool) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]*models.Balance), args.Bool(1)
}

func (m *MockBalanceCache) Set(ctx context.Context, userID int64, balances []*models.Balance) {
	m.Called(ctx, userID, balances)
}

func (m *MockBalanceCache) Invalidate(ctx context.Context, userID int64) {
	m.Called(ctx, userID)
}

// noopCache satisfies BalanceCache for tests that don't care about caching
type noopCache struct{}

func (noopCache) Get(ctx context.Context, userID int64) ([]*models.Balance, bool) { return nil, false }
func (noopCache) Set(ctx context.Context, userID int64, balances []*models.Balance) {}
func (noopCache) Invalidate(ctx context.Context, userID int64)                      {}
