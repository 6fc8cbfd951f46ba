package repository

import (
	"context"
	"testing"
	"time"

	"betledger/events"
	"betledger/models"
	"betledger/repository/testutil"
	"betledger/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitPersistsAllWrites(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	userID := testutil.CreateTestUser(t, testDB.DB, "uow_commit")
	testutil.CreateTestBalance(t, testDB.DB, userID, "100.00")

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	bet := testutil.CreateTestBet(userID, "20.00", "2.5")
	require.NoError(t, uow.BetRepository().Create(ctx, bet))
	require.NoError(t, uow.BalanceRepository().UpdateAmount(ctx, userID, models.BalanceTypeBets, decimal.RequireFromString("80.00")))
	require.NoError(t, uow.BalanceHistoryRepository().Record(ctx, &models.BalanceHistory{
		UserID:       userID,
		BalanceType:  models.BalanceTypeBets,
		AmountBefore: decimal.RequireFromString("100.00"),
		AmountAfter:  decimal.RequireFromString("80.00"),
		ChangeType:   models.ChangeTypeBetPlaced,
		RelatedBetID: &bet.ID,
	}))
	require.NoError(t, uow.Commit())

	// Everything is visible outside the transaction
	balance, err := NewBalanceRepository(testDB.DB).Get(ctx, userID, models.BalanceTypeBets)
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(decimal.RequireFromString("80.00")))

	bets, err := NewBetRepository(testDB.DB).GetAllByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, bets, 1)

	history, err := NewBalanceHistoryRepository(testDB.DB).GetByUserAndType(ctx, userID, models.BalanceTypeBets, false)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUnitOfWork_RollbackDiscardsAllWrites(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	userID := testutil.CreateTestUser(t, testDB.DB, "uow_rollback")
	testutil.CreateTestBalance(t, testDB.DB, userID, "100.00")

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	bet := testutil.CreateTestBet(userID, "20.00", "2.5")
	require.NoError(t, uow.BetRepository().Create(ctx, bet))
	require.NoError(t, uow.BalanceRepository().UpdateAmount(ctx, userID, models.BalanceTypeBets, decimal.RequireFromString("80.00")))
	require.NoError(t, uow.Rollback())

	// Neither write survived
	balance, err := NewBalanceRepository(testDB.DB).Get(ctx, userID, models.BalanceTypeBets)
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(decimal.RequireFromString("100.00")))

	bets, err := NewBetRepository(testDB.DB).GetAllByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, bets)
}

// Two placement-shaped transactions contending on one balance row must
// serialize on the FOR UPDATE lock: the second blocks until the first commits,
// reads the committed debit, and the history chain stays contiguous.
func TestUnitOfWork_ConcurrentPlacementsSerialize(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	userID := testutil.CreateTestUser(t, testDB.DB, "uow_race")
	testutil.CreateTestBalance(t, testDB.DB, userID, "100.00")

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	stake := decimal.RequireFromString("30.00")

	debit := func(uow service.UnitOfWork, balance *models.Balance) error {
		bet := testutil.CreateTestBet(userID, "30.00", "2.0")
		if err := uow.BetRepository().Create(ctx, bet); err != nil {
			return err
		}
		newAmount := balance.Amount.Sub(stake)
		if err := uow.BalanceRepository().UpdateAmount(ctx, userID, models.BalanceTypeBets, newAmount); err != nil {
			return err
		}
		return uow.BalanceHistoryRepository().Record(ctx, &models.BalanceHistory{
			UserID:       userID,
			BalanceType:  models.BalanceTypeBets,
			AmountBefore: balance.Amount,
			AmountAfter:  newAmount,
			ChangeType:   models.ChangeTypeBetPlaced,
			RelatedBetID: &bet.ID,
		})
	}

	// First transaction takes the row lock and holds it
	first := factory.Create()
	require.NoError(t, first.Begin(ctx))
	firstBalance, err := first.BalanceRepository().GetForUpdate(ctx, userID, models.BalanceTypeBets)
	require.NoError(t, err)

	// Second placement runs concurrently; its GetForUpdate parks on the lock
	secondSaw := make(chan decimal.Decimal, 1)
	secondDone := make(chan error, 1)
	go func() {
		second := factory.Create()
		if err := second.Begin(ctx); err != nil {
			secondDone <- err
			return
		}
		defer second.Rollback()

		balance, err := second.BalanceRepository().GetForUpdate(ctx, userID, models.BalanceTypeBets)
		if err != nil {
			secondDone <- err
			return
		}
		secondSaw <- balance.Amount
		if err := debit(second, balance); err != nil {
			secondDone <- err
			return
		}
		secondDone <- second.Commit()
	}()

	select {
	case <-secondSaw:
		t.Fatal("second transaction read the balance before the first committed")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, debit(first, firstBalance))
	require.NoError(t, first.Commit())

	select {
	case saw := <-secondSaw:
		assert.True(t, saw.Equal(decimal.RequireFromString("70.00")),
			"second placement saw %s, want the first's committed debit", saw)
	case <-time.After(5 * time.Second):
		t.Fatal("second transaction never acquired the lock")
	}
	require.NoError(t, <-secondDone)

	balance, err := NewBalanceRepository(testDB.DB).Get(ctx, userID, models.BalanceTypeBets)
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(decimal.RequireFromString("40.00")))

	history, err := NewBalanceHistoryRepository(testDB.DB).GetByUserAndType(ctx, userID, models.BalanceTypeBets, false)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].AmountBefore.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, history[0].AmountAfter.Equal(history[1].AmountBefore),
		"audit chain broken: %s then %s", history[0].AmountAfter, history[1].AmountBefore)
	assert.True(t, history[1].AmountAfter.Equal(decimal.RequireFromString("40.00")))
}

func TestUnitOfWork_EventsFlushOnlyAfterCommit(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	received := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeBetPlaced, func(ctx context.Context, e events.Event) {
		received <- e
	})

	factory := NewUnitOfWorkFactory(testDB.DB, bus)

	t.Run("rollback discards staged events", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		uow.EventBus().Publish(events.BetPlacedEvent{UserID: 1, BetID: 1})
		require.NoError(t, uow.Rollback())

		select {
		case <-received:
			t.Fatal("event delivered despite rollback")
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("commit flushes staged events", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		uow.EventBus().Publish(events.BetPlacedEvent{UserID: 1, BetID: 2})
		require.NoError(t, uow.Commit())

		select {
		case e := <-received:
			placed, ok := e.(events.BetPlacedEvent)
			require.True(t, ok)
			assert.Equal(t, int64(2), placed.BetID)
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered after commit")
		}
	})
}

func TestUnitOfWork_DoubleBeginRejected(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	assert.Error(t, uow.Begin(ctx))
}

func TestUnitOfWork_RepositoriesPanicBeforeBegin(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	uow := factory.Create()

	assert.Panics(t, func() { uow.BalanceRepository() })
	assert.Panics(t, func() { uow.BetRepository() })
}
