package events

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"betledger/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBetPlaced       EventType = "bet_placed"
	EventTypeBetSettled      EventType = "bet_settled"
	EventTypeBalanceAdjusted EventType = "balance_adjusted"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// Publisher stages events for delivery
type Publisher interface {
	Publish(e Event)
}

// BetPlacedEvent represents a bet that was placed and committed
type BetPlacedEvent struct {
	UserID     int64           `json:"user_id"`
	BetID      int64           `json:"bet_id"`
	BetType    models.BetType  `json:"bet_type"`
	Stake      decimal.Decimal `json:"stake"`
	TotalOdds  decimal.Decimal `json:"total_odds"`
	NewBalance decimal.Decimal `json:"new_balance"`
	EventCount int             `json:"event_count"`
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// BetSettledEvent represents a committed bet status transition
type BetSettledEvent struct {
	UserID     int64            `json:"user_id"`
	BetID      int64            `json:"bet_id"`
	OldStatus  models.BetStatus `json:"old_status"`
	NewStatus  models.BetStatus `json:"new_status"`
	Delta      decimal.Decimal  `json:"delta"`
	NewBalance decimal.Decimal  `json:"new_balance"`
}

func (e BetSettledEvent) Type() EventType {
	return EventTypeBetSettled
}

// BalanceAdjustedEvent represents a committed manual balance adjustment
type BalanceAdjustedEvent struct {
	UserID     int64           `json:"user_id"`
	Operation  string          `json:"operation"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

func (e BalanceAdjustedEvent) Type() EventType {
	return EventTypeBalanceAdjusted
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Handlers run asynchronously so a slow sink never blocks the caller
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and flushes
// them to the underlying bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional wrapper over the given bus
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events; called after a successful DB commit.
// Uses a background context so event delivery outlives the request.
func (b *TransactionalBus) Flush(ctx context.Context) {
	if len(b.pending) == 0 {
		return
	}
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events")

	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events; called after rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
