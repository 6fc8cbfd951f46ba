package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Kafka topics for committed ledger events
const (
	TopicBetPlaced       = "bet_placed"
	TopicBetSettled      = "bet_settled"
	TopicBalanceAdjusted = "balance_adjusted"
)

// envelope is the wire format for every published event
type envelope struct {
	EventType EventType `json:"event_type"`
	TsUnixMs  int64     `json:"ts_unix_ms"`
	Payload   Event     `json:"payload"`
}

// KafkaSink forwards committed events to Kafka. It subscribes to the
// in-process bus, so delivery is best-effort and strictly post-commit.
type KafkaSink struct {
	writers map[EventType]*kafka.Writer
}

// NewKafkaSink creates writers for every ledger topic on the given brokers
func NewKafkaSink(brokers string) *KafkaSink {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:                   kafka.TCP(brokers),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		}
	}
	return &KafkaSink{
		writers: map[EventType]*kafka.Writer{
			EventTypeBetPlaced:       newWriter(TopicBetPlaced),
			EventTypeBetSettled:      newWriter(TopicBetSettled),
			EventTypeBalanceAdjusted: newWriter(TopicBalanceAdjusted),
		},
	}
}

// Attach subscribes the sink to every event type it has a topic for
func (s *KafkaSink) Attach(bus *Bus) {
	for eventType := range s.writers {
		bus.Subscribe(eventType, s.handle)
	}
}

func (s *KafkaSink) handle(ctx context.Context, event Event) {
	if err := s.write(ctx, event); err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to publish event to Kafka")
	}
}

func (s *KafkaSink) write(ctx context.Context, event Event) error {
	w, ok := s.writers[event.Type()]
	if !ok {
		return fmt.Errorf("no topic for event type %s", event.Type())
	}

	b, err := json.Marshal(envelope{
		EventType: event.Type(),
		TsUnixMs:  time.Now().UnixMilli(),
		Payload:   event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(partitionKey(event)),
		Value: b,
		Time:  time.Now(),
	})
}

// partitionKey keys messages by user so one user's ledger events stay ordered
func partitionKey(event Event) string {
	switch e := event.(type) {
	case BetPlacedEvent:
		return strconv.FormatInt(e.UserID, 10)
	case BetSettledEvent:
		return strconv.FormatInt(e.UserID, 10)
	case BalanceAdjustedEvent:
		return strconv.FormatInt(e.UserID, 10)
	}
	return string(event.Type())
}

// Close shuts down all writers
func (s *KafkaSink) Close() error {
	var firstErr error
	for _, w := range s.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
