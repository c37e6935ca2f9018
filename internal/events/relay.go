package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// BatchClaimer hands out unpublished events under a lock.
type BatchClaimer interface {
	ClaimBatch(ctx context.Context, limit int, fn func(ctx context.Context, batch []EventLog) error) (int, error)
}

// Relay moves recorded events from the event log to Kafka.
type Relay struct {
	store     BatchClaimer
	writer    MessageWriter
	logger    *zap.Logger
	batchSize int
}

func NewRelay(store BatchClaimer, writer MessageWriter, logger *zap.Logger, batchSize int) *Relay {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Relay{store: store, writer: writer, logger: logger, batchSize: batchSize}
}

// NewKafkaWriter builds the writer used in production. Topics are set per message.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// RunOnce publishes a single batch and reports how many events went out.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	return r.store.ClaimBatch(ctx, r.batchSize, func(ctx context.Context, batch []EventLog) error {
		msgs := make([]kafka.Message, 0, len(batch))
		for _, ev := range batch {
			msgs = append(msgs, ToMessage(ev))
		}
		if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write %d events to kafka: %w", len(msgs), err)
		}
		r.logger.Debug("published events", zap.Int("count", len(msgs)))
		return nil
	})
}

// ToMessage maps an event to its Kafka message.
func ToMessage(ev EventLog) kafka.Message {
	var key []byte
	if ev.AggregateID != nil {
		key = []byte(ev.AggregateID.String())
	}
	return kafka.Message{
		Topic: Topic(ev.EventType),
		Key:   key,
		Value: ev.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(fmt.Sprintf("%d", ev.ID))},
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
		Time: ev.CreatedAt,
	}
}

// Topic turns APPOINTMENT_BOOKED into appointment.booked.
func Topic(eventType string) string {
	return strings.ToLower(strings.ReplaceAll(eventType, "_", "."))
}
