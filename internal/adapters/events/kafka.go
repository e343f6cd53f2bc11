// Package events publishes mall and store status changes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mallmap/core/internal/ports"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes status events to a single topic, keyed by mall id
// so every event for a mall lands on the same partition in order.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		timeout: timeout,
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, events ...ports.StatusEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs, err := encode(events)
	if err != nil {
		return err
	}

	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}

	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d status events: %w", len(msgs), err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

func encode(events []ports.StatusEvent) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		v, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode %s event: %w", e.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.Itoa(e.MallID)),
			Value: v,
			Time:  e.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(e.Type)},
			},
		})
	}
	return msgs, nil
}

// Noop discards every event. It is used when publishing is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, ...ports.StatusEvent) error { return nil }

func (Noop) Close() error { return nil }
