// Package messaging publishes event lifecycle records to Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// Record is one lifecycle change of an event as published on the topic.
type Record struct {
	ID         int64           `json:"id"`
	EventID    string          `json:"eventId"`
	Version    int             `json:"version"`
	Action     string          `json:"action"`
	ActorID    string          `json:"actorId,omitempty"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Publisher sends records to a broker.
type Publisher interface {
	Publish(ctx context.Context, records []Record) error
	Close() error
}

// KafkaPublisher writes records keyed by event id so that the changes of
// one event stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(broker, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    100,
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, records []Record) error {
	msgs := make([]kafka.Message, 0, len(records))
	for _, r := range records {
		value, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal record %d: %w", r.ID, err)
		}
		carrier := headerCarrier{}
		otel.GetTextMapPropagator().Inject(ctx, &carrier)

		msgs = append(msgs, kafka.Message{
			Key:     []byte(r.EventID),
			Value:   value,
			Time:    r.OccurredAt,
			Headers: append(carrier.headers, kafka.Header{Key: "action", Value: []byte(r.Action)}),
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// headerCarrier adapts kafka headers to the otel text map carrier.
type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}
