package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/platform/observability"
)

const (
	batchTimeout = 10 * time.Millisecond
	batchSize    = 100
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher publishes inventory events as JSON, keyed by product id so
// the events of one product stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: batchTimeout,
		BatchSize:    batchSize,
		RequiredAcks: kafkago.RequireOne,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.InventoryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	msg := kafkago.Message{
		Key:   []byte(strconv.FormatInt(event.ProductID, 10)),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
		Time: event.OccurredAt,
	}
	msg.Headers = injectTraceContext(ctx, msg.Headers)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event %s: %w", event.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// injectTraceContext carries the span context of ctx in the message headers.
func injectTraceContext(ctx context.Context, headers []kafkago.Header) []kafkago.Header {
	for k, v := range observability.InjectTraceContext(ctx) {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return headers
}
