// internal/infrastructure/messaging/kafka/producer.go
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/order"
)

const eventTypeOrderPlaced = "order.placed"

// Producer publishes order events to kafka
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a writer for the configured order events topic
func NewProducer(cfg *config.Config) *Producer {
	acks := kafka.RequireOne
	if cfg.Kafka.RequireAllReplica {
		acks = kafka.RequireAll
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Kafka.Brokers...),
		Topic:                  cfg.Kafka.OrderEventsTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           acks,
		WriteTimeout:           cfg.Kafka.WriteTimeout,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: w}
}

// PublishOrderPlaced writes the event keyed by order number so events for
// one order stay on one partition
func (p *Producer) PublishOrderPlaced(ctx context.Context, event order.OrderPlacedEvent) error {
	msg, err := orderPlacedMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (p *Producer) Close() error {
	return p.writer.Close()
}

func orderPlacedMessage(event order.OrderPlacedEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal order event failed: %w", err)
	}

	return kafka.Message{
		Key:   []byte(fmt.Sprintf("ORDER#%s", event.OrderNumber)),
		Value: data,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventTypeOrderPlaced)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}, nil
}
