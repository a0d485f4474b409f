package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/pkg/money"
)

func TestOrderPlacedMessage(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	event := order.OrderPlacedEvent{
		EventID:       "evt-1",
		OrderNumber:   "ORD-20261015-00042",
		PaymentMethod: order.PaymentMethodCard,
		Items:         []order.PlacedItem{{ProductID: "hoodie", Quantity: 1, UnitPrice: money.MustParse("120.00")}},
		TotalAmount:   money.MustParse("129.60"),
		Currency:      "INR",
		Timestamp:     at,
	}

	msg, err := orderPlacedMessage(event)
	require.NoError(t, err)

	assert.Equal(t, "ORDER#ORD-20261015-00042", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event_type", Value: []byte("order.placed")})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "card", decoded["payment_method"])
	assert.Equal(t, 129.6, decoded["total_amount"])
}

func TestNewProducer_UsesConfiguredTopic(t *testing.T) {
	cfg := &config.Config{Kafka: config.KafkaConfig{
		Brokers:          []string{"localhost:9092"},
		OrderEventsTopic: "order-events",
		WriteTimeout:     time.Second,
	}}

	p := NewProducer(cfg)
	defer p.Close()

	assert.Equal(t, "order-events", p.writer.Topic)
	assert.Equal(t, kafka.RequireOne, p.writer.RequiredAcks)
}
