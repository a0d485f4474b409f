// internal/domain/order/events.go
package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/storefront/internal/pkg/money"
)

// EventPublisher delivers order lifecycle events to downstream consumers
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) error
}

// OrderPlacedEvent is emitted once per accepted order
type OrderPlacedEvent struct {
	EventID       string        `json:"event_id"`
	OrderNumber   string        `json:"order_number"`
	Reference     string        `json:"reference"`
	Email         string        `json:"email"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Items         []PlacedItem  `json:"items"`
	Subtotal      money.Money   `json:"subtotal"`
	Shipping      money.Money   `json:"shipping"`
	Tax           money.Money   `json:"tax"`
	TotalAmount   money.Money   `json:"total_amount"`
	Currency      string        `json:"currency"`
	Status        OrderStatus   `json:"status"`
	Timestamp     time.Time     `json:"timestamp"`
}

// PlacedItem is a line of an OrderPlacedEvent
type PlacedItem struct {
	ProductID string      `json:"product_id"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Money `json:"unit_price"`
}

// NewOrderPlacedEvent builds the event for a persisted order
func NewOrderPlacedEvent(o *Order, at time.Time) OrderPlacedEvent {
	items := make([]PlacedItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, PlacedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	return OrderPlacedEvent{
		EventID:       uuid.NewString(),
		OrderNumber:   o.OrderNumber,
		Reference:     o.Reference,
		Email:         o.Email,
		PaymentMethod: o.PaymentMethod,
		Items:         items,
		Subtotal:      o.SubtotalAmount,
		Shipping:      o.ShippingAmount,
		Tax:           o.TaxAmount,
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
		Status:        o.Status,
		Timestamp:     at,
	}
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

// PublishOrderPlaced implements EventPublisher
func (NopPublisher) PublishOrderPlaced(context.Context, OrderPlacedEvent) error { return nil }
