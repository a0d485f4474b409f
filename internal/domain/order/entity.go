// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/your-org/storefront/internal/pkg/money"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// PaymentMethod is how the shopper chose to pay
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCOD  PaymentMethod = "cod"
)

// Valid reports whether m is a supported method
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCard || m == PaymentMethodCOD
}

// Label is the human-readable name shown on the confirmation page
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodCard:
		return "Credit Card"
	case PaymentMethodCOD:
		return "Cash on Delivery"
	default:
		return string(m)
	}
}

// Order represents a placed order
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"index;size:50" json:"order_number"`
	Reference     string        `gorm:"uniqueIndex;not null;size:36" json:"reference"` // draft id
	Email         string        `gorm:"not null;size:255" json:"email"`
	Phone         string        `gorm:"size:20" json:"phone"`
	Status        OrderStatus   `gorm:"not null;size:20" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;size:20" json:"payment_status"`
	PaymentMethod PaymentMethod `gorm:"not null;size:20" json:"payment_method"`

	SubtotalAmount money.Money `gorm:"not null" json:"subtotal_amount"`
	ShippingAmount money.Money `gorm:"not null" json:"shipping_amount"`
	TaxAmount      money.Money `gorm:"not null" json:"tax_amount"`
	TotalAmount    money.Money `gorm:"not null" json:"total_amount"`
	Currency       string      `gorm:"size:3;not null" json:"currency"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress  Address `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`

	ProcessedAt *time.Time     `json:"processed_at"`
	ShippedAt   *time.Time     `json:"shipped_at"`
	DeliveredAt *time.Time     `json:"delivered_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	Payments      []Payment            `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"payments,omitempty"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is a frozen copy of a cart line
type OrderItem struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"not null;index" json:"order_id"`
	ProductID  string      `gorm:"not null;size:64;index" json:"product_id"`
	Name       string      `gorm:"not null;size:255" json:"name"`
	ImageURL   string      `gorm:"size:500" json:"image_url"`
	Quantity   int         `gorm:"not null" json:"quantity"`
	UnitPrice  money.Money `gorm:"not null" json:"unit_price"`
	TotalPrice money.Money `gorm:"not null" json:"total_price"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Payment records one capture attempt
type Payment struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	OrderID           uint          `gorm:"not null;index" json:"order_id"`
	PaymentMethod     PaymentMethod `gorm:"not null;size:20" json:"payment_method"`
	ProviderReference string        `gorm:"size:255" json:"provider_reference"`
	Amount            money.Money   `gorm:"not null" json:"amount"`
	Currency          string        `gorm:"size:3;not null" json:"currency"`
	Status            PaymentStatus `gorm:"not null;size:20" json:"status"`
	CardLast4         string        `gorm:"size:4" json:"card_last4,omitempty"`
	FailureReason     string        `gorm:"size:255" json:"failure_reason,omitempty"`
	ProcessedAt       *time.Time    `json:"processed_at"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedAt time.Time   `json:"created_at"`
}

// Address represents a shipping or billing address (embedded in Order)
type Address struct {
	FullName     string `gorm:"size:200" json:"full_name"`
	AddressLine1 string `gorm:"size:255" json:"address_line1"`
	AddressLine2 string `gorm:"size:255" json:"address_line2"`
	City         string `gorm:"size:100" json:"city"`
	State        string `gorm:"size:100" json:"state"`
	PostalCode   string `gorm:"size:20" json:"postal_code"`
	Country      string `gorm:"size:100" json:"country"`
	Phone        string `gorm:"size:20" json:"phone"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (Payment) TableName() string            { return "payments" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// Models lists every table this package owns, for migrations
func Models() []interface{} {
	return []interface{}{&Order{}, &OrderItem{}, &Payment{}, &OrderStatusHistory{}}
}

// GenerateOrderNumber formats ORD-YYYYMMDD-XXXXX from the row id
func GenerateOrderNumber(id uint, at time.Time) string {
	return fmt.Sprintf("ORD-%s-%05d", at.Format("20060102"), id)
}

var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransitionTo reports whether the order may move to status
func (o *Order) CanTransitionTo(status OrderStatus) bool {
	for _, allowed := range statusTransitions[o.Status] {
		if allowed == status {
			return true
		}
	}
	return false
}

// IsPayable reports whether a card capture may still be attempted
func (o *Order) IsPayable() bool {
	return o.PaymentMethod == PaymentMethodCard &&
		o.Status == OrderStatusPending &&
		o.PaymentStatus != PaymentStatusPaid
}
