// internal/domain/order/draft.go
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/money"
)

// Contact is how the store reaches the shopper about an order
type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// DraftInput carries everything needed to build a Draft
type DraftInput struct {
	ID            string
	Items         []cart.LineItem
	Shipping      Address
	Billing       Address
	PaymentMethod PaymentMethod
	Contact       Contact
	Pricing       pricing.Breakdown
	CreatedAt     time.Time
}

// Draft is an order ready for submission. It is immutable once built: the
// fields are unexported and accessors hand out copies.
type Draft struct {
	id        string
	items     []cart.LineItem
	shipping  Address
	billing   Address
	method    PaymentMethod
	contact   Contact
	pricing   pricing.Breakdown
	createdAt time.Time
}

// NewDraft freezes in into a Draft
func NewDraft(in DraftInput) Draft {
	items := make([]cart.LineItem, len(in.Items))
	copy(items, in.Items)

	return Draft{
		id:        in.ID,
		items:     items,
		shipping:  in.Shipping,
		billing:   in.Billing,
		method:    in.PaymentMethod,
		contact:   in.Contact,
		pricing:   in.Pricing,
		createdAt: in.CreatedAt,
	}
}

func (d Draft) ID() string { return d.id }
func (d Draft) ShippingAddress() Address { return d.shipping }
func (d Draft) BillingAddress() Address { return d.billing }
func (d Draft) PaymentMethod() PaymentMethod { return d.method }
func (d Draft) Contact() Contact { return d.contact }
func (d Draft) Pricing() pricing.Breakdown { return d.pricing }
func (d Draft) TotalAmount() money.Money { return d.pricing.GrandTotal }
func (d Draft) Currency() string { return d.pricing.Currency }
func (d Draft) CreatedAt() time.Time { return d.createdAt }
func (d Draft) ItemCount() int { return len(d.items) }

// Items returns a copy of the frozen cart lines
func (d Draft) Items() []cart.LineItem {
	items := make([]cart.LineItem, len(d.items))
	copy(items, d.items)
	return items
}

// SameOrder reports whether other would place the same order as d. The id
// and creation time are not compared.
func (d Draft) SameOrder(other Draft) bool {
	if d.shipping != other.shipping || d.billing != other.billing ||
		d.method != other.method || d.contact != other.contact ||
		d.pricing != other.pricing || len(d.items) != len(other.items) {
		return false
	}
	for i := range d.items {
		if d.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

// Validate checks the draft is internally consistent
func (d Draft) Validate() error {
	if d.id == "" {
		return errors.New("draft has no id")
	}
	if len(d.items) == 0 {
		return errors.New("draft has no items")
	}
	if !d.method.Valid() {
		return fmt.Errorf("unsupported payment method %q", d.method)
	}
	if d.contact.Email == "" {
		return errors.New("draft has no contact email")
	}

	var subtotal money.Money
	for _, item := range d.items {
		if item.Quantity < 1 {
			return fmt.Errorf("item %s has quantity %d", item.ID, item.Quantity)
		}
		subtotal += item.LineTotal()
	}
	if subtotal != d.pricing.Subtotal {
		return fmt.Errorf("subtotal %s does not match items total %s", d.pricing.Subtotal, subtotal)
	}
	if d.pricing.GrandTotal != d.pricing.Subtotal+d.pricing.ShippingCost+d.pricing.TaxAmount {
		return errors.New("grand total does not add up")
	}
	return nil
}

// Receipt is what the submitter hands back for an accepted draft
type Receipt struct {
	OrderID       uint          `json:"-"`
	OrderNumber   string        `json:"order_number"`
	Reference     string        `json:"reference"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Total         money.Money   `json:"total"`
	Currency      string        `json:"currency"`
	CreatedAt     time.Time     `json:"created_at"`
}

func newOrderFromDraft(d Draft) Order {
	items := make([]OrderItem, 0, len(d.items))
	for _, li := range d.items {
		items = append(items, OrderItem{
			ProductID:  string(li.ID),
			Name:       li.Name,
			ImageURL:   li.ImageRef,
			Quantity:   li.Quantity,
			UnitPrice:  li.UnitPrice,
			TotalPrice: li.LineTotal(),
		})
	}

	return Order{
		Reference:       d.id,
		Email:           d.contact.Email,
		Phone:           d.contact.Phone,
		Status:          OrderStatusPending,
		PaymentStatus:   PaymentStatusPending,
		PaymentMethod:   d.method,
		SubtotalAmount:  d.pricing.Subtotal,
		ShippingAmount:  d.pricing.ShippingCost,
		TaxAmount:       d.pricing.TaxAmount,
		TotalAmount:     d.pricing.GrandTotal,
		Currency:        d.pricing.Currency,
		ShippingAddress: d.shipping,
		BillingAddress:  d.billing,
		Items:           items,
	}
}

func receiptFor(o *Order) *Receipt {
	return &Receipt{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Reference:     o.Reference,
		PaymentMethod: o.PaymentMethod,
		Total:         o.TotalAmount,
		Currency:      o.Currency,
		CreatedAt:     o.CreatedAt,
	}
}
