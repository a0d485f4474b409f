// internal/domain/cart/entity.go
package cart

import (
	"github.com/your-org/storefront/internal/pkg/money"
)

// ProductID identifies a catalog product inside the cart
type ProductID string

// Product is the catalog data needed to put something in the cart
type Product struct {
	ID        ProductID
	Name      string
	UnitPrice money.Money
	ImageRef  string
}

// LineItem is one product line. Quantity is always at least 1 while the
// line is in the cart.
type LineItem struct {
	ID        ProductID   `json:"id"`
	Name      string      `json:"name"`
	UnitPrice money.Money `json:"unit_price"`
	ImageRef  string      `json:"image_ref,omitempty"`
	Quantity  int         `json:"quantity"`
}

// LineTotal returns unit price times quantity
func (li LineItem) LineTotal() money.Money {
	return li.UnitPrice.Times(li.Quantity)
}

// State is the cart contents plus its derived totals.
// Items keep insertion order; TotalItems and TotalAmount are recomputed
// from Items after every command.
type State struct {
	Items       []LineItem  `json:"items"`
	TotalItems  int         `json:"total_items"`
	TotalAmount money.Money `json:"total_amount"`
}

// IsEmpty reports whether the cart holds no lines
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Find returns the line for id, if present
func (s State) Find(id ProductID) (LineItem, bool) {
	for _, item := range s.Items {
		if item.ID == id {
			return item, true
		}
	}
	return LineItem{}, false
}

func (s State) clone() State {
	out := State{
		Items:       make([]LineItem, len(s.Items)),
		TotalItems:  s.TotalItems,
		TotalAmount: s.TotalAmount,
	}
	copy(out.Items, s.Items)
	return out
}

func (s *State) recalculate() {
	s.TotalItems = 0
	s.TotalAmount = money.Zero
	for _, item := range s.Items {
		s.TotalItems += item.Quantity
		s.TotalAmount += item.LineTotal()
	}
}

func (s State) indexOf(id ProductID) int {
	for i, item := range s.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
