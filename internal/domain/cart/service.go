// internal/domain/cart/service.go
package cart

import (
	"fmt"
	"sync"
)

// Store owns one shopper's cart. All reads and writes go through it, and
// every mutation is one of the Command types.
type Store struct {
	mu    sync.Mutex
	state State
}

// NewStore creates an empty cart
func NewStore() *Store {
	return &Store{state: State{Items: []LineItem{}}}
}

// Apply runs cmd against the cart and reports whether the state changed.
func (s *Store) Apply(cmd Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed bool
	switch c := direct(cmd).(type) {
	case AddItem:
		changed = s.add(c.Product, c.Quantity)
	case RemoveItem:
		changed = s.remove(c.ID)
	case UpdateQuantity:
		if c.Quantity <= 0 {
			changed = s.remove(c.ID)
		} else {
			changed = s.setQuantity(c.ID, c.Quantity)
		}
	case Clear:
		changed = len(s.state.Items) > 0
		s.state.Items = []LineItem{}
	default:
		panic(fmt.Sprintf("cart: unknown command %T", cmd))
	}

	s.state.recalculate()
	return changed
}

// direct unwraps pointer commands, which satisfy Command through the
// value methods
func direct(cmd Command) Command {
	switch c := cmd.(type) {
	case *AddItem:
		if c != nil {
			return *c
		}
	case *RemoveItem:
		if c != nil {
			return *c
		}
	case *UpdateQuantity:
		if c != nil {
			return *c
		}
	case *Clear:
		if c != nil {
			return *c
		}
	}
	return cmd
}

// AddItem adds quantity units of product. A non-positive quantity leaves
// the cart unchanged and returns false.
func (s *Store) AddItem(product Product, quantity int) bool {
	return s.Apply(AddItem{Product: product, Quantity: quantity})
}

// RemoveItem removes the line for id if present
func (s *Store) RemoveItem(id ProductID) bool {
	return s.Apply(RemoveItem{ID: id})
}

// UpdateQuantity sets the quantity of an existing line
func (s *Store) UpdateQuantity(id ProductID, quantity int) bool {
	return s.Apply(UpdateQuantity{ID: id, Quantity: quantity})
}

// Clear resets the cart to empty
func (s *Store) Clear() bool {
	return s.Apply(Clear{})
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// TotalItems returns the sum of quantities
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalItems
}

func (s *Store) add(product Product, quantity int) bool {
	if quantity <= 0 {
		return false
	}

	if i := s.state.indexOf(product.ID); i >= 0 {
		s.state.Items[i].Quantity += quantity
		return true
	}

	s.state.Items = append(s.state.Items, LineItem{
		ID:        product.ID,
		Name:      product.Name,
		UnitPrice: product.UnitPrice,
		ImageRef:  product.ImageRef,
		Quantity:  quantity,
	})
	return true
}

func (s *Store) remove(id ProductID) bool {
	i := s.state.indexOf(id)
	if i < 0 {
		return false
	}
	s.state.Items = append(s.state.Items[:i], s.state.Items[i+1:]...)
	return true
}

func (s *Store) setQuantity(id ProductID, quantity int) bool {
	i := s.state.indexOf(id)
	if i < 0 {
		return false
	}
	if s.state.Items[i].Quantity == quantity {
		return false
	}
	s.state.Items[i].Quantity = quantity
	return true
}
