// internal/domain/cart/command.go
package cart

// Command is one of the four cart mutations. The set is closed: only the
// types in this file implement it. Apply also accepts pointers to them.
type Command interface {
	isCommand()
}

// AddItem merges quantity into an existing line or appends a new one.
type AddItem struct {
	Product  Product
	Quantity int
}

// RemoveItem drops the line for ID.
type RemoveItem struct {
	ID ProductID
}

// UpdateQuantity sets an absolute quantity; zero or less removes the line.
type UpdateQuantity struct {
	ID       ProductID
	Quantity int
}

// Clear empties the cart.
type Clear struct{}

func (AddItem) isCommand()        {}
func (RemoveItem) isCommand()     {}
func (UpdateQuantity) isCommand() {}
func (Clear) isCommand()          {}
