// internal/domain/checkout/errors.go
package checkout

import "errors"

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrSubmissionInFlight   = errors.New("an order submission is already in progress")
	ErrAlreadySubmitted     = errors.New("order has already been placed")
	ErrSubmissionTimeout    = errors.New("order submission timed out")
	ErrSubmissionCancelled  = errors.New("order submission cancelled")
	ErrNoSubmissionInFlight = errors.New("no order submission in progress")
	ErrNotSubmitted         = errors.New("no order has been placed yet")
	ErrPaymentNotRequired   = errors.New("order does not take card payment")
	ErrPaymentInFlight      = errors.New("a payment is already being processed")
)
