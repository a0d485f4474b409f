// internal/domain/payment/gateway.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/your-org/storefront/internal/pkg/money"
)

// ErrPaymentDeclined is returned when the gateway refuses the charge
var ErrPaymentDeclined = errors.New("payment declined")

// Card holds the card details entered on the payment step. Only the last
// four digits are ever persisted.
type Card struct {
	Number string
	Name   string
	Expiry string
}

// Digits returns the card number without separators
func (c Card) Digits() string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, c.Number)
}

// Last4 returns the last four digits of the card number
func (c Card) Last4() string {
	d := c.Digits()
	if len(d) <= 4 {
		return d
	}
	return d[len(d)-4:]
}

// ChargeRequest is what the gateway needs to move money
type ChargeRequest struct {
	Reference string
	Amount    money.Money
	Currency  string
	Card      Card
}

// Charge is a successful gateway charge
type Charge struct {
	ProviderReference string
}

// Gateway charges cards
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// TestGateway approves every card except one configured decline number.
// It stands in for a real processor in development and tests.
type TestGateway struct {
	declineCard string
	latency     time.Duration
}

// NewTestGateway creates a gateway that declines declineCard
func NewTestGateway(declineCard string, latency time.Duration) *TestGateway {
	return &TestGateway{
		declineCard: Card{Number: declineCard}.Digits(),
		latency:     latency,
	}
}

// Charge implements Gateway
func (g *TestGateway) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrPaymentDeclined)
	}
	if g.declineCard != "" && req.Card.Digits() == g.declineCard {
		return nil, fmt.Errorf("%w: card ending %s was declined by the issuer", ErrPaymentDeclined, req.Card.Last4())
	}

	ref := strings.ReplaceAll(uuid.NewString(), "-", "")
	return &Charge{ProviderReference: "pay_" + ref[:14]}, nil
}
