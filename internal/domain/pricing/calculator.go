// internal/domain/pricing/calculator.go
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/money"
)

// Policy is the storefront's shipping and tax rule set
type Policy struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold money.Money
	FlatShippingFee       money.Money
	Currency              string
}

// DefaultPolicy is 8% tax, free shipping strictly above 100.00, otherwise 5.99.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: money.MustParse("100.00"),
		FlatShippingFee:       money.MustParse("5.99"),
		Currency:              "INR",
	}
}

// PolicyFromConfig converts the decimal pricing settings to a Policy
func PolicyFromConfig(cfg config.PricingConfig) (Policy, error) {
	p := Policy{
		TaxRate:               cfg.TaxRate,
		FreeShippingThreshold: money.FromDecimal(cfg.FreeShippingThreshold),
		FlatShippingFee:       money.FromDecimal(cfg.FlatShippingFee),
		Currency:              cfg.Currency,
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate rejects policies that could produce negative charges
func (p Policy) Validate() error {
	var errs []error
	if p.TaxRate.IsNegative() {
		errs = append(errs, fmt.Errorf("tax rate %s is negative", p.TaxRate))
	}
	if p.FreeShippingThreshold.IsNegative() {
		errs = append(errs, fmt.Errorf("free shipping threshold %s is negative", p.FreeShippingThreshold))
	}
	if p.FlatShippingFee.IsNegative() {
		errs = append(errs, fmt.Errorf("flat shipping fee %s is negative", p.FlatShippingFee))
	}
	if p.Currency == "" {
		errs = append(errs, errors.New("currency is required"))
	}
	return errors.Join(errs...)
}

// Breakdown is the set of charges derived from a subtotal
type Breakdown struct {
	Subtotal     money.Money `json:"subtotal"`
	ShippingCost money.Money `json:"shipping_cost"`
	TaxAmount    money.Money `json:"tax_amount"`
	GrandTotal   money.Money `json:"grand_total"`
	Currency     string      `json:"currency"`
}

// FreeShipping reports whether shipping was waived
func (b Breakdown) FreeShipping() bool {
	return b.ShippingCost.IsZero()
}

// Calculator applies a Policy. It holds no mutable state.
type Calculator struct {
	policy Policy
}

// NewCalculator creates a calculator for policy
func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

// Policy returns the policy in effect
func (c *Calculator) Policy() Policy {
	return c.policy
}

// ComputeBreakdown derives shipping, tax and the grand total from subtotal.
//
// Shipping is zero for an empty subtotal and for subtotals strictly above
// the free-shipping threshold. Tax is subtotal times the rate rounded half
// up to the minor unit. The grand total drops by the flat fee when the
// subtotal crosses the threshold.
func (c *Calculator) ComputeBreakdown(subtotal money.Money) Breakdown {
	if subtotal.IsNegative() {
		subtotal = money.Zero
	}

	shipping := c.policy.FlatShippingFee
	if subtotal.IsZero() || subtotal > c.policy.FreeShippingThreshold {
		shipping = money.Zero
	}

	tax := money.FromDecimal(subtotal.Decimal().Mul(c.policy.TaxRate))

	return Breakdown{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		TaxAmount:    tax,
		GrandTotal:   money.Sum(subtotal, shipping, tax),
		Currency:     c.policy.Currency,
	}
}
