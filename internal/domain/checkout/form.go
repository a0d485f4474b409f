// internal/domain/checkout/form.go
package checkout

import (
	"strings"

	"github.com/your-org/storefront/internal/domain/order"
)

const defaultCountry = "India"

// Form is the checkout page input. Shipping fields are flat; billing is a
// separate address only when SameAsBilling is false.
type Form struct {
	FullName      string              `json:"fullName" validate:"required"`
	Email         string              `json:"email" validate:"required,email"`
	Phone         string              `json:"phone" validate:"required"`
	AddressLine1  string              `json:"addressLine1" validate:"required"`
	AddressLine2  string              `json:"addressLine2"`
	City          string              `json:"city" validate:"required"`
	State         string              `json:"state" validate:"required"`
	PostalCode    string              `json:"postalCode" validate:"required"`
	Country       string              `json:"country"`
	SameAsBilling *bool               `json:"sameAsBilling,omitempty" validate:"-"`
	Billing       *Address            `json:"billing,omitempty" validate:"-"`
	PaymentMethod order.PaymentMethod `json:"paymentMethod" validate:"required,oneof=card cod"`
	Card          CardDetails         `json:"card" validate:"-"`
}

// Address is a billing address entered separately from shipping
type Address struct {
	FullName     string `json:"fullName" validate:"required"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postalCode" validate:"required"`
	Country      string `json:"country"`
}

// CardDetails are required only for card payments
type CardDetails struct {
	CardNumber string `json:"cardNumber" validate:"required,cardnumber"`
	CardName   string `json:"cardName" validate:"required"`
	ExpiryDate string `json:"expiryDate" validate:"required,expiry"`
	CVV        string `json:"cvv" validate:"required,cvv"`
}

// UsesShippingForBilling reports whether billing mirrors shipping.
// An absent flag means yes.
func (f Form) UsesShippingForBilling() bool {
	return f.SameAsBilling == nil || *f.SameAsBilling
}

// Normalized returns a copy with surrounding whitespace removed
func (f Form) Normalized() Form {
	out := f
	for _, s := range []*string{
		&out.FullName, &out.Email, &out.Phone, &out.AddressLine1, &out.AddressLine2,
		&out.City, &out.State, &out.PostalCode, &out.Country,
	} {
		*s = strings.TrimSpace(*s)
	}
	if out.Country == "" {
		out.Country = defaultCountry
	}
	out.PaymentMethod = order.PaymentMethod(strings.ToLower(strings.TrimSpace(string(out.PaymentMethod))))
	out.Card = f.Card.Normalized()

	if f.Billing != nil {
		billing := f.Billing.normalized()
		out.Billing = &billing
	}
	if f.SameAsBilling != nil {
		same := *f.SameAsBilling
		out.SameAsBilling = &same
	}
	return out
}

// Normalized returns a copy with surrounding whitespace removed
func (c CardDetails) Normalized() CardDetails {
	return CardDetails{
		CardNumber: strings.TrimSpace(c.CardNumber),
		CardName:   strings.TrimSpace(c.CardName),
		ExpiryDate: strings.TrimSpace(c.ExpiryDate),
		CVV:        strings.TrimSpace(c.CVV),
	}
}

func (a Address) normalized() Address {
	out := a
	for _, s := range []*string{
		&out.FullName, &out.Phone, &out.AddressLine1, &out.AddressLine2,
		&out.City, &out.State, &out.PostalCode, &out.Country,
	} {
		*s = strings.TrimSpace(*s)
	}
	if out.Country == "" {
		out.Country = defaultCountry
	}
	return out
}

func (f Form) shippingAddress() order.Address {
	return order.Address{
		FullName:     f.FullName,
		AddressLine1: f.AddressLine1,
		AddressLine2: f.AddressLine2,
		City:         f.City,
		State:        f.State,
		PostalCode:   f.PostalCode,
		Country:      f.Country,
		Phone:        f.Phone,
	}
}

func (f Form) billingAddress() order.Address {
	if f.UsesShippingForBilling() || f.Billing == nil {
		return f.shippingAddress()
	}
	b := f.Billing
	return order.Address{
		FullName:     b.FullName,
		AddressLine1: b.AddressLine1,
		AddressLine2: b.AddressLine2,
		City:         b.City,
		State:        b.State,
		PostalCode:   b.PostalCode,
		Country:      b.Country,
		Phone:        b.Phone,
	}
}
