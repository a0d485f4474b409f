// internal/domain/checkout/validation.go
package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/your-org/storefront/internal/domain/order"
)

// ValidationErrors maps a form field (json name, billing fields prefixed
// with "billing.") to a message for that field.
type ValidationErrors map[string]string

func (e ValidationErrors) Error() string {
	fields := e.Fields()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the invalid field names in sorted order
func (e ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

var (
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvvPattern    = regexp.MustCompile(`^\d{3,4}$`)
	cardPattern   = regexp.MustCompile(`^\d{16}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]validator.Func{
		"cardnumber": func(fl validator.FieldLevel) bool {
			return cardPattern.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
		},
		"expiry": func(fl validator.FieldLevel) bool {
			return expiryPattern.MatchString(fl.Field().String())
		},
		"cvv": func(fl validator.FieldLevel) bool {
			return cvvPattern.MatchString(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return v
}

var fieldLabels = map[string]string{
	"fullName":      "Name",
	"email":         "Email",
	"phone":         "Phone",
	"addressLine1":  "Address",
	"city":          "City",
	"state":         "State",
	"postalCode":    "Postal code",
	"paymentMethod": "Payment method",
	"cardNumber":    "Card number",
	"cardName":      "Name on card",
	"expiryDate":    "Expiry date",
	"cvv":           "CVV",
}

// ValidateForm checks a normalized form. It returns nil when the form is
// complete. Card fields are checked only for card payments.
func ValidateForm(form Form) ValidationErrors {
	errs := ValidationErrors{}

	collect(errs, "", validate.Struct(form))
	if form.PaymentMethod == order.PaymentMethodCard {
		collect(errs, "", validate.Struct(form.Card))
	}
	if !form.UsesShippingForBilling() {
		if form.Billing == nil {
			errs["billing"] = "Billing address is required"
		} else {
			collect(errs, "billing.", validate.Struct(*form.Billing))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateCard checks card details on their own
func ValidateCard(card CardDetails) ValidationErrors {
	errs := ValidationErrors{}
	collect(errs, "", validate.Struct(card))
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func collect(errs ValidationErrors, prefix string, err error) {
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs[prefix+"form"] = err.Error()
		return
	}

	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		errs[prefix+field] = message(fe)
	}
}

func message(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Email must be a valid email address"
	case "oneof":
		return "Payment method must be card or cod"
	case "cardnumber":
		return "Card number must be 16 digits"
	case "expiry":
		return "Expiry date must be in MM/YY format"
	case "cvv":
		return "CVV must be 3 or 4 digits"
	default:
		return label + " is invalid"
	}
}
