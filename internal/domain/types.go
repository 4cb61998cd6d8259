package domain

import (
	"fmt"
	"strings"
	"time"
)

// Money is an amount in centavos. All pricing arithmetic is integer.
type Money int64

// Variant is the egg variant of a line item. Closed set: extra, jumbo.
type Variant string

const (
	VariantExtra Variant = "extra"
	VariantJumbo Variant = "jumbo"
)

// Display returns the capitalized form used in persisted orders and messages.
func (v Variant) Display() string {
	s := string(v)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseVariant validates a single variant value case-insensitively and
// returns the canonical lowercase form.
func ParseVariant(raw string) (Variant, *FieldError) {
	switch Variant(strings.ToLower(strings.TrimSpace(raw))) {
	case VariantExtra:
		return VariantExtra, nil
	case VariantJumbo:
		return VariantJumbo, nil
	default:
		return "", &FieldError{Field: FieldEggType, Reason: fmt.Sprintf("invalid egg type value: %q", raw)}
	}
}

// ParseVariants validates a non-empty variant list, failing fast on the
// first invalid element.
func ParseVariants(raw []string) ([]Variant, *FieldError) {
	if len(raw) == 0 {
		return nil, &FieldError{Field: FieldEggType, Reason: "empty egg type list"}
	}
	out := make([]Variant, 0, len(raw))
	for _, r := range raw {
		v, err := ParseVariant(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// PaymentMethod is the enumerated payment method code.
type PaymentMethod int

const (
	MethodPix    PaymentMethod = 1
	MethodCredit PaymentMethod = 2
	MethodDebit  PaymentMethod = 3
	MethodCash   PaymentMethod = 4
)

// String returns the human-readable form persisted on orders.
func (m PaymentMethod) String() string {
	switch m {
	case MethodPix:
		return "Pix"
	case MethodCredit:
		return "Crédito"
	case MethodDebit:
		return "Débito"
	case MethodCash:
		return "Dinheiro"
	default:
		return fmt.Sprintf("PaymentMethod(%d)", int(m))
	}
}

// ParsePaymentMethod validates a payment method code.
func ParsePaymentMethod(code int) (PaymentMethod, *FieldError) {
	m := PaymentMethod(code)
	switch m {
	case MethodPix, MethodCredit, MethodDebit, MethodCash:
		return m, nil
	default:
		return 0, &FieldError{Field: FieldMethod, Reason: fmt.Sprintf("invalid payment method value: %d", code)}
	}
}

// DeliveryDay is the enumerated delivery day code offered to clients.
type DeliveryDay int

const (
	DayMonday   DeliveryDay = 1
	DayThursday DeliveryDay = 2
	DaySaturday DeliveryDay = 3
)

// Weekday returns the concrete weekday the code stands for.
func (d DeliveryDay) Weekday() time.Weekday {
	switch d {
	case DayMonday:
		return time.Monday
	case DayThursday:
		return time.Thursday
	case DaySaturday:
		return time.Saturday
	default:
		return time.Sunday
	}
}

// ParseDeliveryDay validates a delivery day code.
func ParseDeliveryDay(code int) (DeliveryDay, *FieldError) {
	d := DeliveryDay(code)
	switch d {
	case DayMonday, DayThursday, DaySaturday:
		return d, nil
	default:
		return 0, &FieldError{Field: FieldDeliveryDay, Reason: fmt.Sprintf("invalid preferred delivery day value: %d", code)}
	}
}

// ValidateDozens checks a non-empty list of positive integer quantities.
// One invalid element fails the whole list.
func ValidateDozens(quantities []int) ([]int, *FieldError) {
	if len(quantities) == 0 {
		return nil, &FieldError{Field: FieldDozens, Reason: "empty dozens list"}
	}
	for _, q := range quantities {
		if q <= 0 {
			return nil, &FieldError{Field: FieldDozens, Reason: fmt.Sprintf("invalid dozen value: %d", q)}
		}
	}
	return quantities, nil
}
