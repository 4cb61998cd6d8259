package domain

import "errors"

// Field identifies which piece of order data a validation failure refers to.
type Field string

const (
	FieldDozens      Field = "dozens"
	FieldEggType     Field = "egg_type"
	FieldDeliveryDay Field = "delivery_day"
	FieldMethod      Field = "method"
	FieldAddress     Field = "address"
)

// FieldError is an expected, user-correctable validation failure. The
// conversation layer turns it into a re-prompt; it never surfaces as an
// internal error.
type FieldError struct {
	Field  Field
	Reason string
}

func (e *FieldError) Error() string {
	return "validation failed for " + string(e.Field) + ": " + e.Reason
}

// ErrStructuralMismatch signals corrupted draft state (parallel arrays
// missing, empty, or of unequal length). Unlike a FieldError it cannot be
// fixed by re-asking one field; the flow must restart.
var ErrStructuralMismatch = errors.New("order draft arrays missing, empty, or mismatched")
