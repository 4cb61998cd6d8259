package validation

import (
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/ovofacil/orderbot/internal/conversation"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// register struct-level validation for TurnRequest: required tags accept
	// whitespace-only values, and client ids key every table.
	v.RegisterStructValidation(turnRequestStructValidation, conversation.TurnRequest{})

	return v
}

func turnRequestStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(conversation.TurnRequest)

	if strings.TrimSpace(req.ClientID) == "" {
		sl.ReportError(req.ClientID, "client_id", "ClientID", "not_blank", "")
	}
	if strings.TrimSpace(req.Intent) == "" {
		sl.ReportError(req.Intent, "intent", "Intent", "not_blank", "")
	}
}
