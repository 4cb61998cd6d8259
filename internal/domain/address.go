package domain

import "strings"

// Address is the structured shipping address supplied by the dispatch layer.
// Equality between two addresses is value equality on the struct.
type Address struct {
	BusinessName  string `json:"business_name,omitempty" dynamodbav:"business_name,omitempty"`
	StreetAddress string `json:"street_address" dynamodbav:"street_address"`
	City          string `json:"city,omitempty" dynamodbav:"city,omitempty"`
	AdminArea     string `json:"admin_area,omitempty" dynamodbav:"admin_area,omitempty"`
	ZipCode       string `json:"zip_code,omitempty" dynamodbav:"zip_code,omitempty"`
	Country       string `json:"country,omitempty" dynamodbav:"country,omitempty"`
}

// IsZero reports whether no address data is present at all.
func (a Address) IsZero() bool {
	return a == Address{}
}

// ValidateAddress requires a structured address with at least a street line.
// A bare or blank address fails.
func ValidateAddress(a Address) (Address, *FieldError) {
	if strings.TrimSpace(a.StreetAddress) == "" {
		return Address{}, &FieldError{Field: FieldAddress, Reason: "address missing or not a structured object"}
	}
	return a, nil
}

// Format renders the address as a single line for outbound messages,
// skipping absent parts.
func (a Address) Format() string {
	cityArea := a.City
	if a.AdminArea != "" {
		if cityArea != "" {
			cityArea += " - " + a.AdminArea
		} else {
			cityArea = a.AdminArea
		}
	}
	parts := make([]string, 0, 5)
	for _, p := range []string{a.BusinessName, a.StreetAddress, cityArea} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if a.ZipCode != "" {
		parts = append(parts, "CEP "+a.ZipCode)
	}
	if a.Country != "" {
		parts = append(parts, a.Country)
	}
	return strings.Join(parts, ", ")
}
