package domain

// OrderDraft is the in-flight, not yet validated order carried across
// correction turns inside a session slot. Quantities and Variants are
// parallel arrays indexed by line item; fields not yet collected stay nil.
type OrderDraft struct {
	ClientID   string   `json:"client_id"`
	Quantities []int    `json:"quantities,omitempty"`
	Variants   []string `json:"variants,omitempty"`
	DayCode    *int     `json:"day_code,omitempty"`
	MethodCode *int     `json:"method_code,omitempty"`
}

// CheckStructure enforces the parallel-array invariant: when both arrays are
// present they must be of equal length. A draft with one array still missing
// (cleared for correction) is structurally fine; a length mismatch means the
// draft is corrupted, not that one field needs correcting.
func (d *OrderDraft) CheckStructure() error {
	if d.Quantities == nil || d.Variants == nil {
		return nil
	}
	if len(d.Quantities) != len(d.Variants) {
		return ErrStructuralMismatch
	}
	return nil
}
