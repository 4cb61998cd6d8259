package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/ovofacil/orderbot/internal/domain"
)

// Slot names. At most one correction slot is alive per client at a time:
// every transition clears the current slot before arming the next.
const (
	slotDozens      = "awaiting_valid_dozens"
	slotEggType     = "awaiting_valid_egg_type"
	slotDeliveryDay = "awaiting_valid_delivery_day"
	slotMethod      = "awaiting_valid_method"
	slotAddress     = "awaiting_address_for_order"
	slotConfirm     = "awaiting_order_confirmation"
	slotEdit        = "awaiting_order_edit"
	slotEditDate    = "awaiting_order_edit_date"
	slotEditMethod  = "awaiting_order_edit_method"
	slotEditAddress = "awaiting_order_edit_address"
	slotEditItem    = "awaiting_order_edit_item"
	slotItemAction  = "awaiting_order_item_action"
	slotItemQty     = "awaiting_item_quantity"
	slotItemType    = "awaiting_item_type"
	slotCancel      = "awaiting_cancel_order_selection"
)

// Slot lifespans in remaining turns.
const (
	correctionLifespan = 2
	confirmLifespan    = 2
	repromptLifespan   = 5
	editLifespan       = 5
	cancelLifespan     = 2
)

// confirmPayload rides in the confirmation and edit slots: the priced,
// not-yet-persisted order plus the key that makes its eventual persistence
// idempotent. ItemIndex is only meaningful in the item-edit slots.
type confirmPayload struct {
	Order      domain.Order `json:"order"`
	ConfirmKey string       `json:"confirm_key"`
	ItemIndex  int          `json:"item_index,omitempty"`
}

// cancelPayload rides in the cancellation slot: the ordered id list shown to
// the client, index 0 being option 1.
type cancelPayload struct {
	OrderIDs []string `json:"order_ids"`
}

func marshalPayload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal slot payload: %w", err)
	}
	return string(b), nil
}

func unmarshalPayload(payload string, v any) error {
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("unmarshal slot payload: %w", err)
	}
	return nil
}
