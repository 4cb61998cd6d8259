package conversation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovofacil/orderbot/internal/domain"
	"github.com/ovofacil/orderbot/internal/pricing"
	"github.com/ovofacil/orderbot/internal/schedule"
)

// loadParked reads and decodes an edit-stage slot. A missing or unreadable
// slot answers lostMsg and retires the slot; the caller stops on ok == false.
func (e *Engine) loadParked(ctx context.Context, clientID, slotName, lostMsg string, reply *Reply) (confirmPayload, bool, error) {
	var parked confirmPayload

	slot, err := e.slots.Get(ctx, clientID, slotName)
	if err != nil {
		return parked, false, err
	}
	if slot == nil {
		reply.Say(lostMsg)
		return parked, false, e.slots.Clear(ctx, clientID, slotName)
	}
	if err := unmarshalPayload(slot.Payload, &parked); err != nil {
		e.log.Warn("unreadable edit slot payload",
			zap.String("client_id", clientID), zap.String("slot", slotName))
		reply.Say(lostMsg)
		return parked, false, e.slots.Clear(ctx, clientID, slotName)
	}
	return parked, true, nil
}

// parkAgain writes the payload back into a slot, keeping the client inside
// the current edit stage for another attempt.
func (e *Engine) parkAgain(ctx context.Context, clientID, slotName string, parked confirmPayload, lifespan int) error {
	payload, err := marshalPayload(parked)
	if err != nil {
		return err
	}
	return e.slots.Put(ctx, clientID, slotName, payload, lifespan)
}

// backToConfirmation re-arms the confirmation slot with the edited order and
// replies with the refreshed summary. Any edit invalidates the previous
// confirmation key: the edited order gets a fresh one.
func (e *Engine) backToConfirmation(ctx context.Context, clientID string, reply *Reply, parked confirmPayload, lead string) error {
	parked.ConfirmKey = uuid.NewString()
	parked.ItemIndex = 0
	payload, err := marshalPayload(parked)
	if err != nil {
		return err
	}
	if err := e.slots.Put(ctx, clientID, slotConfirm, payload, repromptLifespan); err != nil {
		return err
	}
	reply.Say(lead)
	reply.Say(orderSummary(parked.Order))
	return nil
}

// HandleEditAction consumes the edit-menu slot: the client is choosing which
// part of the parked order to change.
func (e *Engine) HandleEditAction(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleEditAction(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, slotEdit, reply, err)
}

func (e *Engine) handleEditAction(ctx context.Context, req TurnRequest, reply *Reply) error {
	parked, ok, err := e.loadParked(ctx, req.ClientID, slotEdit, msgEditLost, reply)
	if !ok {
		return err
	}

	var next, prompt string
	switch strings.TrimSpace(req.Params.EditAction) {
	case "Data":
		next, prompt = slotEditDate, msgEditAskDay
	case "Método":
		next, prompt = slotEditMethod, msgEditAskMethod
	case "Endereço":
		next, prompt = slotEditAddress, msgEditAskAddress
	case "Item":
		if err := e.slots.Clear(ctx, req.ClientID, slotEdit); err != nil {
			return err
		}
		if err := e.parkAgain(ctx, req.ClientID, slotEditItem, parked, editLifespan); err != nil {
			return err
		}
		reply.Say(msgChooseItem(parked.Order.Items))
		return nil
	default:
		reply.Say(msgEditMenuInvalid)
		return e.parkAgain(ctx, req.ClientID, slotEdit, parked, editLifespan)
	}

	if err := e.slots.Clear(ctx, req.ClientID, slotEdit); err != nil {
		return err
	}
	if err := e.parkAgain(ctx, req.ClientID, next, parked, editLifespan); err != nil {
		return err
	}
	reply.Say(prompt)
	return nil
}

// HandleEditDate consumes the edit-date slot: a new delivery day code for the
// parked order.
func (e *Engine) HandleEditDate(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleEditDate(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, slotEditDate, reply, err)
}

func (e *Engine) handleEditDate(ctx context.Context, req TurnRequest, reply *Reply) error {
	parked, ok, err := e.loadParked(ctx, req.ClientID, slotEditDate, msgEditStageLost, reply)
	if !ok {
		return err
	}

	if req.Params.DeliveryDay == nil {
		reply.Say(msgEditAskDay)
		return e.parkAgain(ctx, req.ClientID, slotEditDate, parked, editLifespan)
	}
	day, ferr := domain.ParseDeliveryDay(*req.Params.DeliveryDay)
	if ferr != nil {
		reply.Say(msgEditInvalidDay)
		return e.parkAgain(ctx, req.ClientID, slotEditDate, parked, editLifespan)
	}

	parked.Order.DeliveryDate = schedule.NextDeliveryDate(day, e.nowFunc())

	if err := e.slots.Clear(ctx, req.ClientID, slotEditDate); err != nil {
		return err
	}
	return e.backToConfirmation(ctx, req.ClientID, reply, parked, msgDateUpdated)
}

// HandleEditMethod consumes the edit-method slot: a new payment method code
// for the parked order.
func (e *Engine) HandleEditMethod(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleEditMethod(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, slotEditMethod, reply, err)
}

func (e *Engine) handleEditMethod(ctx context.Context, req TurnRequest, reply *Reply) error {
	parked, ok, err := e.loadParked(ctx, req.ClientID, slotEditMethod, msgEditStageLost, reply)
	if !ok {
		return err
	}

	if req.Params.Method == nil {
		reply.Say(msgEditInvalidMethod)
		return e.parkAgain(ctx, req.ClientID, slotEditMethod, parked, editLifespan)
	}
	method, ferr := domain.ParsePaymentMethod(*req.Params.Method)
	if ferr != nil {
		reply.Say(msgEditInvalidMethod)
		return e.parkAgain(ctx, req.ClientID, slotEditMethod, parked, editLifespan)
	}

	parked.Order.PaymentMethod = method.String()

	if err := e.slots.Clear(ctx, req.ClientID, slotEditMethod); err != nil {
		return err
	}
	return e.backToConfirmation(ctx, req.ClientID, reply, parked, msgMethodUpdated(parked.Order.PaymentMethod))
}

// HandleEditAddress consumes the edit-address slot: a new shipping address
// for both the parked order and the client profile.
func (e *Engine) HandleEditAddress(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleEditAddress(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, slotEditAddress, reply, err)
}

func (e *Engine) handleEditAddress(ctx context.Context, req TurnRequest, reply *Reply) error {
	parked, ok, err := e.loadParked(ctx, req.ClientID, slotEditAddress, msgEditStageLost, reply)
	if !ok {
		return err
	}

	var addr domain.Address
	if req.Params.Address != nil {
		addr = *req.Params.Address
	}
	valid, ferr := domain.ValidateAddress(addr)
	if ferr != nil {
		reply.Say(msgEditAskAddress)
		return e.parkAgain(ctx, req.ClientID, slotEditAddress, parked, editLifespan)
	}

	parked.Order.ShippingAddress = valid
	if err := e.clients.SaveAddress(ctx, req.ClientID, valid, true); err != nil {
		return err
	}

	if err := e.slots.Clear(ctx, req.ClientID, slotEditAddress); err != nil {
		return err
	}
	return e.backToConfirmation(ctx, req.ClientID, reply, parked, msgAddressUpdated)
}

// HandleChooseItem consumes the item-choice slot: the client is picking
// which line item to edit by its number in the displayed list.
func (e *Engine) HandleChooseItem(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleChooseItem(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, slotEditItem, reply, err)
}

func (e *Engine) handleChooseItem(ctx context.Context, req TurnRequest, reply *Reply) error {
	parked, ok, err := e.loadParked(ctx, req.ClientID, slotEditItem, msgEditStageLost, reply)
	if !ok {
		return err
	}

	if req.Params.Selection == nil {
		reply.Say(msgChooseItem(parked.Order.Items))
		return e.parkAgain(ctx, req.ClientID, slotEditItem, parked, editLifespan)
	}
	n := *req.Params.Selection
	if n < 1 || n > len(parked.Order.Items) {
		reply.Say(msgInvalidItemNumber(parked.Order.Items))
		return e.parkAgain(ctx, req.ClientID, slotEditItem, parked, editLifespan)
	}

	parked.ItemIndex = n - 1

	if err := e.slots.Clear(ctx, req.ClientID, slotEditItem); err != nil {
		return err
	}
	if err := e.parkAgain(ctx, req.ClientID, slotItemAction, parked, editLifespan); err != nil {
		return err
	}
	reply.Say(msgItemChosen(n, parked.Order.Items[parked.ItemIndex]))
	return nil
}

// HandleItemAction consumes the item-action slot: change the chosen item's
// quantity or type, or remove it outright.
func (e *Engine) HandleItemAction(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleItemAction(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, slotItemAction, reply, err)
}

func (e *Engine) handleItemAction(ctx context.Context, req TurnRequest, reply *Reply) error {
	parked, ok, err := e.loadParked(ctx, req.ClientID, slotItemAction, msgItemLost, reply)
	if !ok {
		return err
	}
	if parked.ItemIndex < 0 || parked.ItemIndex >= len(parked.Order.Items) {
		e.log.Warn("item index out of range in item-action slot",
			zap.String("client_id", req.ClientID), zap.Int("item_index", parked.ItemIndex))
		reply.Say(msgItemLost)
		return e.slots.Clear(ctx, req.ClientID, slotItemAction)
	}

	var next, prompt string
	switch strings.TrimSpace(req.Params.ItemAction) {
	case "Quantidade":
		next, prompt = slotItemQty, msgAskItemQuantity
	case "Tipo":
		next, prompt = slotItemType, msgAskItemType
	case "Excluir":
		parked.Order.Items = append(parked.Order.Items[:parked.ItemIndex], parked.Order.Items[parked.ItemIndex+1:]...)
		if err := e.repriceParked(ctx, reply, &parked); err != nil {
			return err
		}
		if err := e.slots.Clear(ctx, req.ClientID, slotItemAction); err != nil {
			return err
		}
		return e.backToConfirmation(ctx, req.ClientID, reply, parked, msgItemRemoved)
	default:
		reply.Say(msgItemActionInvalid)
		return e.parkAgain(ctx, req.ClientID, slotItemAction, parked, editLifespan)
	}

	if err := e.slots.Clear(ctx, req.ClientID, slotItemAction); err != nil {
		return err
	}
	if err := e.parkAgain(ctx, req.ClientID, next, parked, editLifespan); err != nil {
		return err
	}
	reply.Say(prompt)
	return nil
}

// HandleEditItemQuantity consumes the item-quantity slot: a new dozen count
// for the chosen item, followed by a full reprice.
func (e *Engine) HandleEditItemQuantity(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleEditItemQuantity(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, slotItemQty, reply, err)
}

func (e *Engine) handleEditItemQuantity(ctx context.Context, req TurnRequest, reply *Reply) error {
	parked, ok, err := e.loadParked(ctx, req.ClientID, slotItemQty, msgItemLost, reply)
	if !ok {
		return err
	}
	if parked.ItemIndex < 0 || parked.ItemIndex >= len(parked.Order.Items) {
		reply.Say(msgItemLost)
		return e.slots.Clear(ctx, req.ClientID, slotItemQty)
	}

	if req.Params.Quantity == nil || *req.Params.Quantity <= 0 {
		reply.Say(msgInvalidItemQty)
		return e.parkAgain(ctx, req.ClientID, slotItemQty, parked, editLifespan)
	}
	qty := *req.Params.Quantity

	parked.Order.Items[parked.ItemIndex].Quantity = qty
	if err := e.repriceParked(ctx, reply, &parked); err != nil {
		return err
	}

	if err := e.slots.Clear(ctx, req.ClientID, slotItemQty); err != nil {
		return err
	}
	return e.backToConfirmation(ctx, req.ClientID, reply, parked, msgQuantityUpdated(qty))
}

// HandleEditItemType consumes the item-type slot: a new egg variant for the
// chosen item, followed by a full reprice.
func (e *Engine) HandleEditItemType(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleEditItemType(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, slotItemType, reply, err)
}

func (e *Engine) handleEditItemType(ctx context.Context, req TurnRequest, reply *Reply) error {
	parked, ok, err := e.loadParked(ctx, req.ClientID, slotItemType, msgItemLost, reply)
	if !ok {
		return err
	}
	if parked.ItemIndex < 0 || parked.ItemIndex >= len(parked.Order.Items) {
		reply.Say(msgItemLost)
		return e.slots.Clear(ctx, req.ClientID, slotItemType)
	}

	v, ferr := domain.ParseVariant(req.Params.EggType)
	if ferr != nil {
		reply.Say(msgInvalidItemType)
		return e.parkAgain(ctx, req.ClientID, slotItemType, parked, editLifespan)
	}

	parked.Order.Items[parked.ItemIndex].Variant = v
	if err := e.repriceParked(ctx, reply, &parked); err != nil {
		return err
	}

	if err := e.slots.Clear(ctx, req.ClientID, slotItemType); err != nil {
		return err
	}
	return e.backToConfirmation(ctx, req.ClientID, reply, parked, msgTypeUpdated(v))
}

// repriceParked refreshes every derived monetary field after an item change.
func (e *Engine) repriceParked(ctx context.Context, reply *Reply, parked *confirmPayload) error {
	cfg, err := e.config.GetPricing(ctx)
	if err != nil {
		reply.Say(msgConfigProblem)
		return err
	}
	return pricing.Reprice(&parked.Order, cfg)
}
