package conversation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovofacil/orderbot/internal/domain"
	"github.com/ovofacil/orderbot/internal/pricing"
	"github.com/ovofacil/orderbot/internal/schedule"
)

// continueAfterValidation takes over once every order field is valid. It
// resolves the shipping address (stored profile, supplied value, or a prompt
// for one) and, with an address in hand, prices the order and parks it for
// confirmation.
func (e *Engine) continueAfterValidation(ctx context.Context, reply *Reply, draft *domain.OrderDraft, supplied *domain.Address) error {
	addr, needsPrompt, err := e.resolveAddress(ctx, draft.ClientID, supplied)
	if err != nil {
		return err
	}
	if needsPrompt {
		payload, err := marshalPayload(draft)
		if err != nil {
			return err
		}
		if err := e.slots.Put(ctx, draft.ClientID, slotAddress, payload, correctionLifespan); err != nil {
			return err
		}
		reply.Say(msgAskAddress)
		return nil
	}
	return e.buildPendingOrder(ctx, reply, draft, addr)
}

// resolveAddress decides the shipping address for this order. A supplied
// address always wins and is written back to the client profile when it
// differs from the stored one; with nothing supplied and nothing stored the
// caller must prompt.
func (e *Engine) resolveAddress(ctx context.Context, clientID string, supplied *domain.Address) (domain.Address, bool, error) {
	profile, err := e.clients.Get(ctx, clientID)
	if err != nil {
		return domain.Address{}, false, fmt.Errorf("load client profile: %w", err)
	}

	var stored domain.Address
	if profile != nil {
		stored = profile.ShippingAddress
	}

	if supplied == nil || supplied.IsZero() {
		if stored.IsZero() {
			return domain.Address{}, true, nil
		}
		return stored, false, nil
	}

	if *supplied != stored {
		isUpdate := profile != nil
		if err := e.clients.SaveAddress(ctx, clientID, *supplied, isUpdate); err != nil {
			return domain.Address{}, false, fmt.Errorf("save client address: %w", err)
		}
		e.log.Info("client address saved",
			zap.String("client_id", clientID),
			zap.Bool("update", isUpdate),
		)
	}
	return *supplied, false, nil
}

// buildPendingOrder prices the validated draft, parks the resulting order in
// the confirmation slot together with a fresh confirmation key, and replies
// with the order summary.
func (e *Engine) buildPendingOrder(ctx context.Context, reply *Reply, draft *domain.OrderDraft, addr domain.Address) error {
	cfg, err := e.config.GetPricing(ctx)
	if err != nil {
		reply.Say(msgConfigProblem)
		return fmt.Errorf("load pricing configuration: %w", err)
	}

	variants, ferr := domain.ParseVariants(draft.Variants)
	if ferr != nil {
		return fmt.Errorf("pricing a draft with invalid variants: %s", ferr.Reason)
	}
	totals, err := pricing.PriceItems(draft.Quantities, variants, cfg)
	if err != nil {
		return fmt.Errorf("price order items: %w", err)
	}

	day, ferr := domain.ParseDeliveryDay(*draft.DayCode)
	if ferr != nil {
		return fmt.Errorf("pricing a draft with invalid delivery day: %s", ferr.Reason)
	}
	method, ferr := domain.ParsePaymentMethod(*draft.MethodCode)
	if ferr != nil {
		return fmt.Errorf("pricing a draft with invalid payment method: %s", ferr.Reason)
	}

	now := e.nowFunc()
	order := domain.Order{
		ClientID:        draft.ClientID,
		CreationDate:    now,
		DeliveryDate:    schedule.NextDeliveryDate(day, now),
		DeliveryStatus:  domain.StatusPending,
		Items:           totals.Items,
		TotalDozens:     totals.TotalDozens,
		PaymentMethod:   method.String(),
		ShippingAddress: addr,
		Subtotal:        totals.Subtotal,
		ShippingCost:    totals.ShippingCost,
		Total:           totals.Total,
	}

	payload, err := marshalPayload(confirmPayload{
		Order:      order,
		ConfirmKey: uuid.NewString(),
	})
	if err != nil {
		return err
	}
	if err := e.slots.Put(ctx, draft.ClientID, slotConfirm, payload, confirmLifespan); err != nil {
		return err
	}

	reply.Say(orderSummary(order))
	return nil
}

// HandleAddress consumes the address slot: the client was asked for a
// shipping address because the profile had none. The parked draft resumes
// from where the cascade left it.
func (e *Engine) HandleAddress(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleAddress(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, slotAddress, reply, err)
}

func (e *Engine) handleAddress(ctx context.Context, req TurnRequest, reply *Reply) error {
	slot, err := e.slots.Get(ctx, req.ClientID, slotAddress)
	if err != nil {
		return err
	}
	if slot == nil {
		reply.Say(msgLostSession)
		return e.slots.Clear(ctx, req.ClientID, slotAddress)
	}

	var addr domain.Address
	if req.Params.Address != nil {
		addr = *req.Params.Address
	}
	valid, ferr := domain.ValidateAddress(addr)
	if ferr != nil {
		e.log.Warn("unusable address supplied",
			zap.String("client_id", req.ClientID),
			zap.String("reason", ferr.Reason),
		)
		reply.Say(msgAddressProblem)
		return e.slots.Clear(ctx, req.ClientID, slotAddress)
	}

	var draft domain.OrderDraft
	if err := unmarshalPayload(slot.Payload, &draft); err != nil {
		e.log.Warn("unreadable address slot payload", zap.String("client_id", req.ClientID))
		reply.Say(msgLostSession)
		return e.slots.Clear(ctx, req.ClientID, slotAddress)
	}
	draft.ClientID = req.ClientID

	if err := draft.CheckStructure(); err != nil {
		e.log.Warn("corrupted draft in address slot", zap.String("client_id", req.ClientID))
		reply.Say(msgCorruptedOrder)
		return e.slots.Clear(ctx, req.ClientID, slotAddress)
	}

	if err := e.slots.Clear(ctx, req.ClientID, slotAddress); err != nil {
		return err
	}
	return e.continueAfterValidation(ctx, reply, &draft, &valid)
}
