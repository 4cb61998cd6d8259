package conversation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovofacil/orderbot/internal/awsx"
)

// HandleConfirmation consumes the confirmation slot: the client is answering
// the order summary with Confirmar, Editar or Cancelar. Confirming persists
// the parked order exactly once, keyed by the confirmation key minted when
// the order was parked.
func (e *Engine) HandleConfirmation(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleConfirmation(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, slotConfirm, reply, err)
}

func (e *Engine) handleConfirmation(ctx context.Context, req TurnRequest, reply *Reply) error {
	slot, err := e.slots.Get(ctx, req.ClientID, slotConfirm)
	if err != nil {
		return err
	}
	if slot == nil {
		reply.Say(msgLostPendingOrder)
		return e.slots.Clear(ctx, req.ClientID, slotConfirm)
	}

	var parked confirmPayload
	if err := unmarshalPayload(slot.Payload, &parked); err != nil {
		e.log.Warn("unreadable confirmation slot payload", zap.String("client_id", req.ClientID))
		reply.Say(msgLostPendingOrder)
		return e.slots.Clear(ctx, req.ClientID, slotConfirm)
	}

	switch strings.TrimSpace(req.Params.Confirmation) {
	case "Cancelar":
		reply.Say(msgOrderCancelled)
		return e.slots.Clear(ctx, req.ClientID, slotConfirm)

	case "Editar":
		if err := e.slots.Clear(ctx, req.ClientID, slotConfirm); err != nil {
			return err
		}
		payload, err := marshalPayload(parked)
		if err != nil {
			return err
		}
		if err := e.slots.Put(ctx, req.ClientID, slotEdit, payload, editLifespan); err != nil {
			return err
		}
		reply.Say(msgEditMenu)
		return nil

	case "Confirmar":
		return e.confirmOrder(ctx, req.ClientID, reply, parked)
	}

	// Anything else re-prompts with the parked order untouched and a longer
	// lifespan so the client has room to answer.
	reply.Say(msgUnknownConfirm)
	return e.slots.Put(ctx, req.ClientID, slotConfirm, slot.Payload, repromptLifespan)
}

func (e *Engine) confirmOrder(ctx context.Context, clientID string, reply *Reply, parked confirmPayload) error {
	order := parked.Order
	order.OrderID = uuid.NewString()

	orderID, created, err := e.orders.CreateConfirmed(ctx, order, parked.ConfirmKey)
	if err != nil {
		return err
	}
	if !created {
		e.log.Info("order confirmation replayed",
			zap.String("client_id", clientID),
			zap.String("order_id", orderID),
		)
	}
	reply.Say(msgOrderConfirmed(orderID))

	if err := e.slots.Clear(ctx, clientID, slotConfirm); err != nil {
		return err
	}

	// Notification and metrics are best effort: the order is already saved
	// and the client already has the id.
	if created && e.publisher != nil {
		ev := awsx.OrderConfirmedEvent{OrderID: orderID, ClientID: clientID}
		if err := e.publisher.PublishOrderConfirmed(ctx, ev); err != nil {
			e.log.Warn("confirmed-order event not published",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
		}
	}
	if created && e.metrics != nil {
		if err := e.metrics.Count(ctx, awsx.MetricOrdersConfirmed, 1); err != nil {
			e.log.Warn("metric emit failed", zap.Error(err))
		}
	}
	return nil
}
