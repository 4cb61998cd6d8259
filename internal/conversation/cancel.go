package conversation

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ovofacil/orderbot/internal/awsx"
	"github.com/ovofacil/orderbot/internal/domain"
	"github.com/ovofacil/orderbot/internal/store"
)

// HandleCancelRequest lists the client's cancellable orders and arms the
// selection slot with their ids, index 0 being option 1.
func (e *Engine) HandleCancelRequest(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleCancelRequest(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, slotCancel, reply, err)
}

func (e *Engine) handleCancelRequest(ctx context.Context, req TurnRequest, reply *Reply) error {
	pending, err := e.orders.ListPendingByClient(ctx, req.ClientID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		reply.Say(msgNoCancellable)
		return e.slots.Clear(ctx, req.ClientID, slotCancel)
	}

	ids := make([]string, len(pending))
	for i, o := range pending {
		ids[i] = o.OrderID
	}
	payload, err := marshalPayload(cancelPayload{OrderIDs: ids})
	if err != nil {
		return err
	}
	if err := e.slots.Put(ctx, req.ClientID, slotCancel, payload, cancelLifespan); err != nil {
		return err
	}

	reply.Say(cancellableOrdersList(pending))
	return nil
}

// HandleCancelSelection consumes the selection slot: a number from the list
// shown by HandleCancelRequest. The order's status is re-checked at the
// moment of cancellation, and the conditional update loses gracefully when
// something else already changed it.
func (e *Engine) HandleCancelSelection(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleCancelSelection(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, slotCancel, reply, err)
}

func (e *Engine) handleCancelSelection(ctx context.Context, req TurnRequest, reply *Reply) error {
	slot, err := e.slots.Get(ctx, req.ClientID, slotCancel)
	if err != nil {
		return err
	}
	if slot == nil {
		reply.Say(msgCancelLostList)
		return e.slots.Clear(ctx, req.ClientID, slotCancel)
	}

	var parked cancelPayload
	if err := unmarshalPayload(slot.Payload, &parked); err != nil || len(parked.OrderIDs) == 0 {
		e.log.Warn("unusable cancellation slot payload", zap.String("client_id", req.ClientID))
		reply.Say(msgCancelLostList)
		return e.slots.Clear(ctx, req.ClientID, slotCancel)
	}

	// Not a usable number: keep the list armed and ask again.
	if req.Params.Selection == nil || *req.Params.Selection <= 0 {
		reply.Say(msgCancelAskNumber)
		return e.slots.Put(ctx, req.ClientID, slotCancel, slot.Payload, cancelLifespan)
	}
	n := *req.Params.Selection
	if n > len(parked.OrderIDs) {
		reply.Say(msgChooseInRange(len(parked.OrderIDs)))
		return e.slots.Put(ctx, req.ClientID, slotCancel, slot.Payload, cancelLifespan)
	}

	orderID := parked.OrderIDs[n-1]
	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil || order.DeliveryStatus != domain.StatusPending {
		reply.Say(msgNoLongerPending)
		return e.slots.Clear(ctx, req.ClientID, slotCancel)
	}

	err = e.orders.UpdateStatus(ctx, orderID, domain.StatusPending, domain.StatusCancelled)
	if errors.Is(err, store.ErrStatusMismatch) {
		reply.Say(msgNoLongerPending)
		return e.slots.Clear(ctx, req.ClientID, slotCancel)
	}
	if err != nil {
		return err
	}

	e.log.Info("order cancelled",
		zap.String("client_id", req.ClientID),
		zap.String("order_id", orderID),
	)
	reply.Say(msgOrderCancelledByID(orderID))
	if e.metrics != nil {
		if err := e.metrics.Count(ctx, awsx.MetricOrdersCancelled, 1); err != nil {
			e.log.Warn("metric emit failed", zap.Error(err))
		}
	}
	return e.slots.Clear(ctx, req.ClientID, slotCancel)
}
