package conversation

import "context"

// HandleMyOrders replies with the client's pending orders. Read-only: no
// slot is armed or consumed.
func (e *Engine) HandleMyOrders(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleMyOrders(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, "", reply, err)
}

func (e *Engine) handleMyOrders(ctx context.Context, req TurnRequest, reply *Reply) error {
	pending, err := e.orders.ListPendingByClient(ctx, req.ClientID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		reply.Say(msgNoPendingOrders)
		return nil
	}
	reply.Say(pendingOrdersList(pending))
	return nil
}
