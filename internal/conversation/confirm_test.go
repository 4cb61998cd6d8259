package conversation

import (
	"context"
	"strings"
	"testing"
)

// parkOrderForConfirmation drives a full valid intake so the confirmation
// slot holds a real priced order, and returns its payload.
func parkOrderForConfirmation(t *testing.T, f *fixture) confirmPayload {
	t.Helper()
	f.withStoredAddress(testClient)
	if _, err := f.engine.HandleOrder(context.Background(), orderRequest([]int{3, 2}, []string{"extra", "jumbo"}, 2, 1)); err != nil {
		t.Fatalf("intake error: %v", err)
	}
	slot := f.slots.stored(testClient, slotConfirm)
	if slot == nil {
		t.Fatalf("expected confirmation slot armed after intake")
	}
	var parked confirmPayload
	if err := unmarshalPayload(slot.Payload, &parked); err != nil {
		t.Fatalf("unmarshal confirmation payload: %v", err)
	}
	return parked
}

func confirmationRequest(answer string) TurnRequest {
	return TurnRequest{
		Intent:   "order.confirmation",
		ClientID: testClient,
		Params:   Params{Confirmation: answer},
	}
}

func TestConfirmation_ConfirmPersistsOrderOnce(t *testing.T) {
	f := newFixture()
	parkOrderForConfirmation(t, f)

	reply, err := f.engine.HandleConfirmation(context.Background(), confirmationRequest("Confirmar"))
	if err != nil {
		t.Fatalf("HandleConfirmation error: %v", err)
	}
	if len(reply.Messages) != 1 || !strings.Contains(reply.Messages[0], "confirmado e salvo com sucesso") {
		t.Fatalf("expected confirmed message, got %v", reply.Messages)
	}
	if len(f.orders.orders) != 1 {
		t.Fatalf("expected one persisted order, got %d", len(f.orders.orders))
	}
	for id, o := range f.orders.orders {
		if id == "" || o.OrderID != id {
			t.Fatalf("persisted order must carry its id, got %q / %+v", id, o)
		}
		if !strings.Contains(reply.Messages[0], id) {
			t.Fatalf("reply must name the order id %s, got %q", id, reply.Messages[0])
		}
	}
	if f.slots.stored(testClient, slotConfirm) != nil {
		t.Fatalf("confirmation slot must be retired")
	}
	if len(f.publisher.events) != 1 {
		t.Fatalf("expected one confirmed-order event, got %d", len(f.publisher.events))
	}
	if f.publisher.events[0].ClientID != testClient {
		t.Fatalf("event must carry the client id, got %+v", f.publisher.events[0])
	}
	if f.metrics.counts["OrdersConfirmed"] != 1 {
		t.Fatalf("expected one confirmation counted, got %v", f.metrics.counts)
	}
}

func TestConfirmation_ReplayedConfirmDoesNotDuplicate(t *testing.T) {
	f := newFixture()
	parkOrderForConfirmation(t, f)
	payload := f.slots.stored(testClient, slotConfirm).Payload

	first, err := f.engine.HandleConfirmation(context.Background(), confirmationRequest("Confirmar"))
	if err != nil {
		t.Fatalf("first confirm error: %v", err)
	}

	// The channel redelivers the same turn: the slot payload comes back
	// with the same confirmation key.
	if err := f.slots.Put(context.Background(), testClient, slotConfirm, payload, confirmLifespan); err != nil {
		t.Fatalf("re-arm slot: %v", err)
	}
	second, err := f.engine.HandleConfirmation(context.Background(), confirmationRequest("Confirmar"))
	if err != nil {
		t.Fatalf("second confirm error: %v", err)
	}

	if len(f.orders.orders) != 1 {
		t.Fatalf("replay must not create a second order, got %d", len(f.orders.orders))
	}
	if first.Messages[0] != second.Messages[0] {
		t.Fatalf("replay must report the original order id:\n%q\n%q", first.Messages[0], second.Messages[0])
	}
	if len(f.publisher.events) != 1 {
		t.Fatalf("replay must not publish again, got %d events", len(f.publisher.events))
	}
	if f.metrics.counts["OrdersConfirmed"] != 1 {
		t.Fatalf("replay must not count again, got %v", f.metrics.counts)
	}
}

func TestConfirmation_CancelDiscardsParkedOrder(t *testing.T) {
	f := newFixture()
	parkOrderForConfirmation(t, f)

	reply, err := f.engine.HandleConfirmation(context.Background(), confirmationRequest("Cancelar"))
	if err != nil {
		t.Fatalf("HandleConfirmation error: %v", err)
	}
	if len(reply.Messages) != 1 || reply.Messages[0] != msgOrderCancelled {
		t.Fatalf("expected cancel message, got %v", reply.Messages)
	}
	if len(f.orders.orders) != 0 {
		t.Fatalf("nothing may be persisted on cancel")
	}
	if f.slots.stored(testClient, slotConfirm) != nil {
		t.Fatalf("confirmation slot must be retired")
	}
}

func TestConfirmation_EditMovesOrderToEditMenu(t *testing.T) {
	f := newFixture()
	parked := parkOrderForConfirmation(t, f)

	reply, err := f.engine.HandleConfirmation(context.Background(), confirmationRequest("Editar"))
	if err != nil {
		t.Fatalf("HandleConfirmation error: %v", err)
	}
	if len(reply.Messages) != 1 || reply.Messages[0] != msgEditMenu {
		t.Fatalf("expected edit menu, got %v", reply.Messages)
	}
	if f.slots.stored(testClient, slotConfirm) != nil {
		t.Fatalf("confirmation slot must be retired")
	}

	editSlot := f.slots.stored(testClient, slotEdit)
	if editSlot == nil {
		t.Fatalf("edit slot must hold the parked order")
	}
	if editSlot.Lifespan != editLifespan {
		t.Fatalf("expected edit lifespan %d, got %d", editLifespan, editSlot.Lifespan)
	}
	var moved confirmPayload
	if err := unmarshalPayload(editSlot.Payload, &moved); err != nil {
		t.Fatalf("unmarshal edit payload: %v", err)
	}
	if moved.ConfirmKey != parked.ConfirmKey || moved.Order.Total != parked.Order.Total {
		t.Fatalf("edit slot must carry the same parked order")
	}
}

func TestConfirmation_UnknownAnswerReprompts(t *testing.T) {
	f := newFixture()
	parkOrderForConfirmation(t, f)

	reply, err := f.engine.HandleConfirmation(context.Background(), confirmationRequest("talvez"))
	if err != nil {
		t.Fatalf("HandleConfirmation error: %v", err)
	}
	if len(reply.Messages) != 1 || reply.Messages[0] != msgUnknownConfirm {
		t.Fatalf("expected re-prompt, got %v", reply.Messages)
	}

	slot := f.slots.stored(testClient, slotConfirm)
	if slot == nil {
		t.Fatalf("confirmation slot must stay armed")
	}
	if slot.Lifespan != repromptLifespan {
		t.Fatalf("re-prompt must extend the lifespan to %d, got %d", repromptLifespan, slot.Lifespan)
	}
}

func TestConfirmation_ExpiredSlotIsLostOrder(t *testing.T) {
	f := newFixture()

	reply, err := f.engine.HandleConfirmation(context.Background(), confirmationRequest("Confirmar"))
	if err != nil {
		t.Fatalf("HandleConfirmation error: %v", err)
	}
	if len(reply.Messages) != 1 || reply.Messages[0] != msgLostPendingOrder {
		t.Fatalf("expected lost-order message, got %v", reply.Messages)
	}
	if len(f.orders.orders) != 0 {
		t.Fatalf("nothing may be persisted without a parked order")
	}
}

func TestConfirmation_StoreFailureAnswersInternalProblem(t *testing.T) {
	f := newFixture()
	parkOrderForConfirmation(t, f)
	f.orders.createErr = errBoom

	reply, err := f.engine.HandleConfirmation(context.Background(), confirmationRequest("Confirmar"))
	if err == nil {
		t.Fatalf("expected error surfaced to transport")
	}
	if len(reply.Messages) != 1 || reply.Messages[0] != msgInternalProblem {
		t.Fatalf("expected internal-problem message, got %v", reply.Messages)
	}
	if f.slots.stored(testClient, slotConfirm) != nil {
		t.Fatalf("guard must retire the confirmation slot")
	}
}
