package conversation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ovofacil/orderbot/internal/awsx"
	"github.com/ovofacil/orderbot/internal/domain"
	"github.com/ovofacil/orderbot/internal/pricing"
	"github.com/ovofacil/orderbot/internal/session"
	"github.com/ovofacil/orderbot/internal/store"
)

// In-memory collaborators mirroring the DynamoDB-backed stores closely
// enough for turn-level tests: slot reads consume lifespan, confirmed
// creation is keyed, status updates are conditional.

type fakeSlots struct {
	slots map[string]*session.Slot
	err   error
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{slots: map[string]*session.Slot{}}
}

func slotKey(clientID, slotName string) string { return clientID + "|" + slotName }

func (f *fakeSlots) Get(ctx context.Context, clientID, slotName string) (*session.Slot, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.slots[slotKey(clientID, slotName)]
	if !ok {
		return nil, nil
	}
	if s.Lifespan <= 0 {
		delete(f.slots, slotKey(clientID, slotName))
		return nil, nil
	}
	out := *s
	s.Lifespan--
	return &out, nil
}

func (f *fakeSlots) Put(ctx context.Context, clientID, slotName, payload string, lifespan int) error {
	if f.err != nil {
		return f.err
	}
	f.slots[slotKey(clientID, slotName)] = &session.Slot{
		ClientID: clientID,
		SlotName: slotName,
		Payload:  payload,
		Lifespan: lifespan,
	}
	return nil
}

func (f *fakeSlots) Clear(ctx context.Context, clientID, slotName string) error {
	delete(f.slots, slotKey(clientID, slotName))
	return nil
}

// stored returns the live slot record, nil if retired.
func (f *fakeSlots) stored(clientID, slotName string) *session.Slot {
	return f.slots[slotKey(clientID, slotName)]
}

type fakeOrders struct {
	orders      map[string]domain.Order
	confirmKeys map[string]string // confirm key -> order id
	createErr   error
	listErr     error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		orders:      map[string]domain.Order{},
		confirmKeys: map[string]string{},
	}
}

func (f *fakeOrders) CreateConfirmed(ctx context.Context, order domain.Order, confirmKey string) (string, bool, error) {
	if f.createErr != nil {
		return "", false, f.createErr
	}
	if existing, ok := f.confirmKeys[confirmKey]; ok {
		return existing, false, nil
	}
	f.orders[order.OrderID] = order
	f.confirmKeys[confirmKey] = order.OrderID
	return order.OrderID, true, nil
}

func (f *fakeOrders) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	out := o
	return &out, nil
}

func (f *fakeOrders) ListPendingByClient(ctx context.Context, clientID string) ([]domain.Order, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Order
	for _, o := range f.orders {
		if o.ClientID == clientID && o.DeliveryStatus == domain.StatusPending {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreationDate.Before(out[j].CreationDate) })
	return out, nil
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error {
	o, ok := f.orders[orderID]
	if !ok || o.DeliveryStatus != expectedStatus {
		return store.ErrStatusMismatch
	}
	o.DeliveryStatus = newStatus
	f.orders[orderID] = o
	return nil
}

type fakeClients struct {
	profiles  map[string]domain.ClientProfile
	saveCalls int
	saveErr   error
}

func newFakeClients() *fakeClients {
	return &fakeClients{profiles: map[string]domain.ClientProfile{}}
}

func (f *fakeClients) Get(ctx context.Context, clientID string) (*domain.ClientProfile, error) {
	p, ok := f.profiles[clientID]
	if !ok {
		return nil, nil
	}
	out := p
	return &out, nil
}

func (f *fakeClients) SaveAddress(ctx context.Context, clientID string, addr domain.Address, isUpdate bool) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saveCalls++
	f.profiles[clientID] = domain.ClientProfile{ClientID: clientID, ShippingAddress: addr}
	return nil
}

type fakeConfig struct {
	cfg pricing.Config
	err error
}

func (f *fakeConfig) GetPricing(ctx context.Context) (pricing.Config, error) {
	if f.err != nil {
		return pricing.Config{}, f.err
	}
	return f.cfg, nil
}

type fakePublisher struct {
	events []awsx.OrderConfirmedEvent
	err    error
}

func (f *fakePublisher) PublishOrderConfirmed(ctx context.Context, ev awsx.OrderConfirmedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

type fakeMetrics struct {
	counts map[string]float64
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{counts: map[string]float64{}} }

func (f *fakeMetrics) Count(ctx context.Context, name string, value float64) error {
	f.counts[name] += value
	return nil
}

type fixture struct {
	engine    *Engine
	slots     *fakeSlots
	orders    *fakeOrders
	clients   *fakeClients
	config    *fakeConfig
	publisher *fakePublisher
	metrics   *fakeMetrics
	now       time.Time
}

func newFixture() *fixture {
	f := &fixture{
		slots:   newFakeSlots(),
		orders:  newFakeOrders(),
		clients: newFakeClients(),
		config: &fakeConfig{cfg: pricing.Config{
			ExtraValue:        1000,
			JumboValue:        1200,
			FreeShippingDozen: 10,
			ShippingValue:     500,
		}},
		publisher: &fakePublisher{},
		metrics:   newFakeMetrics(),
		// A Monday at noon in Brazil.
		now: time.Date(2026, time.August, 31, 12, 0, 0, 0, time.FixedZone("BRT", -3*60*60)),
	}
	f.engine = NewEngine(Deps{
		Slots:     f.slots,
		Orders:    f.orders,
		Clients:   f.clients,
		Config:    f.config,
		Publisher: f.publisher,
		Metrics:   f.metrics,
		NowFunc:   func() time.Time { return f.now },
	})
	return f
}

// withStoredAddress seeds a client profile so orders finalize without the
// address prompt.
func (f *fixture) withStoredAddress(clientID string) domain.Address {
	addr := domain.Address{StreetAddress: "Rua das Flores, 10", City: "São Paulo"}
	f.clients.profiles[clientID] = domain.ClientProfile{ClientID: clientID, ShippingAddress: addr}
	return addr
}

var errBoom = errors.New("boom")

func intPtr(n int) *int { return &n }
