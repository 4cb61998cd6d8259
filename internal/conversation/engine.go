// Package conversation implements the turn engine: order intake with its
// per-field correction cascade, address resolution, the pending order
// lifecycle (confirmation, editing, cancellation) and the pending-order
// listing. Each exported Handle method is one conversational turn; it reads
// and writes session slots, talks to the document store, and returns the
// outbound messages for the dispatch layer to deliver.
package conversation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ovofacil/orderbot/internal/awsx"
	"github.com/ovofacil/orderbot/internal/domain"
	"github.com/ovofacil/orderbot/internal/pricing"
	"github.com/ovofacil/orderbot/internal/session"
)

// SlotStore is the session-state repository. Get consumes one turn of the
// slot's lifespan; Clear retires it.
type SlotStore interface {
	Get(ctx context.Context, clientID, slotName string) (*session.Slot, error)
	Put(ctx context.Context, clientID, slotName, payload string, lifespan int) error
	Clear(ctx context.Context, clientID, slotName string) error
}

// OrderStore is the orders collection.
type OrderStore interface {
	CreateConfirmed(ctx context.Context, order domain.Order, confirmKey string) (orderID string, created bool, err error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	ListPendingByClient(ctx context.Context, clientID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error
}

// ClientStore is the client-profile collection.
type ClientStore interface {
	Get(ctx context.Context, clientID string) (*domain.ClientProfile, error)
	SaveAddress(ctx context.Context, clientID string, addr domain.Address, isUpdate bool) error
}

// ConfigStore fetches the pricing configuration.
type ConfigStore interface {
	GetPricing(ctx context.Context) (pricing.Config, error)
}

// EventPublisher emits the confirmed-order event for the notification worker.
type EventPublisher interface {
	PublishOrderConfirmed(ctx context.Context, ev awsx.OrderConfirmedEvent) error
}

// MetricsEmitter counts order lifecycle events.
type MetricsEmitter interface {
	Count(ctx context.Context, name string, value float64) error
}

// Deps groups the engine's collaborators.
type Deps struct {
	Slots     SlotStore
	Orders    OrderStore
	Clients   ClientStore
	Config    ConfigStore
	Publisher EventPublisher
	Metrics   MetricsEmitter
	Logger    *zap.Logger
	NowFunc   func() time.Time
}

// Engine drives one conversational turn at a time. It holds no per-turn
// state: everything flows through the slot store and the document store.
type Engine struct {
	slots     SlotStore
	orders    OrderStore
	clients   ClientStore
	config    ConfigStore
	publisher EventPublisher
	metrics   MetricsEmitter
	log       *zap.Logger
	nowFunc   func() time.Time
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(d Deps) *Engine {
	if d.NowFunc == nil {
		d.NowFunc = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Engine{
		slots:     d.Slots,
		orders:    d.Orders,
		clients:   d.Clients,
		config:    d.Config,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		log:       d.Logger,
		nowFunc:   d.NowFunc,
	}
}

// Params carries the structured, already-parsed parameters of one turn. The
// NLU layer owns extraction; nothing here is trusted until the validation
// pipeline has seen it.
type Params struct {
	Dozens       []int           `json:"dozens,omitempty"`
	EggTypes     []string        `json:"egg_types,omitempty"`
	DeliveryDay  *int            `json:"delivery_day,omitempty"`
	Method       *int            `json:"method,omitempty"`
	Address      *domain.Address `json:"address,omitempty"`
	Confirmation string          `json:"confirmation,omitempty"`
	EditAction   string          `json:"edit_action,omitempty"`
	ItemAction   string          `json:"item_action,omitempty"`
	Selection    *int            `json:"selection,omitempty"`
	Quantity     *int            `json:"quantity,omitempty"`
	EggType      string          `json:"egg_type,omitempty"`
}

// TurnRequest is one inbound conversational turn.
type TurnRequest struct {
	Intent   string `json:"intent" validate:"required"`
	ClientID string `json:"client_id" validate:"required"`
	Params   Params `json:"parameters"`
}

// Reply collects the outbound messages of one turn.
type Reply struct {
	Messages []string `json:"messages"`
}

// Say appends an outbound message.
func (r *Reply) Say(msg string) {
	r.Messages = append(r.Messages, msg)
}

// guard is the single outer boundary of an entry point. Expected failures
// were already answered inside the handler; anything that reaches here is a
// collaborator failure. It guarantees exactly one user-visible message and
// retires the touched slot so the client is never stuck in a dead state, and
// hands the error back up for transport-level logging.
func (e *Engine) guard(ctx context.Context, clientID, slotName string, reply *Reply, err error) error {
	if err == nil {
		return nil
	}
	e.log.Error("turn failed",
		zap.String("client_id", clientID),
		zap.String("slot", slotName),
		zap.Error(err),
	)
	if len(reply.Messages) == 0 {
		reply.Say(msgInternalProblem)
	}
	if slotName != "" {
		if clearErr := e.slots.Clear(ctx, clientID, slotName); clearErr != nil {
			e.log.Error("failed to retire slot after error",
				zap.String("client_id", clientID),
				zap.String("slot", slotName),
				zap.Error(clearErr),
			)
		}
	}
	return err
}
