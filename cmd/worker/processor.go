package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/ovofacil/orderbot/internal/awsx"
	"github.com/ovofacil/orderbot/internal/domain"
	"github.com/ovofacil/orderbot/internal/store"
)

// OrderFetcher is the slice of the order store the worker needs.
type OrderFetcher interface {
	Get(ctx context.Context, orderID string) (*domain.Order, error)
}

// MetricsEmitter counts delivered notifications.
type MetricsEmitter interface {
	Count(ctx context.Context, name string, value float64) error
}

// Processor consumes confirmed-order events and dispatches the client
// notification for each one.
type Processor struct {
	orders  OrderFetcher
	metrics MetricsEmitter
	log     *zap.Logger
}

// NewProcessor creates a worker processor with AWS clients injected.
func NewProcessor(clients *awsx.Clients, ordersTable, namespace string, logger *zap.Logger) *Processor {
	return &Processor{
		orders:  store.NewOrders(clients.DynamoDB, ordersTable, "", 0),
		metrics: awsx.NewMetrics(clients.CloudWatch, namespace),
		log:     logger,
	}
}

// Handle receives an SQS batch event and processes each message. A failed
// message fails the batch so the runtime retries it; repeated failures land
// in the DLQ.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Error("notification failed", zap.String("message_id", rec.MessageId), zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var ev awsx.OrderConfirmedEvent
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	order, err := p.orders.Get(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("fetch order %s: %w", ev.OrderID, err)
	}
	if order == nil {
		// Confirmed orders are written before the event is published, so a
		// missing one is for the DLQ.
		return fmt.Errorf("order not found: %s", ev.OrderID)
	}

	p.log.Info("order confirmation notification dispatched",
		zap.String("order_id", order.OrderID),
		zap.String("client_id", order.ClientID),
		zap.Int("total_dozens", order.TotalDozens),
		zap.Int64("total_centavos", int64(order.Total)),
		zap.Time("delivery_date", order.DeliveryDate),
	)

	if err := p.metrics.Count(ctx, awsx.MetricNotificationsSent, 1); err != nil {
		p.log.Warn("metric emit failed", zap.Error(err))
	}
	return nil
}
