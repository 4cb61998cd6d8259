package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ovofacil/orderbot/internal/awsx"
	"github.com/ovofacil/orderbot/internal/conversation"
	"github.com/ovofacil/orderbot/internal/session"
	"github.com/ovofacil/orderbot/internal/store"
	"github.com/ovofacil/orderbot/internal/validation"
)

// HandlerConfig groups dependencies for the webhook handler.
type HandlerConfig struct {
	DynamoDBClient   awsx.DynamoDBAPI
	SQSClient        awsx.SQSAPI
	CloudWatchClient awsx.CloudWatchAPI
	SessionsTable    string
	OrdersTable      string
	ConfirmTable     string
	ClientsTable     string
	ConfigTable      string
	QueueURL         string
	MetricsNamespace string
	TTLWindow        time.Duration
	Logger           *zap.Logger
	NowFunc          func() time.Time
}

type turnHandler func(ctx context.Context, req conversation.TurnRequest) (*conversation.Reply, error)

// RegisterWebhookRoutes wires the conversation engine behind POST /webhook.
// Every known intent maps to one engine entry point; the response is always
// 200 with the outbound messages, because a delivery channel retrying on 5xx
// would replay the client's turn.
func RegisterWebhookRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := conversation.NewEngine(conversation.Deps{
		Slots:     session.NewStore(cfg.DynamoDBClient, cfg.SessionsTable, cfg.TTLWindow),
		Orders:    store.NewOrders(cfg.DynamoDBClient, cfg.OrdersTable, cfg.ConfirmTable, cfg.TTLWindow),
		Clients:   store.NewClients(cfg.DynamoDBClient, cfg.ClientsTable),
		Config:    store.NewConfig(cfg.DynamoDBClient, cfg.ConfigTable),
		Publisher: awsx.NewPublisher(cfg.SQSClient, cfg.QueueURL),
		Metrics:   awsx.NewMetrics(cfg.CloudWatchClient, cfg.MetricsNamespace),
		Logger:    logger,
		NowFunc:   cfg.NowFunc,
	})

	routes := map[string]turnHandler{
		"order":                    engine.HandleOrder,
		"order.address":            engine.HandleAddress,
		"order.corrected.dozens":   engine.HandleCorrectedDozens,
		"order.corrected.eggtype":  engine.HandleCorrectedEggType,
		"order.corrected.day":      engine.HandleCorrectedDeliveryDay,
		"order.corrected.method":   engine.HandleCorrectedMethod,
		"order.confirmation":       engine.HandleConfirmation,
		"order.edit":               engine.HandleEditAction,
		"order.edit.date":          engine.HandleEditDate,
		"order.edit.method":        engine.HandleEditMethod,
		"order.edit.address":       engine.HandleEditAddress,
		"order.edit.item":          engine.HandleChooseItem,
		"order.edit.item.action":   engine.HandleItemAction,
		"order.edit.item.quantity": engine.HandleEditItemQuantity,
		"order.edit.item.type":     engine.HandleEditItemType,
		"orders.my":                engine.HandleMyOrders,
		"orders.cancel":            engine.HandleCancelRequest,
		"orders.cancel.select":     engine.HandleCancelSelection,
	}

	r.POST("/webhook", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req conversation.TurnRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		handle, ok := routes[req.Intent]
		if !ok {
			logger.Warn("unknown intent",
				zap.String("intent", req.Intent),
				zap.String("client_id", req.ClientID),
			)
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_intent", "intent": req.Intent})
			return
		}

		reply, err := handle(ctx, req)
		if err != nil {
			logger.Error("turn handler failed",
				zap.String("intent", req.Intent),
				zap.String("client_id", req.ClientID),
				zap.Error(err),
			)
		}

		c.JSON(http.StatusOK, reply)
	})
}
