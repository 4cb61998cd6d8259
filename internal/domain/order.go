package domain

import "time"

// Delivery statuses persisted on orders.
const (
	StatusPending   = "Pendente"
	StatusCancelled = "Cancelado"
)

// LineItem is one (variant, quantity) pair plus its derived value.
// ItemValue is always unit price times quantity and is recomputed by the
// pricing engine whenever the item list changes.
type LineItem struct {
	Variant   Variant `json:"variant" dynamodbav:"variant"`
	Quantity  int     `json:"quantity" dynamodbav:"quantity"`
	ItemValue Money   `json:"item_value" dynamodbav:"item_value"`
}

// Order is the materialized order stored in the orders table. It is built
// from a fully validated draft and its monetary fields are owned by the
// pricing engine: subtotal == sum of item values and total == subtotal +
// shipping cost after every mutation.
type Order struct {
	OrderID         string     `json:"order_id,omitempty" dynamodbav:"order_id"` // PK, set at persistence
	ClientID        string     `json:"client_id" dynamodbav:"client_id"`
	CreationDate    time.Time  `json:"creation_date" dynamodbav:"creation_date"`
	DeliveryDate    time.Time  `json:"delivery_date" dynamodbav:"delivery_date"`
	DeliveryStatus  string     `json:"delivery_status" dynamodbav:"delivery_status"` // Pendente | Cancelado
	Items           []LineItem `json:"items" dynamodbav:"items"`
	TotalDozens     int        `json:"total_dozens" dynamodbav:"total_dozens"`
	PaymentMethod   string     `json:"payment_method" dynamodbav:"payment_method"`
	ShippingAddress Address    `json:"shipping_address" dynamodbav:"shipping_address"`
	Subtotal        Money      `json:"subtotal" dynamodbav:"subtotal"`
	ShippingCost    Money      `json:"shipping_cost" dynamodbav:"shipping_cost"`
	Total           Money      `json:"total" dynamodbav:"total"`
}

// ClientProfile is the per-client record in the clients table.
type ClientProfile struct {
	ClientID        string     `dynamodbav:"client_id"` // PK
	ShippingAddress Address    `dynamodbav:"shipping_address"`
	LastUpdated     *time.Time `dynamodbav:"last_updated,omitempty"`
}
