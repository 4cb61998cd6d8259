// Package store is the document-store layer over DynamoDB: orders, client
// profiles and the pricing configuration. Every turn that needs a record
// re-fetches it; there is no caching layer.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/ovofacil/orderbot/internal/awsx"
	"github.com/ovofacil/orderbot/internal/domain"
)

// clientCreationIndex is the GSI keyed by client_id with creation_date as
// range key, used to list a client's orders oldest first.
const clientCreationIndex = "client_id-creation_date-index"

// ErrStatusMismatch indicates a conditional status transition failed because
// the order was no longer in the expected status.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// confirmationRecord guards against a duplicated confirmation turn
// re-persisting the same order. The key travels inside the confirmation
// slot, so a retried Confirmar lands on the same record.
type confirmationRecord struct {
	ConfirmKey string    `dynamodbav:"confirm_key"` // PK
	OrderID    string    `dynamodbav:"order_id"`
	CreatedAt  time.Time `dynamodbav:"created_at"`
	ExpiresAt  int64     `dynamodbav:"expires_at"` // TTL epoch seconds
}

// Orders encapsulates operations on the orders table.
type Orders struct {
	client       awsx.DynamoDBAPI
	tableName    string
	confirmTable string
	ttlWindow    time.Duration
	nowFunc      func() time.Time
}

// NewOrders creates a new orders store. confirmTable holds the
// confirmation-key records written transactionally with each order.
func NewOrders(client awsx.DynamoDBAPI, tableName, confirmTable string, ttlWindow time.Duration) *Orders {
	return &Orders{
		client:       client,
		tableName:    tableName,
		confirmTable: confirmTable,
		ttlWindow:    ttlWindow,
		nowFunc:      time.Now,
	}
}

// CreateConfirmed persists a confirmed order exactly once per confirmation
// key. It transactionally puts the confirmation record (conditional on the
// key not existing) and the order. When the key already exists, meaning a
// retried or duplicated confirm turn, it returns the previously persisted id
// with created=false instead of writing a second order.
func (s *Orders) CreateConfirmed(ctx context.Context, order domain.Order, confirmKey string) (orderID string, created bool, err error) {
	if order.OrderID == "" {
		return "", false, errors.New("order id must be set before persistence")
	}

	now := s.nowFunc()
	rec := confirmationRecord{
		ConfirmKey: confirmKey,
		OrderID:    order.OrderID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttlWindow).Unix(),
	}
	recMap, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return "", false, fmt.Errorf("marshal confirmation record: %w", err)
	}

	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return "", false, fmt.Errorf("marshal order: %w", err)
	}

	input := &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &s.confirmTable,
					Item:                recMap,
					ConditionExpression: awsString("attribute_not_exists(confirm_key)"),
				},
			},
			{
				Put: &types.Put{
					TableName: &s.tableName,
					Item:      orderMap,
				},
			},
		},
	}

	if _, err = s.client.TransactWriteItems(ctx, input); err != nil {
		// detect the cancelled transaction: the confirmation key exists
		var sc smithy.APIError
		if errors.As(err, &sc) && sc.ErrorCode() == "TransactionCanceledException" {
			existing, getErr := s.getConfirmation(ctx, confirmKey)
			if getErr != nil {
				return "", false, getErr
			}
			if existing != nil {
				return existing.OrderID, false, nil
			}
		}
		return "", false, fmt.Errorf("transact write: %w", err)
	}
	return order.OrderID, true, nil
}

func (s *Orders) getConfirmation(ctx context.Context, confirmKey string) (*confirmationRecord, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.confirmTable,
		Key: map[string]types.AttributeValue{
			"confirm_key": &types.AttributeValueMemberS{Value: confirmKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get confirmation record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec confirmationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal confirmation record: %w", err)
	}
	return &rec, nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Orders) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o domain.Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// ListPendingByClient returns the client's pending orders, oldest first.
func (s *Orders) ListPendingByClient(ctx context.Context, clientID string) ([]domain.Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(clientCreationIndex),
		KeyConditionExpression: awsString("client_id = :c"),
		FilterExpression:       awsString("delivery_status = :s"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: clientID},
			":s": &types.AttributeValueMemberS{Value: domain.StatusPending},
		},
		ScanIndexForward: boolPtr(true), // creation_date ascending
	})
	if err != nil {
		return nil, fmt.Errorf("query pending orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(out.Items))
	for _, item := range out.Items {
		var o domain.Order
		if err := attributevalue.UnmarshalMap(item, &o); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateStatus conditionally transitions delivery_status from expected to
// newStatus. Returns ErrStatusMismatch when the order is no longer in the
// expected status at write time.
func (s *Orders) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error {
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new"),
		ExpressionAttributeNames: map[string]string{"#s": "delivery_status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":expected": &types.AttributeValueMemberS{Value: expectedStatus},
		},
		ConditionExpression: awsString("#s = :expected"),
	}

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		var sc smithy.APIError
		if errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException" {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
func boolPtr(b bool) *bool      { return &b }
