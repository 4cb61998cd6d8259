// Package session is the explicit session-state repository backing the
// conversation's correction, confirmation and edit slots. A slot is a named,
// client-scoped record holding a serialized payload and a remaining-turn
// lifespan; reading a slot consumes one turn, and a lifespan of zero retires
// it. No component reaches for ambient state: every consumer gets this store
// injected.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ovofacil/orderbot/internal/awsx"
)

// Slot is the item persisted in the session table.
type Slot struct {
	ClientID  string    `dynamodbav:"client_id"` // PK
	SlotName  string    `dynamodbav:"slot_name"` // SK
	Payload   string    `dynamodbav:"payload"`   // serialized stage data
	Lifespan  int       `dynamodbav:"lifespan"`  // remaining turns
	UpdatedAt time.Time `dynamodbav:"updated_at"`
	ExpiresAt int64     `dynamodbav:"expires_at"` // TTL epoch seconds
}

// Store encapsulates slot operations against DynamoDB.
type Store struct {
	client    awsx.DynamoDBAPI
	tableName string
	ttlWindow time.Duration
	nowFunc   func() time.Time
}

// NewStore returns a configured Store. ttlWindow bounds how long an
// abandoned slot survives before DynamoDB TTL collects it.
func NewStore(client awsx.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

func (s *Store) key(clientID, slotName string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"client_id": &types.AttributeValueMemberS{Value: clientID},
		"slot_name": &types.AttributeValueMemberS{Value: slotName},
	}
}

// Get fetches a slot and consumes one turn of its lifespan. Returns
// (nil, nil) when the slot is absent or already expired; an expired item is
// deleted on read so a stale slot cannot resurface.
func (s *Store) Get(ctx context.Context, clientID, slotName string) (*Slot, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       s.key(clientID, slotName),
	})
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var slot Slot
	if err := attributevalue.UnmarshalMap(out.Item, &slot); err != nil {
		return nil, fmt.Errorf("unmarshal slot: %w", err)
	}
	if slot.Lifespan <= 0 {
		if err := s.Clear(ctx, clientID, slotName); err != nil {
			return nil, err
		}
		return nil, nil
	}

	// Consume one turn. Not transactional with the read: a duplicated
	// webhook delivery can interleave here and lose an update, which is an
	// accepted risk of the platform's per-conversation serialization.
	now := s.nowFunc()
	_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              s.key(clientID, slotName),
		UpdateExpression: awsString("SET lifespan = :l, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":l":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", slot.Lifespan-1)},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decrement slot lifespan: %w", err)
	}
	return &slot, nil
}

// Put creates or overwrites a slot with a fresh lifespan.
func (s *Store) Put(ctx context.Context, clientID, slotName, payload string, lifespan int) error {
	now := s.nowFunc()
	item, err := attributevalue.MarshalMap(Slot{
		ClientID:  clientID,
		SlotName:  slotName,
		Payload:   payload,
		Lifespan:  lifespan,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttlWindow).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal slot: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put slot: %w", err)
	}
	return nil
}

// Clear retires a slot. Clearing an absent slot is a no-op.
func (s *Store) Clear(ctx context.Context, clientID, slotName string) error {
	if _, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key:       s.key(clientID, slotName),
	}); err != nil {
		return fmt.Errorf("clear slot: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
