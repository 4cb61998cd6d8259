package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ovofacil/orderbot/internal/awsx"
	"github.com/ovofacil/orderbot/internal/domain"
)

// Clients encapsulates operations on the client-profile table.
type Clients struct {
	client    awsx.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewClients creates a new client-profile store.
func NewClients(client awsx.DynamoDBAPI, tableName string) *Clients {
	return &Clients{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Get fetches a client profile. Returns (nil, nil) if the client has never
// ordered before.
func (s *Clients) Get(ctx context.Context, clientID string) (*domain.ClientProfile, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"client_id": &types.AttributeValueMemberS{Value: clientID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p domain.ClientProfile
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal client: %w", err)
	}
	return &p, nil
}

// SaveAddress creates the profile on first contact or overwrites the stored
// address, stamping last_updated on updates.
func (s *Clients) SaveAddress(ctx context.Context, clientID string, addr domain.Address, isUpdate bool) error {
	profile := domain.ClientProfile{
		ClientID:        clientID,
		ShippingAddress: addr,
	}
	if isUpdate {
		now := s.nowFunc()
		profile.LastUpdated = &now
	}

	item, err := attributevalue.MarshalMap(profile)
	if err != nil {
		return fmt.Errorf("marshal client: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put client: %w", err)
	}
	return nil
}
