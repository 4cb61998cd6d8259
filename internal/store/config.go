package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ovofacil/orderbot/internal/awsx"
	"github.com/ovofacil/orderbot/internal/pricing"
)

// pricingConfigID is the fixed document id of the site-wide pricing rules.
const pricingConfigID = "1"

// ErrConfigMissing indicates the pricing configuration document is absent or
// incomplete. It is a collaborator failure, never user-correctable.
var ErrConfigMissing = errors.New("pricing configuration missing or incomplete")

// Config reads the pricing configuration document.
type Config struct {
	client    awsx.DynamoDBAPI
	tableName string
}

// NewConfig creates a pricing-configuration store.
func NewConfig(client awsx.DynamoDBAPI, tableName string) *Config {
	return &Config{client: client, tableName: tableName}
}

// GetPricing fetches the pricing rules. Read-through on every call.
func (s *Config) GetPricing(ctx context.Context) (pricing.Config, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"config_id": &types.AttributeValueMemberS{Value: pricingConfigID},
		},
	})
	if err != nil {
		return pricing.Config{}, fmt.Errorf("get configuration: %w", err)
	}
	if len(out.Item) == 0 {
		return pricing.Config{}, ErrConfigMissing
	}

	var cfg pricing.Config
	if err := attributevalue.UnmarshalMap(out.Item, &cfg); err != nil {
		return pricing.Config{}, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if cfg.ExtraValue <= 0 || cfg.JumboValue <= 0 || cfg.ShippingValue < 0 || cfg.FreeShippingDozen <= 0 {
		return pricing.Config{}, ErrConfigMissing
	}
	return cfg, nil
}
