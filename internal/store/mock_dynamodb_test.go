package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// tableMock is a small in-memory DynamoDB stand-in covering the calls the
// stores make: keyed gets/puts, the confirm-key transaction, the pending
// orders query and the conditional status update. Not production-grade.
type tableMock struct {
	mu     sync.Mutex
	keys   map[string]string // table name -> primary key attribute
	tables map[string]map[string]map[string]types.AttributeValue

	transactCalls int
	updateCalls   int
	queryCalls    int
}

func newTableMock(keys map[string]string) *tableMock {
	return &tableMock{
		keys:   keys,
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

func (m *tableMock) table(name string) map[string]map[string]types.AttributeValue {
	t, ok := m.tables[name]
	if !ok {
		t = map[string]map[string]types.AttributeValue{}
		m.tables[name] = t
	}
	return t
}

// itemKey extracts the table's primary key attribute from an item or key map.
func (m *tableMock) itemKey(tableName string, attrs map[string]types.AttributeValue) (string, error) {
	name, ok := m.keys[tableName]
	if !ok {
		return "", errors.New("unknown table: " + tableName)
	}
	v, ok := attrs[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing key attribute: " + name)
	}
	return v.Value, nil
}

func strAttr(attrs map[string]types.AttributeValue, name string) string {
	if v, ok := attrs[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (m *tableMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := m.itemKey(*params.TableName, params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table(*params.TableName)[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *tableMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := m.itemKey(*params.TableName, params.Item)
	if err != nil {
		return nil, err
	}
	m.table(*params.TableName)[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *tableMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	k, err := m.itemKey(*params.TableName, params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table(*params.TableName)[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	// conditional status transition: #s = :expected
	if params.ConditionExpression != nil && *params.ConditionExpression == "#s = :expected" {
		attr := params.ExpressionAttributeNames["#s"]
		expected := strAttr(params.ExpressionAttributeValues, ":expected")
		if strAttr(item, attr) != expected {
			return nil, &types.ConditionalCheckFailedException{}
		}
		item[attr] = params.ExpressionAttributeValues[":new"]
	}
	m.table(*params.TableName)[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *tableMock) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := m.itemKey(*params.TableName, params.Key)
	if err != nil {
		return nil, err
	}
	delete(m.table(*params.TableName), k)
	return &dyn.DeleteItemOutput{}, nil
}

func (m *tableMock) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++

	clientID := strAttr(params.ExpressionAttributeValues, ":c")
	status := strAttr(params.ExpressionAttributeValues, ":s")

	var items []map[string]types.AttributeValue
	for _, item := range m.table(*params.TableName) {
		if strAttr(item, "client_id") != clientID {
			continue
		}
		if status != "" && strAttr(item, "delivery_status") != status {
			continue
		}
		items = append(items, item)
	}
	// GSI range key: creation_date ascending
	sort.Slice(items, func(i, j int) bool {
		return strAttr(items[i], "creation_date") < strAttr(items[j], "creation_date")
	})
	return &dyn.QueryOutput{Items: items}, nil
}

func (m *tableMock) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactCalls++

	// first pass: check conditions
	for _, it := range params.TransactItems {
		p := it.Put
		if p == nil || p.ConditionExpression == nil {
			continue
		}
		if *p.ConditionExpression == "attribute_not_exists(confirm_key)" {
			k, err := m.itemKey(*p.TableName, p.Item)
			if err != nil {
				return nil, err
			}
			if _, exists := m.table(*p.TableName)[k]; exists {
				return nil, &types.TransactionCanceledException{}
			}
		}
	}
	// second pass: apply puts
	for _, it := range params.TransactItems {
		if p := it.Put; p != nil {
			k, err := m.itemKey(*p.TableName, p.Item)
			if err != nil {
				return nil, err
			}
			m.table(*p.TableName)[k] = p.Item
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}
