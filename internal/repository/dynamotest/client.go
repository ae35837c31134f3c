// Package dynamotest provides an in-memory DynamoDB client for tests of code
// built on the repository's DynamoDBAPI.
package dynamotest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Client keeps items in memory keyed by PK and SK. Condition expressions
// are limited to equality terms joined by AND, e.g. "#a = :a AND #b = :b".
type Client struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	err   error
}

func New() *Client {
	return &Client{items: make(map[string]map[string]types.AttributeValue)}
}

// FailWith makes every later call return err; nil restores normal operation.
func (c *Client) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Item returns the stored item for the given keys, if any.
func (c *Client) Item(pk, sk string) (map[string]types.AttributeValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[pk+"|"+sk]
	return item, ok
}

func itemKey(key map[string]types.AttributeValue) string {
	pk := key["PK"].(*types.AttributeValueMemberS).Value
	sk := key["SK"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (c *Client) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (c *Client) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return &dynamodb.GetItemOutput{Item: c.items[itemKey(in.Key)]}, nil
}

func (c *Client) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}

	k := itemKey(in.Key)
	old, ok := c.items[k]

	if in.ConditionExpression != nil {
		match, err := evaluate(aws.ToString(in.ConditionExpression), old, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok || !match {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}

	delete(c.items, k)

	out := &dynamodb.DeleteItemOutput{}
	if ok && in.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}

func evaluate(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	for _, term := range strings.Split(expr, " AND ") {
		parts := strings.Split(term, "=")
		if len(parts) != 2 {
			return false, fmt.Errorf("dynamotest: unsupported condition %q", term)
		}

		name := strings.TrimSpace(parts[0])
		if resolved, ok := names[name]; ok {
			name = resolved
		}
		want, ok := values[strings.TrimSpace(parts[1])]
		if !ok {
			return false, fmt.Errorf("dynamotest: missing value for %q", term)
		}

		if !equal(item[name], want) {
			return false, nil
		}
	}
	return true, nil
}

func equal(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	default:
		return false
	}
}
