package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// KeyAttribute is the single string partition key every livechat table uses.
const KeyAttribute = "pk"

var (
	ErrItemNotFound    = errors.New("database: item not found")
	ErrConditionFailed = errors.New("database: condition check failed")
)

const (
	maxBatchGetKeys     = 100
	maxBatchGetAttempts = 5
)

func Key(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{KeyAttribute: &types.AttributeValueMemberS{Value: pk}}
}

func (c *DynamoDBClient) PutItem(ctx context.Context, table string, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if _, err := c.svc.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(table), Item: av}); err != nil {
		return fmt.Errorf("put item %s: %w", table, err)
	}
	return nil
}

// GetItem loads the item stored under pk into out, or returns ErrItemNotFound.
func (c *DynamoDBClient) GetItem(ctx context.Context, table, pk string, out any) error {
	res, err := c.svc.GetItem(ctx, &dynamodb.GetItemInput{TableName: aws.String(table), Key: Key(pk)})
	if err != nil {
		return fmt.Errorf("get item %s: %w", table, err)
	}
	if res.Item == nil {
		return fmt.Errorf("%s/%s: %w", table, pk, ErrItemNotFound)
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

// Update is a conditional UpdateItem on the item stored under PK.
type Update struct {
	Table      string
	PK         string
	Expression string
	Condition  string
	Values     map[string]types.AttributeValue
	Names      map[string]string
}

func (u Update) input(returnValues types.ReturnValue) *dynamodb.UpdateItemInput {
	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(u.Table),
		Key:                       Key(u.PK),
		UpdateExpression:          aws.String(u.Expression),
		ExpressionAttributeValues: u.Values,
		ReturnValues:              returnValues,
	}
	if u.Condition != "" {
		input.ConditionExpression = aws.String(u.Condition)
	}
	if len(u.Names) > 0 {
		input.ExpressionAttributeNames = u.Names
	}
	return input
}

// ConditionalUpdate applies u and reports a failed condition as ErrConditionFailed.
func (c *DynamoDBClient) ConditionalUpdate(ctx context.Context, u Update) error {
	_, err := c.update(ctx, u, types.ReturnValueNone)
	return err
}

// UpdateReturningOld applies u and returns the previous values of the attributes it set.
// Attributes that did not exist before are absent from the result.
func (c *DynamoDBClient) UpdateReturningOld(ctx context.Context, u Update) (map[string]types.AttributeValue, error) {
	return c.update(ctx, u, types.ReturnValueUpdatedOld)
}

func (c *DynamoDBClient) update(ctx context.Context, u Update, returnValues types.ReturnValue) (map[string]types.AttributeValue, error) {
	out, err := c.svc.UpdateItem(ctx, u.input(returnValues))
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("update item %s/%s: %w", u.Table, u.PK, err)
	}
	return out.Attributes, nil
}

// Lookup reads every item matching KeyCondition on a secondary index. When the index has not
// been provisioned the same predicate is evaluated by a full table scan instead.
type Lookup struct {
	Table        string
	Index        string
	KeyCondition string
	Filter       string
	Values       map[string]types.AttributeValue
	Names        map[string]string
}

func (c *DynamoDBClient) Find(ctx context.Context, l Lookup) ([]map[string]types.AttributeValue, error) {
	if l.Index == "" {
		return c.scan(ctx, l)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(l.Table),
		IndexName:                 aws.String(l.Index),
		KeyConditionExpression:    aws.String(l.KeyCondition),
		ExpressionAttributeValues: l.Values,
	}
	if l.Filter != "" {
		input.FilterExpression = aws.String(l.Filter)
	}
	if len(l.Names) > 0 {
		input.ExpressionAttributeNames = l.Names
	}

	var items []map[string]types.AttributeValue
	pages := dynamodb.NewQueryPaginator(c.svc, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			if isMissingIndex(err) {
				return c.scan(ctx, l)
			}
			return nil, fmt.Errorf("query %s[%s]: %w", l.Table, l.Index, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (c *DynamoDBClient) scan(ctx context.Context, l Lookup) ([]map[string]types.AttributeValue, error) {
	predicate := l.KeyCondition
	if l.Filter != "" {
		if predicate != "" {
			predicate += " AND "
		}
		predicate += l.Filter
	}

	input := &dynamodb.ScanInput{TableName: aws.String(l.Table)}
	if predicate != "" {
		input.FilterExpression = aws.String(predicate)
		input.ExpressionAttributeValues = l.Values
	}
	if len(l.Names) > 0 {
		input.ExpressionAttributeNames = l.Names
	}

	var items []map[string]types.AttributeValue
	pages := dynamodb.NewScanPaginator(c.svc, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", l.Table, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// BatchGet loads the items stored under pks. Missing keys are skipped.
func (c *DynamoDBClient) BatchGet(ctx context.Context, table string, pks []string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for start := 0; start < len(pks); start += maxBatchGetKeys {
		end := min(start+maxBatchGetKeys, len(pks))

		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, pk := range pks[start:end] {
			keys = append(keys, Key(pk))
		}

		request := map[string]types.KeysAndAttributes{table: {Keys: keys}}
		for attempt := 0; len(request) > 0; attempt++ {
			if attempt == maxBatchGetAttempts {
				return nil, fmt.Errorf("batch get %s: keys still unprocessed after %d attempts", table, attempt)
			}
			res, err := c.svc.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, fmt.Errorf("batch get %s: %w", table, err)
			}
			items = append(items, res.Responses[table]...)
			request = res.UnprocessedKeys
		}
	}
	return items, nil
}

func isMissingIndex(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "ValidationException" {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "index")
}
