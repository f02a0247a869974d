package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoClient is the subset of the DynamoDB API the storage relies on.
// Satisfied by *dynamodb.Client; narrowed to an interface so tests can
// substitute a double.
type DynamoClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStorage persists subscriptions in a DynamoDB table keyed by
// PK=owner_id, SK=subscription_id. Counter and status mutations use UpdateItem
// expressions so they stay per-key atomic under concurrent dispatches.
type DynamoStorage struct {
	client DynamoClient
	table  string
}

// NewDynamoStorage creates a DynamoDB-backed subscription storage.
// Panics if client is nil or table is empty to fail fast during initialization.
func NewDynamoStorage(client DynamoClient, table string) *DynamoStorage {
	if client == nil {
		panic("subscription: DynamoDB client is required")
	}
	if table == "" {
		panic("subscription: DynamoDB table name is required")
	}
	return &DynamoStorage{client: client, table: table}
}

func (s *DynamoStorage) Get(ctx context.Context, ownerID, subID string) (*Subscription, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       dynamoKey(ownerID, subID),
	})
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrSubscriptionNotFound
	}

	var sub Subscription
	if err := attributevalue.UnmarshalMap(out.Item, &sub); err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}
	return &sub, nil
}

func (s *DynamoStorage) Put(ctx context.Context, sub Subscription) error {
	item, err := attributevalue.MarshalMap(sub)
	if err != nil {
		return errors.Join(ErrCorruptRecord, err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *DynamoStorage) QueryByOwner(ctx context.Context, ownerID string) ([]Subscription, error) {
	var (
		subs    []Subscription
		lastKey map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("owner_id = :owner"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":owner": &types.AttributeValueMemberS{Value: ownerID},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, errors.Join(ErrStoreUnavailable, err)
		}

		page := make([]Subscription, 0, len(out.Items))
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, errors.Join(ErrCorruptRecord, err)
		}
		subs = append(subs, page...)

		if len(out.LastEvaluatedKey) == 0 {
			return subs, nil
		}
		lastKey = out.LastEvaluatedKey
	}
}

func (s *DynamoStorage) ScanAll(ctx context.Context) ([]Subscription, error) {
	var (
		subs    []Subscription
		lastKey map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.table),
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, errors.Join(ErrStoreUnavailable, err)
		}

		page := make([]Subscription, 0, len(out.Items))
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, errors.Join(ErrCorruptRecord, err)
		}
		subs = append(subs, page...)

		if len(out.LastEvaluatedKey) == 0 {
			return subs, nil
		}
		lastKey = out.LastEvaluatedKey
	}
}

func (s *DynamoStorage) Delete(ctx context.Context, ownerID, subID string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.table),
		Key:                 dynamoKey(ownerID, subID),
		ConditionExpression: aws.String("attribute_exists(owner_id)"),
	}); err != nil {
		return classifyDynamoErr(err)
	}
	return nil
}

func (s *DynamoStorage) RecordSuccess(ctx context.Context, ownerID, subID string, at time.Time) error {
	ts, err := attributevalue.Marshal(at)
	if err != nil {
		return errors.Join(ErrCorruptRecord, err)
	}

	if _, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 dynamoKey(ownerID, subID),
		ConditionExpression: aws.String("attribute_exists(owner_id)"),
		UpdateExpression:    aws.String("SET failure_count = :zero, last_notification_sent = :at, updated_at = :at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":at":   ts,
		},
	}); err != nil {
		return classifyDynamoErr(err)
	}
	return nil
}

func (s *DynamoStorage) RecordFailure(ctx context.Context, ownerID, subID string, terminal bool, at time.Time) error {
	ts, err := attributevalue.Marshal(at)
	if err != nil {
		return errors.Join(ErrCorruptRecord, err)
	}

	// Increment happens server-side so concurrent dispatches never lose updates
	expr := "SET failure_count = if_not_exists(failure_count, :zero) + :one, updated_at = :at"
	values := map[string]types.AttributeValue{
		":zero": &types.AttributeValueMemberN{Value: "0"},
		":one":  &types.AttributeValueMemberN{Value: "1"},
		":at":   ts,
	}
	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       dynamoKey(ownerID, subID),
		ConditionExpression:       aws.String("attribute_exists(owner_id)"),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeValues: values,
	}
	if terminal {
		input.UpdateExpression = aws.String(expr + ", #status = :inactive")
		// "status" is a DynamoDB reserved word
		input.ExpressionAttributeNames = map[string]string{"#status": "status"}
		values[":inactive"] = &types.AttributeValueMemberS{Value: string(StatusInactive)}
	}

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return classifyDynamoErr(err)
	}
	return nil
}

func dynamoKey(ownerID, subID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"owner_id":        &types.AttributeValueMemberS{Value: ownerID},
		"subscription_id": &types.AttributeValueMemberS{Value: subID},
	}
}

// classifyDynamoErr maps a failed conditional write to the not-found sentinel;
// everything else is an infrastructure failure.
func classifyDynamoErr(err error) error {
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return ErrSubscriptionNotFound
	}
	return errors.Join(ErrStoreUnavailable, err)
}
