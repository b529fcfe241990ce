package remarketing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/plenasaude/quote-assistant/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// entryRecord is the DynamoDB item layout. The snapshot is kept as a JSON
// document so session fields do not need attribute tags.
type entryRecord struct {
	Phone        string `dynamodbav:"phone"`
	Snapshot     string `dynamodbav:"snapshot"`
	Attempts     int    `dynamodbav:"attempts"`
	LastAttempt  string `dynamodbav:"lastAttempt,omitempty"`
	RegisteredAt string `dynamodbav:"registeredAt"`
	ExpiresAt    int64  `dynamodbav:"expiresAt,omitempty"`
}

// DynamoRegistry persists entries to a DynamoDB table keyed by phone.
type DynamoRegistry struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

func NewDynamoRegistry(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoRegistry {
	if client == nil {
		panic("remarketing: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("remarketing: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoRegistry{client: client, tableName: tableName, logger: logger}
}

func (d *DynamoRegistry) Put(ctx context.Context, e Entry) error {
	rec, err := toRecord(e)
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("remarketing: failed to marshal entry: %w", err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("remarketing: failed to persist entry: %w", err)
	}
	return nil
}

func (d *DynamoRegistry) Get(ctx context.Context, phone string) (Entry, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            phoneKey(phone),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("remarketing: failed to load entry: %w", err)
	}
	if len(out.Item) == 0 {
		return Entry{}, ErrEntryNotFound
	}
	return fromItem(out.Item)
}

func (d *DynamoRegistry) Take(ctx context.Context, phone string) (Entry, error) {
	out, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(d.tableName),
		Key:          phoneKey(phone),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("remarketing: failed to take entry: %w", err)
	}
	if len(out.Attributes) == 0 {
		return Entry{}, ErrEntryNotFound
	}
	return fromItem(out.Attributes)
}

func (d *DynamoRegistry) Delete(ctx context.Context, phone string) error {
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       phoneKey(phone),
	}); err != nil {
		return fmt.Errorf("remarketing: failed to delete entry: %w", err)
	}
	return nil
}

func (d *DynamoRegistry) List(ctx context.Context) ([]Entry, error) {
	var (
		out   []Entry
		start map[string]types.AttributeValue
	)
	for {
		page, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(d.tableName),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("remarketing: failed to scan entries: %w", err)
		}
		for _, item := range page.Items {
			e, err := fromItem(item)
			if err != nil {
				d.logger.Warn("remarketing: skipping unreadable entry", "error", err)
				continue
			}
			out = append(out, e)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		start = page.LastEvaluatedKey
	}
	sortEntries(out)
	return out, nil
}

func phoneKey(phone string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"phone": &types.AttributeValueMemberS{Value: phone},
	}
}

func toRecord(e Entry) (entryRecord, error) {
	snap, err := json.Marshal(e.Snapshot)
	if err != nil {
		return entryRecord{}, fmt.Errorf("remarketing: failed to marshal snapshot: %w", err)
	}
	rec := entryRecord{
		Phone:        e.Phone,
		Snapshot:     string(snap),
		Attempts:     e.Attempts,
		RegisteredAt: e.RegisteredAt.UTC().Format(time.RFC3339Nano),
		ExpiresAt:    e.RegisteredAt.Add(registryTTL).Unix(),
	}
	if !e.LastAttempt.IsZero() {
		rec.LastAttempt = e.LastAttempt.UTC().Format(time.RFC3339Nano)
	}
	return rec, nil
}

func fromItem(item map[string]types.AttributeValue) (Entry, error) {
	var rec entryRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return Entry{}, fmt.Errorf("remarketing: failed to unmarshal entry: %w", err)
	}
	e := Entry{Phone: rec.Phone, Attempts: rec.Attempts}
	if err := json.Unmarshal([]byte(rec.Snapshot), &e.Snapshot); err != nil {
		return Entry{}, fmt.Errorf("remarketing: failed to decode snapshot: %w", err)
	}
	var err error
	if e.RegisteredAt, err = time.Parse(time.RFC3339Nano, rec.RegisteredAt); err != nil {
		return Entry{}, fmt.Errorf("remarketing: invalid registeredAt: %w", err)
	}
	if rec.LastAttempt != "" {
		if e.LastAttempt, err = time.Parse(time.RFC3339Nano, rec.LastAttempt); err != nil {
			return Entry{}, fmt.Errorf("remarketing: invalid lastAttempt: %w", err)
		}
	}
	return e, nil
}
