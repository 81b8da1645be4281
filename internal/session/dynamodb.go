package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	domerrors "github.com/garyellow/campus-interview-bot/internal/errors"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
)

const (
	dynamoPKPrefix = "CONV#"
	dynamoSKState  = "STATE"
)

// dynamodbAPI is the subset of the DynamoDB client the store uses.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoStore keeps conversations in a single-table layout:
// PK=CONV#<chat>, SK=STATE, with a numeric ttl attribute for table TTL.
type DynamoStore struct {
	api     dynamodbAPI
	table   string
	ttl     time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewDynamoStore validates its arguments; api is usually *dynamodb.Client.
func NewDynamoStore(api dynamodbAPI, table string, ttl time.Duration, m *metrics.Metrics) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("session: dynamodb api must not be nil")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("session: dynamodb table name must not be empty")
	}
	return &DynamoStore{api: api, table: table, ttl: ttl, metrics: m, now: time.Now}, nil
}

func dynamoKey(chatID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: dynamoPKPrefix + chatID},
		"SK": &types.AttributeValueMemberS{Value: dynamoSKState},
	}
}

func (s *DynamoStore) Load(ctx context.Context, chatID string) (conv *Conversation, err error) {
	defer func(start time.Time) { observe(s.metrics, StoreDynamoDB, "load", start, err) }(time.Now())

	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            dynamoKey(chatID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, domerrors.ErrNotFound
	}

	// Table TTL deletes lazily, so expired items can still be returned.
	if ttl, ok := out.Item["ttl"].(*types.AttributeValueMemberN); ok {
		expires, perr := strconv.ParseInt(ttl.Value, 10, 64)
		if perr == nil && expires <= s.now().Unix() {
			return nil, domerrors.ErrNotFound
		}
	}

	data, ok := out.Item["data"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("dynamodb item missing data attribute")
	}
	return decode([]byte(data.Value))
}

func (s *DynamoStore) Save(ctx context.Context, conv *Conversation) (err error) {
	defer func(start time.Time) { observe(s.metrics, StoreDynamoDB, "save", start, err) }(time.Now())

	if conv == nil || conv.ChatID == "" {
		return fmt.Errorf("save conversation: %w", domerrors.ErrInvalidInput)
	}
	conv.ExpiresAt = s.now().Add(s.ttl)
	data, err := encode(conv)
	if err != nil {
		return err
	}

	item := dynamoKey(conv.ChatID)
	item["data"] = &types.AttributeValueMemberS{Value: string(data)}
	item["session_id"] = &types.AttributeValueMemberS{Value: conv.SessionID}
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(conv.ExpiresAt.Unix(), 10)}
	if conv.UserID != "" {
		item["user_id"] = &types.AttributeValueMemberS{Value: conv.UserID}
	}

	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamodb put: %w", err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, chatID string) (err error) {
	defer func(start time.Time) { observe(s.metrics, StoreDynamoDB, "delete", start, err) }(time.Now())

	if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       dynamoKey(chatID),
	}); err != nil {
		return fmt.Errorf("dynamodb delete: %w", err)
	}
	return nil
}

func (s *DynamoStore) Ping(ctx context.Context) error {
	if _, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}); err != nil {
		return fmt.Errorf("dynamodb describe table: %w", err)
	}
	return nil
}

func (s *DynamoStore) Close() error {
	return nil
}
