package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const recordTTL = 24 * time.Hour

// Service deduplicates chat POSTs in DynamoDB: a retried request with the
// same user, route, and body gets the stored response instead of a second
// AI call and a duplicated chat turn.
type Service struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

type Record struct {
	Key         string    `dynamodbav:"key"`
	UserID      string    `dynamodbav:"user_id"`
	RequestHash string    `dynamodbav:"request_hash"`
	Response    string    `dynamodbav:"response"`
	Status      string    `dynamodbav:"status"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	ExpiresAt   time.Time `dynamodbav:"expires_at"`
	TTL         int64     `dynamodbav:"ttl"`
}

func NewService(logger *zap.Logger) (*Service, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}

	tableName := "ustudy-idempotency"
	if envTable := os.Getenv("IDEMPOTENCY_TABLE_NAME"); envTable != "" {
		tableName = envTable
	}

	return &Service{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
		logger:    logger,
	}, nil
}

// Key derives the idempotency key for a request.
func (s *Service) Key(userID, endpoint, requestBody string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", userID, endpoint, requestBody)))
	return hex.EncodeToString(hash[:])
}

func requestHash(requestBody string) string {
	hash := sha256.Sum256([]byte(requestBody))
	return hex.EncodeToString(hash[:])
}

// Process runs handler at most once for a given (user, endpoint, body)
// within the record TTL. A completed record short-circuits with the cached
// response; a pending record means a duplicate in flight.
func (s *Service) Process(
	ctx context.Context,
	userID, endpoint, requestBody string,
	handler func() (interface{}, error),
) (interface{}, error) {
	key := s.Key(userID, endpoint, requestBody)
	reqHash := requestHash(requestBody)

	existing, err := s.lookup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %v", err)
	}

	if existing != nil && existing.RequestHash == reqHash {
		switch existing.Status {
		case "completed":
			var response interface{}
			if err := json.Unmarshal([]byte(existing.Response), &response); err != nil {
				return nil, fmt.Errorf("failed to unmarshal cached response: %v", err)
			}
			s.logger.Info("returning cached idempotent response", zap.String("key", key))
			return response, nil
		case "pending":
			return nil, fmt.Errorf("request is already being processed")
		}
	}

	if existing != nil && existing.RequestHash != reqHash {
		return nil, fmt.Errorf("idempotency key conflict: same key used for different request")
	}

	record := &Record{
		Key:         key,
		UserID:      userID,
		RequestHash: reqHash,
		Status:      "pending",
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(recordTTL),
	}
	if err := s.store(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store idempotency record: %v", err)
	}

	response, err := handler()
	if err != nil {
		s.update(ctx, key, fmt.Sprintf("error: %v", err), "failed")
		return nil, err
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		s.update(ctx, key, "error: failed to marshal response", "failed")
		return nil, fmt.Errorf("failed to marshal response: %v", err)
	}

	// The handler already succeeded; losing the cache entry only costs dedup
	// on a later retry.
	if err := s.update(ctx, key, string(responseJSON), "completed"); err != nil {
		s.logger.Warn("failed to update idempotency record", zap.String("key", key), zap.Error(err))
	}

	return response, nil
}

func (s *Service) lookup(ctx context.Context, key string) (*Record, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %v", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var record Record
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %v", err)
	}

	if time.Now().After(record.ExpiresAt) {
		s.delete(ctx, key)
		return nil, nil
	}

	return &record, nil
}

func (s *Service) store(ctx context.Context, record *Record) error {
	record.TTL = time.Now().Add(recordTTL).Unix()

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency record: %v", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#key)"),
		ExpressionAttributeNames: map[string]string{
			"#key": "key",
		},
	})
	if err != nil {
		if _, ok := err.(*types.ConditionalCheckFailedException); ok {
			return fmt.Errorf("idempotency key already exists")
		}
		return fmt.Errorf("failed to put item: %v", err)
	}

	return nil
}

func (s *Service) update(ctx context.Context, key, response, status string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: key},
		},
		UpdateExpression: aws.String("SET #response = :response, #status = :status, #updated_at = :updated_at"),
		ExpressionAttributeNames: map[string]string{
			"#response":   "response",
			"#status":     "status",
			"#updated_at": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":response":   &types.AttributeValueMemberS{Value: response},
			":status":     &types.AttributeValueMemberS{Value: status},
			":updated_at": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update item: %v", err)
	}
	return nil
}

func (s *Service) delete(ctx context.Context, key string) {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		s.logger.Warn("failed to delete expired idempotency record", zap.String("key", key), zap.Error(err))
	}
}
