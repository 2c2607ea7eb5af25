package llm

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// spendTable is the slice of the DynamoDB API the spend tracker uses.
type spendTable interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// CostControlService tracks per-user daily DeepSeek spend in DynamoDB and
// refuses requests that would exceed the daily budget. Chat and assessment
// handlers consult it before every model call.
type CostControlService struct {
	client    spendTable
	tableName string
}

type UserSpendRecord struct {
	UserID      string  `dynamodbav:"user_id"`
	Date        string  `dynamodbav:"date"`
	LLMRequests int     `dynamodbav:"llm_requests"`
	LLMCost     float64 `dynamodbav:"llm_cost"`
	DailyLimit  float64 `dynamodbav:"daily_limit"`
	CreatedAt   string  `dynamodbav:"created_at"`
	UpdatedAt   string  `dynamodbav:"updated_at"`
	TTL         int64   `dynamodbav:"ttl"`
}

type CostControlResult struct {
	Allowed     bool    `json:"allowed"`
	Remaining   float64 `json:"remaining"`
	CurrentCost float64 `json:"current_cost"`
	DailyLimit  float64 `json:"daily_limit"`
	Reason      string  `json:"reason,omitempty"`
}

func NewCostControlService() (*CostControlService, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}

	tableName := "ustudy-user-spend"
	if envTable := os.Getenv("USER_SPEND_TABLE_NAME"); envTable != "" {
		tableName = envTable
	}

	return &CostControlService{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
	}, nil
}

// CheckUserSpendLimit checks if the user can make an LLM request within
// their daily limit.
func (s *CostControlService) CheckUserSpendLimit(ctx context.Context, userID string, estimatedCost float64) (*CostControlResult, error) {
	today := time.Now().Format("2006-01-02")

	record, err := s.getUserSpendRecord(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to get user spend record: %v", err)
	}

	if record == nil {
		record = &UserSpendRecord{
			UserID:     userID,
			Date:       today,
			DailyLimit: defaultDailyLimit(),
			CreatedAt:  time.Now().Format(time.RFC3339),
			UpdatedAt:  time.Now().Format(time.RFC3339),
		}
	}

	result := &CostControlResult{
		CurrentCost: record.LLMCost,
		DailyLimit:  record.DailyLimit,
		Remaining:   record.DailyLimit - record.LLMCost,
	}

	if record.LLMCost+estimatedCost > record.DailyLimit {
		result.Allowed = false
		result.Reason = fmt.Sprintf("Daily limit exceeded. Current: $%.4f, Request: $%.4f, Limit: $%.4f",
			record.LLMCost, estimatedCost, record.DailyLimit)
		return result, nil
	}

	result.Allowed = true
	return result, nil
}

// RecordLLMRequest records an LLM request and its cost
func (s *CostControlService) RecordLLMRequest(ctx context.Context, userID string, cost float64) error {
	today := time.Now().Format("2006-01-02")

	record, err := s.getUserSpendRecord(ctx, userID, today)
	if err != nil {
		return fmt.Errorf("failed to get user spend record: %v", err)
	}

	if record == nil {
		record = &UserSpendRecord{
			UserID:     userID,
			Date:       today,
			DailyLimit: defaultDailyLimit(),
			CreatedAt:  time.Now().Format(time.RFC3339),
		}
	}

	record.LLMRequests++
	record.LLMCost += cost
	record.UpdatedAt = time.Now().Format(time.RFC3339)
	record.TTL = time.Now().Add(7 * 24 * time.Hour).Unix() // Keep records for 7 days

	if err := s.saveUserSpendRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to save user spend record: %v", err)
	}

	return nil
}

// GetUserSpendSummary returns the user's current spend summary
func (s *CostControlService) GetUserSpendSummary(ctx context.Context, userID string) (*UserSpendRecord, error) {
	today := time.Now().Format("2006-01-02")
	return s.getUserSpendRecord(ctx, userID, today)
}

func (s *CostControlService) getUserSpendRecord(ctx context.Context, userID, date string) (*UserSpendRecord, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
			"date":    &types.AttributeValueMemberS{Value: date},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %v", err)
	}

	if result.Item == nil {
		return nil, nil // No record found
	}

	var record UserSpendRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %v", err)
	}

	return &record, nil
}

func (s *CostControlService) saveUserSpendRecord(ctx context.Context, record *UserSpendRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %v", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item: %v", err)
	}

	return nil
}

func defaultDailyLimit() float64 {
	if v := os.Getenv("LLM_DAILY_LIMIT_USD"); v != "" {
		if limit, err := strconv.ParseFloat(v, 64); err == nil && limit > 0 {
			return limit
		}
	}
	return 1.0 // $1.00 covers hundreds of deepseek-chat turns
}

// EstimateCost estimates the cost of a request from prompt length and the
// response token cap. A token averages about four characters of prompt text.
func EstimateCost(promptChars, maxOutputTokens int, model string) float64 {
	// Cost per 1K tokens
	costs := map[string]struct {
		input  float64
		output float64
	}{
		"deepseek-chat": {
			input:  0.00027, // $0.27 per 1M input tokens
			output: 0.00110, // $1.10 per 1M output tokens
		},
		"deepseek-reasoner": {
			input:  0.00055, // $0.55 per 1M input tokens
			output: 0.00219, // $2.19 per 1M output tokens
		},
	}

	modelCosts, exists := costs[model]
	if !exists {
		modelCosts = costs["deepseek-chat"]
	}

	inputCost := (float64(promptChars/4) / 1000.0) * modelCosts.input
	outputCost := (float64(maxOutputTokens) / 1000.0) * modelCosts.output

	return inputCost + outputCost
}
