package llm

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSpendTable serves a single stored record and captures writes.
type fakeSpendTable struct {
	record *UserSpendRecord
	put    *UserSpendRecord
}

func (f *fakeSpendTable) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.record == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	item, err := attributevalue.MarshalMap(f.record)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeSpendTable) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	var record UserSpendRecord
	if err := attributevalue.UnmarshalMap(params.Item, &record); err != nil {
		return nil, err
	}
	f.put = &record
	return &dynamodb.PutItemOutput{}, nil
}

func newTestCostControl(table *fakeSpendTable) *CostControlService {
	return &CostControlService{client: table, tableName: "spend-test"}
}

func TestCheckUserSpendLimitRefusesWhenExhausted(t *testing.T) {
	svc := newTestCostControl(&fakeSpendTable{
		record: &UserSpendRecord{
			UserID:     "user-1",
			Date:       time.Now().Format("2006-01-02"),
			LLMCost:    0.99,
			DailyLimit: 1.0,
		},
	})

	result, err := svc.CheckUserSpendLimit(context.Background(), "user-1", 0.05)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "Daily limit exceeded")
	assert.Equal(t, 0.99, result.CurrentCost)
	assert.Equal(t, 1.0, result.DailyLimit)
}

func TestCheckUserSpendLimitAllowsWithinBudget(t *testing.T) {
	svc := newTestCostControl(&fakeSpendTable{
		record: &UserSpendRecord{
			UserID:     "user-1",
			Date:       time.Now().Format("2006-01-02"),
			LLMCost:    0.10,
			DailyLimit: 1.0,
		},
	})

	result, err := svc.CheckUserSpendLimit(context.Background(), "user-1", 0.05)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Empty(t, result.Reason)
}

func TestCheckUserSpendLimitFirstRequestOfTheDay(t *testing.T) {
	svc := newTestCostControl(&fakeSpendTable{})

	result, err := svc.CheckUserSpendLimit(context.Background(), "user-1", 0.01)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Zero(t, result.CurrentCost)
}

func TestRecordLLMRequestAccumulates(t *testing.T) {
	table := &fakeSpendTable{
		record: &UserSpendRecord{
			UserID:      "user-1",
			Date:        time.Now().Format("2006-01-02"),
			LLMRequests: 2,
			LLMCost:     0.20,
			DailyLimit:  1.0,
		},
	}
	svc := newTestCostControl(table)

	require.NoError(t, svc.RecordLLMRequest(context.Background(), "user-1", 0.05))
	require.NotNil(t, table.put)
	assert.Equal(t, 3, table.put.LLMRequests)
	assert.InDelta(t, 0.25, table.put.LLMCost, 1e-9)
}
