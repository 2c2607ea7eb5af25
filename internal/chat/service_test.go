package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dabisonte04/API-UStudy/internal/llm"
	"github.com/dabisonte04/API-UStudy/internal/models"
)

// fakeStore is an in-memory Store for exercising the pipeline without a
// database.
type fakeStore struct {
	state      *models.PsychologicalState
	history    []models.ChatTurn
	aiTasks    []models.Task
	savedTurn  *models.ChatTurn
	savedTasks []models.Task

	aiTasksErr error
	createErr  error
	saveErr    error

	createCalls int
	saveCalls   int
}

func (f *fakeStore) AITasks(ctx context.Context, userID string) ([]models.Task, error) {
	if f.aiTasksErr != nil {
		return nil, f.aiTasksErr
	}
	return f.aiTasks, nil
}

func (f *fakeStore) CreateAITasks(ctx context.Context, tasks []models.Task) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.aiTasks = append(f.aiTasks, tasks...)
	return nil
}

func (f *fakeStore) LatestPsychState(ctx context.Context, userID string) (*models.PsychologicalState, error) {
	return f.state, nil
}

func (f *fakeStore) RecentChatTurns(ctx context.Context, userID string, limit int) ([]models.ChatTurn, error) {
	return f.history, nil
}

func (f *fakeStore) SaveChatTurn(ctx context.Context, turn *models.ChatTurn, tasks []models.Task) error {
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedTurn = turn
	f.savedTasks = tasks
	return nil
}

type fakeAI struct {
	reply   string
	err     error
	calls   int
	lastReq llm.ChatRequest
}

func (f *fakeAI) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestService(store *fakeStore, ai *fakeAI) *Service {
	return NewService(store, ai, zap.NewNop())
}

func TestHandleTurnValidation(t *testing.T) {
	store := &fakeStore{}
	ai := &fakeAI{}
	svc := newTestService(store, ai)

	_, err := svc.HandleTurn(context.Background(), "user-1", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.HandleTurn(context.Background(), "", "hello")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Zero(t, ai.calls, "AI boundary must not be invoked")
	assert.Zero(t, store.saveCalls, "nothing may be persisted")
}

func TestHandleTurnFirstMessageRecommendsForm(t *testing.T) {
	store := &fakeStore{} // no state, no history
	ai := &fakeAI{reply: "Welcome. I am here for you.\n\n" + Sentinel}
	svc := newTestService(store, ai)

	result, err := svc.HandleTurn(context.Background(), "user-1", "hi")
	require.NoError(t, err)

	assert.True(t, result.IsRecommendation)
	assert.NotContains(t, result.Text, Sentinel)
	assert.Contains(t, result.Text, "Welcome.")
	assert.Empty(t, result.GeneratedTasks)

	// The prompt asked for the sentinel, not for a task block.
	assert.Contains(t, ai.lastReq.Prompt, Sentinel)
	assert.NotContains(t, ai.lastReq.Prompt, "Suggested task block:")

	require.NotNil(t, store.savedTurn)
	assert.True(t, store.savedTurn.RecommendedForm)
	assert.NotContains(t, store.savedTurn.AIResponse, Sentinel)
}

func TestHandleTurnAlreadyRecommendedOmitsExtensions(t *testing.T) {
	store := &fakeStore{
		history: []models.ChatTurn{{AIResponse: "earlier reply", RecommendedForm: true}},
	}
	ai := &fakeAI{reply: "Glad you came back."}
	svc := newTestService(store, ai)

	result, err := svc.HandleTurn(context.Background(), "user-1", "hello again")
	require.NoError(t, err)

	assert.False(t, result.IsRecommendation)
	assert.NotContains(t, ai.lastReq.Prompt, Sentinel)
	assert.NotContains(t, ai.lastReq.Prompt, "Suggested task block:")
	assert.False(t, store.savedTurn.RecommendedForm)
}

func TestHandleTurnWithStateExtractsAndPersistsTasks(t *testing.T) {
	store := &fakeStore{
		state: &models.PsychologicalState{Level: models.LevelYellow, Description: "moderate symptoms"},
	}
	ai := &fakeAI{reply: "Try something gentle.\n\n```json\n" +
		`[{"titulo": "Walk", "descripcion": "10 minutes outside", "prioridad": "baja"}]` +
		"\n```"}
	svc := newTestService(store, ai)

	result, err := svc.HandleTurn(context.Background(), "user-1", "feeling flat")
	require.NoError(t, err)

	// The prompt carried the state and the task-block instructions.
	assert.Contains(t, ai.lastReq.Prompt, "Suggested task block:")
	assert.Contains(t, ai.lastReq.Prompt, models.LevelYellow)
	assert.Equal(t, 0.6, ai.lastReq.Temperature)
	assert.Equal(t, 700, ai.lastReq.MaxTokens)

	require.Len(t, result.GeneratedTasks, 1)
	task := result.GeneratedTasks[0]
	assert.Equal(t, "Walk", task.Title)
	assert.Equal(t, models.PriorityLow, task.Priority)
	assert.Equal(t, models.OriginAI, task.Origin)
	assert.False(t, task.Completed)
	assert.False(t, task.Synchronized)

	// Turn and tasks go into the same SaveChatTurn call.
	require.Len(t, store.savedTasks, 1)
	assert.Equal(t, "Walk", store.savedTasks[0].Title)
	assert.NotContains(t, result.Text, "titulo")
	assert.Contains(t, result.Text, "Try something gentle.")
}

func TestHandleTurnWithoutStateIgnoresTaskBlock(t *testing.T) {
	store := &fakeStore{
		history: []models.ChatTurn{{AIResponse: "please take the assessment"}},
	}
	ai := &fakeAI{reply: "Here you go.\n```json\n" +
		`[{"titulo": "Walk", "descripcion": "10 minutes outside", "prioridad": "baja"}]` +
		"\n```"}
	svc := newTestService(store, ai)

	result, err := svc.HandleTurn(context.Background(), "user-1", "hi")
	require.NoError(t, err)
	assert.Empty(t, result.GeneratedTasks)
	assert.Empty(t, store.savedTasks)
}

func TestHandleTurnAIFailureIsFatal(t *testing.T) {
	store := &fakeStore{}
	ai := &fakeAI{err: errors.New("deepseek API status 500")}
	svc := newTestService(store, ai)

	_, err := svc.HandleTurn(context.Background(), "user-1", "hi")
	require.Error(t, err)
	assert.Zero(t, store.saveCalls, "no partial chat turn may be persisted")
}

func TestHandleTurnPrimaryCommitFailureIsFatal(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("connection reset")}
	ai := &fakeAI{reply: "fine reply"}
	svc := newTestService(store, ai)

	_, err := svc.HandleTurn(context.Background(), "user-1", "hi")
	require.Error(t, err)
}

func TestHandleTurnBackfillFailureDoesNotFailTurn(t *testing.T) {
	store := &fakeStore{
		state: &models.PsychologicalState{Level: models.LevelGreen},
		history: []models.ChatTurn{
			{AIResponse: "old reply\n```json\n" +
				`[{"titulo": "Hydrate", "descripcion": "drink some water", "prioridad": "media"}]` +
				"\n```"},
		},
		createErr: errors.New("insert failed"),
	}
	ai := &fakeAI{reply: "plain reply"}
	svc := newTestService(store, ai)

	result, err := svc.HandleTurn(context.Background(), "user-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "plain reply", result.Text)
	assert.Equal(t, 1, store.saveCalls)
	assert.Equal(t, 1, store.createCalls, "backfill was attempted")
}
