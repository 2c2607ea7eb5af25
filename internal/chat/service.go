package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dabisonte04/API-UStudy/internal/llm"
	"github.com/dabisonte04/API-UStudy/internal/models"
)

// historyWindow bounds how many prior turns feed the prompt and the
// recommendation check.
const historyWindow = 10

// ErrInvalidInput marks a validation failure: nothing was called and
// nothing was persisted.
var ErrInvalidInput = errors.New("usuario_id and mensaje are required")

// Store is the persistence the orchestrator needs for one turn.
type Store interface {
	TaskStore
	LatestPsychState(ctx context.Context, userID string) (*models.PsychologicalState, error)
	RecentChatTurns(ctx context.Context, userID string, limit int) ([]models.ChatTurn, error)
	SaveChatTurn(ctx context.Context, turn *models.ChatTurn, tasks []models.Task) error
}

// AIClient is the external chat-completion boundary.
type AIClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (string, error)
}

// TurnResult is what one completed exchange returns to the handler.
type TurnResult struct {
	Text             string
	IsRecommendation bool
	GeneratedTasks   []models.Task
}

// Service orchestrates one conversation turn: context assembly, the AI
// call, task extraction, response cleanup, and persistence.
type Service struct {
	store      Store
	ai         AIClient
	extractor  *Extractor
	reconciler *Reconciler
	logger     *zap.Logger
}

func NewService(store Store, ai AIClient, logger *zap.Logger) *Service {
	extractor := NewExtractor(logger)
	return &Service{
		store:      store,
		ai:         ai,
		extractor:  extractor,
		reconciler: NewReconciler(store, extractor, logger),
		logger:     logger,
	}
}

// Reconciler exposes the backfill pass for the history endpoints.
func (s *Service) Reconciler() *Reconciler {
	return s.reconciler
}

// HandleTurn runs one exchange for the user. An AI-boundary or
// primary-commit failure is fatal and persists nothing; a failure in the
// trailing backfill pass is logged and swallowed so the turn still
// succeeds.
func (s *Service) HandleTurn(ctx context.Context, userID, message string) (*TurnResult, error) {
	if userID == "" || message == "" {
		return nil, ErrInvalidInput
	}

	state, err := s.store.LatestPsychState(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.RecentChatTurns(ctx, userID, historyWindow)
	if err != nil {
		return nil, err
	}
	alreadyRecommended := AlreadyRecommended(history)

	s.logger.Info("starting conversation turn",
		zap.String("user_id", userID),
		zap.Bool("has_state", state != nil),
		zap.Int("history", len(history)),
		zap.Bool("already_recommended", alreadyRecommended))

	prompt := buildPrompt(history, message, state, alreadyRecommended)

	raw, err := s.ai.Chat(ctx, llm.ChatRequest{
		System:      systemPersona,
		Prompt:      prompt,
		Temperature: 0.6,
		MaxTokens:   700,
	})
	if err != nil {
		return nil, err
	}

	isRecommendation := strings.Contains(raw, Sentinel)
	raw = strings.TrimSpace(strings.ReplaceAll(raw, Sentinel, ""))

	// Extract tasks from the raw text before the blocks are stripped out.
	// Suggestions are only honored once the user has an assessed state.
	var tasks []models.Task
	if state != nil {
		for _, c := range s.extractor.ExtractTasks(raw) {
			tasks = append(tasks, NewAITask(userID, c))
		}
	}

	cleaned := CleanResponse(raw)

	turn := &models.ChatTurn{
		ID:              uuid.NewString(),
		UserID:          userID,
		UserMessage:     message,
		AIResponse:      cleaned,
		RecommendedForm: isRecommendation,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.SaveChatTurn(ctx, turn, tasks); err != nil {
		return nil, err
	}

	// Backfill pass over the pre-turn history window. Deliberately a
	// separate transaction: its failure must not undo the turn above.
	if _, err := s.reconciler.Reconcile(ctx, userID, history); err != nil {
		s.logger.Error("history task backfill failed", zap.String("user_id", userID), zap.Error(err))
	}

	s.logger.Info("conversation turn completed",
		zap.String("user_id", userID),
		zap.Bool("recommended_form", isRecommendation),
		zap.Int("generated_tasks", len(tasks)))

	return &TurnResult{
		Text:             cleaned,
		IsRecommendation: isRecommendation,
		GeneratedTasks:   tasks,
	}, nil
}
