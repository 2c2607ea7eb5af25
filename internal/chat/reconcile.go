package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dabisonte04/API-UStudy/internal/models"
)

// TaskStore is the slice of persistence the reconciler needs.
type TaskStore interface {
	AITasks(ctx context.Context, userID string) ([]models.Task, error)
	CreateAITasks(ctx context.Context, tasks []models.Task) error
}

// Reconciler mines chat history for AI-suggested tasks that were never
// persisted and backfills them, deduplicating on title within origin=ia.
type Reconciler struct {
	store     TaskStore
	extractor *Extractor
	logger    *zap.Logger
}

func NewReconciler(store TaskStore, extractor *Extractor, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, extractor: extractor, logger: logger}
}

// Reconcile extracts task candidates from every AI response in history and
// persists the ones whose titles are not yet stored, in a single
// all-or-nothing batch. It returns the number of newly persisted tasks.
// Re-running over the same history is a no-op.
//
// Two concurrent calls for the same user can race the title check
// (read-then-write, no row locking); that weak consistency is an accepted
// property of the title-based dedup, not something this code tries to
// serialize away.
func (r *Reconciler) Reconcile(ctx context.Context, userID string, history []models.ChatTurn) (int, error) {
	existing, err := r.store.AITasks(ctx, userID)
	if err != nil {
		return 0, err
	}

	titles := make(map[string]bool, len(existing))
	for _, t := range existing {
		titles[t.Title] = true
	}

	var batch []models.Task
	for _, turn := range history {
		if turn.AIResponse == "" {
			continue
		}

		candidates := r.extractor.ExtractTasks(turn.AIResponse)
		if len(candidates) == 0 {
			candidates = r.extractor.ScanPlainText(turn.AIResponse)
		}

		for _, c := range candidates {
			task := NewAITask(userID, c)
			if task.Title == "" || titles[task.Title] {
				continue
			}
			titles[task.Title] = true
			batch = append(batch, task)
		}
	}

	if len(batch) == 0 {
		return 0, nil
	}

	if err := r.store.CreateAITasks(ctx, batch); err != nil {
		return 0, err
	}

	r.logger.Info("backfilled tasks from chat history",
		zap.String("user_id", userID),
		zap.Int("tasks", len(batch)))
	return len(batch), nil
}

// NewAITask builds a persistable AI-originated task from a candidate,
// truncating the title to the column limit and defaulting the priority.
func NewAITask(userID string, c TaskCandidate) models.Task {
	title := models.TruncateTitle(c.Title)
	priority := c.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	now := time.Now().UTC()
	return models.Task{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        title,
		Description:  c.Description,
		Priority:     priority,
		Origin:       models.OriginAI,
		Completed:    false,
		Synchronized: false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
