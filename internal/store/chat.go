package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dabisonte04/API-UStudy/internal/models"
)

// RecentChatTurns returns the user's last `limit` turns in chronological
// order, the window the orchestrator feeds into the prompt.
func (s *Store) RecentChatTurns(ctx context.Context, userID string, limit int) ([]models.ChatTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, user_message, ai_response, recommended_form, created_at FROM chat_turns WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("error fetching chat history: %v", err)
	}
	turns, err := scanChatTurns(rows)
	if err != nil {
		return nil, err
	}
	reverseTurns(turns)
	return turns, nil
}

// ChatTurnsAscending pages through history oldest-first, for the
// older-messages pages of the history endpoint.
func (s *Store) ChatTurnsAscending(ctx context.Context, userID string, offset, limit int) ([]models.ChatTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, user_message, ai_response, recommended_form, created_at FROM chat_turns WHERE user_id = $1 ORDER BY created_at ASC OFFSET $2 LIMIT $3",
		userID, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("error fetching chat history: %v", err)
	}
	return scanChatTurns(rows)
}

// AllChatTurns returns the full history newest-first, for the backfill
// endpoint that mines every stored AI response.
func (s *Store) AllChatTurns(ctx context.Context, userID string) ([]models.ChatTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, user_message, ai_response, recommended_form, created_at FROM chat_turns WHERE user_id = $1 ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("error fetching chat history: %v", err)
	}
	return scanChatTurns(rows)
}

func (s *Store) CountChatTurns(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chat_turns WHERE user_id = $1", userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting chat turns: %v", err)
	}
	return n, nil
}

// SaveChatTurn persists one turn and any tasks generated from it in a single
// transaction. A failure rolls back both.
func (s *Store) SaveChatTurn(ctx context.Context, turn *models.ChatTurn, tasks []models.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO chat_turns (id, user_id, user_message, ai_response, recommended_form, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		turn.ID, turn.UserID, turn.UserMessage, turn.AIResponse, turn.RecommendedForm, turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving chat turn: %v", err)
	}

	for _, t := range tasks {
		if err := insertTask(ctx, tx, &t); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func reverseTurns(turns []models.ChatTurn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}

func scanChatTurns(rows *sql.Rows) ([]models.ChatTurn, error) {
	defer rows.Close()

	var turns []models.ChatTurn
	for rows.Next() {
		var t models.ChatTurn
		if err := rows.Scan(&t.ID, &t.UserID, &t.UserMessage, &t.AIResponse, &t.RecommendedForm, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning chat turn: %v", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
