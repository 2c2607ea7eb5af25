package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dabisonte04/API-UStudy/internal/models"
)

const taskColumns = "id, user_id, title, description, completed, synchronized, COALESCE(priority, ''), remind_at, origin, created_at, updated_at"

func insertTask(ctx context.Context, tx *sql.Tx, t *models.Task) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO tasks (id, user_id, title, description, completed, synchronized, priority, remind_at, origin, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		t.ID, t.UserID, t.Title, t.Description, t.Completed, t.Synchronized, t.Priority, t.RemindAt, t.Origin, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving task: %v", err)
	}
	return nil
}

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	if err := insertTask(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateAITasks persists a reconciliation batch all-or-nothing. An empty
// batch performs no write at all.
func (s *Store) CreateAITasks(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	for _, t := range tasks {
		if err := insertTask(ctx, tx, &t); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TaskByID returns (nil, nil) when the task does not exist.
func (s *Store) TaskByID(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)

	var t models.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.Synchronized, &t.Priority, &t.RemindAt, &t.Origin, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching task: %v", err)
	}
	return &t, nil
}

func (s *Store) TasksByUser(ctx context.Context, userID string) ([]models.Task, error) {
	return s.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = $1 ORDER BY created_at DESC", userID)
}

func (s *Store) TasksByCompleted(ctx context.Context, userID string, completed bool) ([]models.Task, error) {
	return s.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = $1 AND completed = $2 ORDER BY created_at DESC",
		userID, completed)
}

// FilterTasks narrows by priority and/or origin; empty strings mean no
// filter on that column.
func (s *Store) FilterTasks(ctx context.Context, userID, priority, origin string) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = $1"
	args := []interface{}{userID}
	if priority != "" {
		args = append(args, priority)
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}
	if origin != "" {
		args = append(args, origin)
		query += fmt.Sprintf(" AND origin = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	return s.queryTasks(ctx, query, args...)
}

// AITasks returns every AI-originated task for the user; the reconciler
// builds its dedup title set from this.
func (s *Store) AITasks(ctx context.Context, userID string) ([]models.Task, error) {
	return s.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = $1 AND origin = $2 ORDER BY created_at DESC",
		userID, models.OriginAI)
}

// TasksCreatedAfter returns tasks newer than `since` (all tasks when since is
// nil), newest first. Used by the client pull-sync endpoint.
func (s *Store) TasksCreatedAfter(ctx context.Context, userID string, since *time.Time) ([]models.Task, error) {
	if since == nil {
		return s.TasksByUser(ctx, userID)
	}
	return s.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = $1 AND created_at > $2 ORDER BY created_at DESC",
		userID, *since)
}

func (s *Store) UpdateTask(ctx context.Context, t *models.Task) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET title = $2, description = $3, completed = $4, synchronized = $5, priority = $6, remind_at = $7, origin = $8, updated_at = $9 WHERE id = $1",
		t.ID, t.Title, t.Description, t.Completed, t.Synchronized, t.Priority, t.RemindAt, t.Origin, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error updating task: %v", err)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("error deleting task: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error deleting task: %v", err)
	}
	return n > 0, nil
}

// MarkTasksSynchronized flags the given tasks as acknowledged by the client
// and returns how many rows actually changed.
func (s *Store) MarkTasksSynchronized(ctx context.Context, userID string, ids []string) (int, error) {
	updated := 0
	for _, id := range ids {
		res, err := s.db.ExecContext(ctx,
			"UPDATE tasks SET synchronized = TRUE, updated_at = $3 WHERE id = $1 AND user_id = $2",
			id, userID, time.Now().UTC())
		if err != nil {
			return updated, fmt.Errorf("error marking task synchronized: %v", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			updated++
		}
	}
	return updated, nil
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error fetching tasks: %v", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.Synchronized, &t.Priority, &t.RemindAt, &t.Origin, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning task: %v", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
