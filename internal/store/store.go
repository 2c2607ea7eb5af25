package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dabisonte04/API-UStudy/internal/models"
)

// Store wraps the shared *sql.DB with the queries the handlers and the chat
// pipeline need. Every method takes its own context; transactions never span
// method calls except where a method documents a single all-or-nothing batch.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func NewID() string {
	return uuid.NewString()
}

// ------------------ users ------------------

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, device_id) VALUES ($1, $2, $3, $4, NULLIF($5, ''))",
		u.ID, u.Name, u.Email, u.PasswordHash, u.DeviceID,
	)
	if err != nil {
		return fmt.Errorf("error creating user: %v", err)
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, COALESCE(device_id, '') FROM users WHERE id = $1", id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, COALESCE(device_id, '') FROM users WHERE email = $1", email))
}

// scanUser returns (nil, nil) when the row does not exist.
func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.DeviceID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %v", err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, password_hash, COALESCE(device_id, '') FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("error listing users: %v", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.DeviceID); err != nil {
			return nil, fmt.Errorf("error scanning user: %v", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserProfile(ctx context.Context, id, name, email string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET name = $2, email = $3 WHERE id = $1", id, name, email)
	if err != nil {
		return fmt.Errorf("error updating user: %v", err)
	}
	return nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $2 WHERE id = $1", id, passwordHash)
	if err != nil {
		return fmt.Errorf("error updating password: %v", err)
	}
	return nil
}

func (s *Store) UpdateUserDevice(ctx context.Context, id, deviceID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET device_id = $2 WHERE id = $1", id, deviceID)
	if err != nil {
		return fmt.Errorf("error updating device id: %v", err)
	}
	return nil
}

// ------------------ psychological states ------------------

// CreatePsychState persists a state snapshot together with the questionnaire
// answers that produced it, in a single transaction.
func (s *Store) CreatePsychState(ctx context.Context, st *models.PsychologicalState, answers []models.AssessmentAnswer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO psych_states (id, user_id, level, description, created_at) VALUES ($1, $2, $3, $4, $5)",
		st.ID, st.UserID, st.Level, st.Description, st.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating psychological state: %v", err)
	}

	for _, a := range answers {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO assessment_answers (id, user_id, question, value, created_at) VALUES ($1, $2, $3, $4, $5)",
			a.ID, a.UserID, a.Question, a.Value, a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("error creating assessment answer: %v", err)
		}
	}

	return tx.Commit()
}

// LatestPsychState returns the most recent snapshot, or nil when the user has
// none.
func (s *Store) LatestPsychState(ctx context.Context, userID string) (*models.PsychologicalState, error) {
	var st models.PsychologicalState
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, level, description, created_at FROM psych_states WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1",
		userID,
	).Scan(&st.ID, &st.UserID, &st.Level, &st.Description, &st.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching psychological state: %v", err)
	}
	return &st, nil
}

func (s *Store) HasPsychState(ctx context.Context, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM psych_states WHERE user_id = $1", userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error counting psychological states: %v", err)
	}
	return n > 0, nil
}
