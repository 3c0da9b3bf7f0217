package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"aidesk/internal/database"
	"aidesk/internal/models"
)

// SessionRepository handles database operations for bearer sessions. Sessions
// are keyed by token digest; raw tokens never reach this layer.
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (token_hash, user_id, user_agent, ip_address, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		session.TokenDigest, session.UserID, session.UserAgent, session.IPAddress, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	session.ID = id
	session.CreatedAt = time.Now()
	return nil
}

// GetByTokenDigest retrieves a session by token digest
func (r *SessionRepository) GetByTokenDigest(ctx context.Context, digest string) (*models.Session, error) {
	query := `
		SELECT id, token_hash, user_id, COALESCE(user_agent, ''), COALESCE(ip_address, ''), expires_at, created_at
		FROM sessions
		WHERE token_hash = ?
	`
	session := &models.Session{}
	err := r.db.QueryRow(ctx, query, digest).Scan(
		&session.ID,
		&session.TokenDigest,
		&session.UserID,
		&session.UserAgent,
		&session.IPAddress,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// DeleteByTokenDigest removes the session for a token. Deleting a session
// that is already gone is not an error.
func (r *SessionRepository) DeleteByTokenDigest(ctx context.Context, digest string) error {
	query := "DELETE FROM sessions WHERE token_hash = ?"
	if _, err := r.db.Exec(ctx, query, digest); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser removes every session belonging to a user
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	query := "DELETE FROM sessions WHERE user_id = ?"
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteAllForUserExcept removes every session for a user except the one
// identified by keepDigest. Used by authenticated password change so the
// caller keeps their current session.
func (r *SessionRepository) DeleteAllForUserExcept(ctx context.Context, userID int64, keepDigest string) error {
	query := "DELETE FROM sessions WHERE user_id = ? AND token_hash <> ?"
	if _, err := r.db.Exec(ctx, query, userID, keepDigest); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired sessions
func (r *SessionRepository) DeleteExpired(ctx context.Context) error {
	query := "DELETE FROM sessions WHERE expires_at < ?"
	if _, err := r.db.Exec(ctx, query, time.Now()); err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
