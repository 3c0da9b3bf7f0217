package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"aidesk/internal/database"
	"aidesk/internal/models"
)

// ResetRepository handles database operations for password reset requests
type ResetRepository struct {
	db *database.DB
}

// NewResetRepository creates a new reset repository
func NewResetRepository(db *database.DB) *ResetRepository {
	return &ResetRepository{db: db}
}

// Supersede replaces any prior reset request for the user with a new one in a
// single transaction. Only the newest token for a user is ever live.
func (r *ResetRepository) Supersede(ctx context.Context, request *models.PasswordResetRequest) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(ctx, "DELETE FROM password_resets WHERE user_id = ?", request.UserID); err != nil {
		return fmt.Errorf("failed to clear prior reset requests: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO password_resets (token_hash, user_id, expires_at, used)
		VALUES (?, ?, ?, %s)
	`, r.db.Dialect.BoolValue(false))
	id, err := tx.ExecReturningID(ctx, query, request.TokenDigest, request.UserID, request.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create reset request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	request.ID = id
	request.Used = false
	request.CreatedAt = time.Now()
	return nil
}

// GetByTokenDigest retrieves a reset request by token digest
func (r *ResetRepository) GetByTokenDigest(ctx context.Context, digest string) (*models.PasswordResetRequest, error) {
	query := `
		SELECT id, token_hash, user_id, expires_at, used, created_at
		FROM password_resets
		WHERE token_hash = ?
	`
	request := &models.PasswordResetRequest{}
	err := r.db.QueryRow(ctx, query, digest).Scan(
		&request.ID,
		&request.TokenDigest,
		&request.UserID,
		&request.ExpiresAt,
		&request.Used,
		&request.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset request: %w", err)
	}

	return request, nil
}

// ConsumeAndSetPassword marks the reset request for digest as used and writes
// the new password hash in one transaction. Exactly one caller can win; a
// request that is absent, expired, or already used returns ErrNotFound. On
// success the owning user's id is returned.
func (r *ResetRepository) ConsumeAndSetPassword(ctx context.Context, digest, passwordHash string) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		id        int64
		userID    int64
		expiresAt time.Time
		used      bool
	)
	query := `
		SELECT id, user_id, expires_at, used
		FROM password_resets
		WHERE token_hash = ?
	`
	err = tx.QueryRow(ctx, query, digest).Scan(&id, &userID, &expiresAt, &used)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get reset request: %w", err)
	}

	if used || !time.Now().Before(expiresAt) {
		return 0, ErrNotFound
	}

	// The guarded update decides concurrent consumers: whoever flips used
	// first wins, everyone else sees zero rows affected.
	consume := fmt.Sprintf("UPDATE password_resets SET used = %s WHERE id = ? AND used = %s",
		r.db.Dialect.BoolValue(true), r.db.Dialect.BoolValue(false))
	result, err := tx.Exec(ctx, consume, id)
	if err != nil {
		return 0, fmt.Errorf("failed to consume reset request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check consumed rows: %w", err)
	}
	if affected == 0 {
		return 0, ErrNotFound
	}

	query = `
		UPDATE users
		SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := tx.Exec(ctx, query, passwordHash, userID); err != nil {
		return 0, fmt.Errorf("failed to update password: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return userID, nil
}

// DeleteExpired removes all expired reset requests
func (r *ResetRepository) DeleteExpired(ctx context.Context) error {
	query := "DELETE FROM password_resets WHERE expires_at < ?"
	if _, err := r.db.Exec(ctx, query, time.Now()); err != nil {
		return fmt.Errorf("failed to delete expired reset requests: %w", err)
	}
	return nil
}
