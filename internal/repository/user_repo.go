package repository

import (
	"context"
	"database/sql"
	"fmt"

	"aidesk/internal/database"
	"aidesk/internal/models"
)

const userColumns = `id, account_id, email, COALESCE(password_hash, ''), name, COALESCE(avatar, ''), role, email_verified, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByEmail retrieves a user by email. Emails are stored lowercased, so
// callers must normalize before lookup.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// UpdateProfile updates a user's display name and avatar
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, name, avatar string) error {
	query := `
		UPDATE users
		SET name = ?, avatar = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(ctx, query, name, avatar, id); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdatePassword replaces a user's password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(ctx, query, passwordHash, id); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// SetEmailVerified flips the email-verified flag
func (r *UserRepository) SetEmailVerified(ctx context.Context, id int64, verified bool) error {
	query := `
		UPDATE users
		SET email_verified = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(ctx, query, verified, id); err != nil {
		return fmt.Errorf("failed to update email verification: %w", err)
	}
	return nil
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var role string
	err := row.Scan(
		&user.ID,
		&user.AccountID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Avatar,
		&role,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Role = models.Role(role)
	return user, nil
}
