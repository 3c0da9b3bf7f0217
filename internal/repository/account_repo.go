package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"aidesk/internal/database"
	"aidesk/internal/models"
)

// AccountRepository handles database operations for accounts, including the
// transactional provisioning of a tenant with its first user
type AccountRepository struct {
	db *database.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// ProvisionWithOwner creates an account, its owner user, and the owner's
// first session in a single transaction. All three rows exist afterwards or
// none do. A unique-constraint loss on email or account_id returns
// ErrDuplicateKey with nothing written.
func (r *AccountRepository) ProvisionWithOwner(ctx context.Context, account *models.Account, user *models.User, session *models.Session) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO accounts (account_id, name, plan, billing_email, stripe_customer_id)
		VALUES (?, ?, ?, ?, ?)
	`
	accountID, err := tx.ExecReturningID(ctx, query,
		account.AccountID, account.Name, string(account.Plan), account.BillingEmail, account.StripeCustomerID)
	if err != nil {
		if r.db.IsUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	query = `
		INSERT INTO users (account_id, email, password_hash, name, avatar, role, email_verified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	userID, err := tx.ExecReturningID(ctx, query,
		accountID, user.Email, user.PasswordHash, user.Name, user.Avatar, string(user.Role), user.EmailVerified)
	if err != nil {
		if r.db.IsUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	query = `
		INSERT INTO sessions (token_hash, user_id, user_agent, ip_address, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`
	sessionID, err := tx.ExecReturningID(ctx, query,
		session.TokenDigest, userID, session.UserAgent, session.IPAddress, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	now := time.Now()
	account.ID = accountID
	account.CreatedAt = now
	account.UpdatedAt = now
	user.ID = userID
	user.AccountID = accountID
	user.CreatedAt = now
	user.UpdatedAt = now
	session.ID = sessionID
	session.UserID = userID
	session.CreatedAt = now

	return nil
}

// GetByID retrieves an account by internal id
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `
		SELECT id, account_id, name, plan, COALESCE(billing_email, ''), COALESCE(stripe_customer_id, ''), created_at, updated_at
		FROM accounts
		WHERE id = ?
	`
	return r.scanAccount(r.db.QueryRow(ctx, query, id))
}

// GetByAccountID retrieves an account by its external identifier
func (r *AccountRepository) GetByAccountID(ctx context.Context, accountID string) (*models.Account, error) {
	query := `
		SELECT id, account_id, name, plan, COALESCE(billing_email, ''), COALESCE(stripe_customer_id, ''), created_at, updated_at
		FROM accounts
		WHERE account_id = ?
	`
	return r.scanAccount(r.db.QueryRow(ctx, query, accountID))
}

// UpdatePlan changes an account's billing tier. Called by billing flows; the
// authentication core itself never mutates plans.
func (r *AccountRepository) UpdatePlan(ctx context.Context, id int64, plan models.Plan) error {
	query := `
		UPDATE accounts
		SET plan = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(ctx, query, string(plan), id); err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	return nil
}

func (r *AccountRepository) scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	var plan string
	err := row.Scan(
		&account.ID,
		&account.AccountID,
		&account.Name,
		&plan,
		&account.BillingEmail,
		&account.StripeCustomerID,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.Plan = models.Plan(plan)
	return account, nil
}
