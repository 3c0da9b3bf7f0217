package service

import (
	"context"

	"aidesk/internal/models"
)

// The store interfaces below are what the services actually consume. The SQL
// implementations live in internal/repository; tests substitute in-memory
// fakes. Compound operations that must be atomic (tenant provisioning,
// consuming a reset request) are single methods so the store owns the
// transaction boundary.

// AccountStore persists tenant accounts. UpdatePlan is the entry point for
// billing flows; the authentication services themselves never call it.
type AccountStore interface {
	ProvisionWithOwner(ctx context.Context, account *models.Account, user *models.User, session *models.Session) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	UpdatePlan(ctx context.Context, id int64, plan models.Plan) error
}

// UserStore persists users
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, name, avatar string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// SessionStore persists bearer sessions, keyed by token digest
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetByTokenDigest(ctx context.Context, digest string) (*models.Session, error)
	DeleteByTokenDigest(ctx context.Context, digest string) error
	DeleteAllForUser(ctx context.Context, userID int64) error
	DeleteAllForUserExcept(ctx context.Context, userID int64, keepDigest string) error
	DeleteExpired(ctx context.Context) error
}

// ResetStore persists password reset requests
type ResetStore interface {
	Supersede(ctx context.Context, request *models.PasswordResetRequest) error
	GetByTokenDigest(ctx context.Context, digest string) (*models.PasswordResetRequest, error)
	ConsumeAndSetPassword(ctx context.Context, digest, passwordHash string) (int64, error)
	DeleteExpired(ctx context.Context) error
}
