package models

import "time"

// Role identifies a user's privileges within an account
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// User represents an individual principal belonging to one account.
// PasswordHash is empty for users provisioned through an external identity
// provider; those users cannot log in with a password until one is set.
type User struct {
	ID            int64
	AccountID     int64
	Email         string
	PasswordHash  string
	Name          string
	Avatar        string
	Role          Role
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPassword reports whether password login is available for this user
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Session is a bearer credential bound to one user. Only the SHA-256 digest
// of the token is persisted; the raw token is returned to the caller once at
// creation and never stored. UserAgent and IPAddress are audit metadata and
// play no part in authorization.
type Session struct {
	ID          int64
	TokenDigest string
	UserID      int64
	UserAgent   string
	IPAddress   string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// PasswordResetRequest is a single-use, time-bounded credential for one
// password change. At most one live request exists per user; issuing a new
// one supersedes any prior unused request.
type PasswordResetRequest struct {
	ID          int64
	TokenDigest string
	UserID      int64
	ExpiresAt   time.Time
	Used        bool
	CreatedAt   time.Time
}

// IsExpired checks if the reset request has expired
func (r *PasswordResetRequest) IsExpired() bool {
	return !time.Now().Before(r.ExpiresAt)
}

// ExternalIdentity is the provider-verified result of an OAuth token
// exchange. The core consumes it to resolve or provision a local user; it
// never owns provider access or refresh tokens.
type ExternalIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	Avatar   string
}
