package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aidesk/internal/models"
	"aidesk/internal/repository"
	"aidesk/internal/security"
	"aidesk/internal/validation"
)

// dummySecret seeds the throwaway digest burned on login failures for
// unknown or passwordless emails. The digest must be hashed at the same cost
// as real user hashes; bcrypt compare time doubles per cost step, so a
// cheaper dummy would make the two failure paths distinguishable by latency.
const dummySecret = "aidesk.dummy.credential"

// AuthResult carries everything a successful register or login produces. The
// raw session token exists only here; every stored copy is a digest.
type AuthResult struct {
	User    *models.User
	Account *models.Account
	Session *models.Session
	Token   string
}

// RegisterInput is the payload for creating a new tenant and its owner
type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	AccountName string
	UserAgent   string
	IPAddress   string
}

// AuthService handles registration, login, and session authentication
type AuthService struct {
	accounts          AccountStore
	users             UserStore
	sessions          SessionStore
	sessionDuration   time.Duration
	bcryptCost        int
	passwordMinLength int
	dummyPasswordHash string
}

// NewAuthService creates a new auth service
func NewAuthService(accounts AccountStore, users UserStore, sessions SessionStore, sessionDuration time.Duration, bcryptCost, passwordMinLength int) *AuthService {
	dummyHash, err := security.HashPasswordWithCost(dummySecret, bcryptCost)
	if err != nil {
		// An out-of-range cost fails every hash, registration included; keep
		// a digest at the default cost so login still burns real work.
		dummyHash, _ = security.HashPasswordWithCost(dummySecret, security.DefaultBcryptCost)
	}
	return &AuthService{
		accounts:          accounts,
		users:             users,
		sessions:          sessions,
		sessionDuration:   sessionDuration,
		bcryptCost:        bcryptCost,
		passwordMinLength: passwordMinLength,
		dummyPasswordHash: dummyHash,
	}
}

// Register provisions a new account with its owner user and signs them in.
// The account, user, and first session are created atomically; losing a
// concurrent race for the email returns ErrEmailTaken with nothing written.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if err := validation.ValidateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(input.Password, s.passwordMinLength); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(input.Name); err != nil {
		return nil, err
	}

	email := validation.NormalizeEmail(input.Email)

	// Fast path for the common case; the unique constraint still decides
	// concurrent registrations.
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPasswordWithCost(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	accountID, err := security.NewAccountID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate account id: %w", err)
	}

	accountName := strings.TrimSpace(input.AccountName)
	if accountName == "" {
		accountName = input.Name + "'s Workspace"
	}

	token, err := security.NewToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	account := &models.Account{
		AccountID: accountID,
		Name:      accountName,
		Plan:      models.PlanFree,
	}
	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         input.Name,
		Role:         models.RoleOwner,
	}
	session := &models.Session{
		TokenDigest: security.TokenDigest(token),
		UserAgent:   input.UserAgent,
		IPAddress:   input.IPAddress,
		ExpiresAt:   time.Now().Add(s.sessionDuration),
	}

	if err := s.accounts.ProvisionWithOwner(ctx, account, user, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to provision account: %w", err)
	}

	return &AuthResult{User: user, Account: account, Session: session, Token: token}, nil
}

// Login verifies credentials and creates a session. Unknown email and wrong
// password return the same ErrInvalidCredentials after the same bcrypt work.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		// Burn a verification against a throwaway hash so this path takes
		// as long as a wrong password does.
		security.CheckPassword(password, s.dummyPasswordHash)
		return nil, ErrInvalidCredentials
	}
	if !user.HasPassword() {
		// External-identity users have no password to check
		security.CheckPassword(password, s.dummyPasswordHash)
		return nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user, userAgent, ipAddress)
}

// Authenticate resolves a bearer token to its user and account. Reads never
// extend the session; expiry is fixed at issuance.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*AuthResult, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	digest := security.TokenDigest(token)
	session, err := s.sessions.GetByTokenDigest(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrUnauthenticated
	}
	if session.IsExpired() {
		// The background sweep removes expired rows; reads stay read-only
		return nil, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}

	account, err := s.accounts.GetByID(ctx, user.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrUnauthenticated
	}

	return &AuthResult{User: user, Account: account, Session: session, Token: token}, nil
}

// Logout revokes the session behind a token. Revoking a token that no longer
// maps to a session succeeds; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByTokenDigest(ctx, security.TokenDigest(token)); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// RevokeAll removes every session belonging to a user
func (s *AuthService) RevokeAll(ctx context.Context, userID int64) error {
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// ChangePassword verifies the current password, sets the new one, and revokes
// every other session. The calling session survives so the user is not
// logged out of the device they changed the password from.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword, callingToken string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrUnauthenticated
	}

	if !user.HasPassword() || !security.CheckPassword(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := validation.ValidatePassword(newPassword, s.passwordMinLength); err != nil {
		return err
	}

	passwordHash, err := security.HashPasswordWithCost(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessions.DeleteAllForUserExcept(ctx, userID, security.TokenDigest(callingToken)); err != nil {
		return fmt.Errorf("failed to revoke other sessions: %w", err)
	}

	return nil
}

// UpdateProfile changes a user's display name and avatar
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, name, avatar string) (*models.User, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	if err := s.users.UpdateProfile(ctx, userID, name, avatar); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CleanupExpiredSessions removes expired sessions from the store
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) error {
	if err := s.sessions.DeleteExpired(ctx); err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return nil
}

func (s *AuthService) startSession(ctx context.Context, user *models.User, userAgent, ipAddress string) (*AuthResult, error) {
	token, err := security.NewToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &models.Session{
		TokenDigest: security.TokenDigest(token),
		UserID:      user.ID,
		UserAgent:   userAgent,
		IPAddress:   ipAddress,
		ExpiresAt:   time.Now().Add(s.sessionDuration),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	account, err := s.accounts.GetByID(ctx, user.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &AuthResult{User: user, Account: account, Session: session, Token: token}, nil
}
