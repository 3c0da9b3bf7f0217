package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"aidesk/internal/models"
	"aidesk/internal/repository"
	"aidesk/internal/security"
	"aidesk/internal/validation"
)

// IdentityService turns a verified external identity (an OAuth or OIDC login
// that the transport layer has already validated) into a local user and
// session
type IdentityService struct {
	accounts        AccountStore
	users           UserStore
	sessions        SessionStore
	sessionDuration time.Duration
}

// NewIdentityService creates a new identity service
func NewIdentityService(accounts AccountStore, users UserStore, sessions SessionStore, sessionDuration time.Duration) *IdentityService {
	return &IdentityService{
		accounts:        accounts,
		users:           users,
		sessions:        sessions,
		sessionDuration: sessionDuration,
	}
}

// Resolve signs in the user behind an external identity, provisioning a new
// account when the email is unseen. Resolving the same identity twice yields
// the same user. Provisioned users carry no password; they sign in through
// their provider until they complete a password reset.
func (s *IdentityService) Resolve(ctx context.Context, identity models.ExternalIdentity, userAgent, ipAddress string) (*AuthResult, error) {
	if identity.Provider == "" || identity.Subject == "" {
		return nil, errors.New("missing external identity provider information")
	}
	if err := validation.ValidateEmail(identity.Email); err != nil {
		return nil, err
	}

	email := validation.NormalizeEmail(identity.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}

	if user == nil {
		result, err := s.provision(ctx, identity, email, userAgent, ipAddress)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, err
		}
		// Lost a provisioning race for this email; whoever won holds the
		// user we want, so fall back to the found row.
		user, err = s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to lookup user after race: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("user for %s vanished after duplicate key", identity.Provider)
		}
	}

	s.refreshHints(ctx, user, identity)

	return s.startSession(ctx, user, userAgent, ipAddress)
}

// provision creates the account, user, and first session in one transaction
func (s *IdentityService) provision(ctx context.Context, identity models.ExternalIdentity, email, userAgent, ipAddress string) (*AuthResult, error) {
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}

	accountID, err := security.NewAccountID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate account id: %w", err)
	}
	token, err := security.NewToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	account := &models.Account{
		AccountID: accountID,
		Name:      name + "'s Workspace",
		Plan:      models.PlanFree,
	}
	user := &models.User{
		Email:  email,
		Name:   name,
		Avatar: identity.Avatar,
		Role:   models.RoleOwner,
		// The provider vouched for this address
		EmailVerified: true,
	}
	session := &models.Session{
		TokenDigest: security.TokenDigest(token),
		UserAgent:   userAgent,
		IPAddress:   ipAddress,
		ExpiresAt:   time.Now().Add(s.sessionDuration),
	}

	if err := s.accounts.ProvisionWithOwner(ctx, account, user, session); err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Account: account, Session: session, Token: token}, nil
}

// refreshHints updates the local profile from the provider's latest claims.
// Failure here is logged and ignored; a stale name never blocks a login.
func (s *IdentityService) refreshHints(ctx context.Context, user *models.User, identity models.ExternalIdentity) {
	name := strings.TrimSpace(identity.Name)
	avatar := identity.Avatar

	if name == "" {
		name = user.Name
	}
	if avatar == "" {
		avatar = user.Avatar
	}
	if name == user.Name && avatar == user.Avatar {
		return
	}

	if err := s.users.UpdateProfile(ctx, user.ID, name, avatar); err != nil {
		log.Printf("Failed to refresh profile for user %d from %s: %v", user.ID, identity.Provider, err)
		return
	}
	user.Name = name
	user.Avatar = avatar
}

func (s *IdentityService) startSession(ctx context.Context, user *models.User, userAgent, ipAddress string) (*AuthResult, error) {
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
