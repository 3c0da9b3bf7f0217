package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"aidesk/internal/models"
	"aidesk/internal/repository"
	"aidesk/internal/security"
	"aidesk/internal/validation"
)

// ResetService handles the forgotten-password flow
type ResetService struct {
	users             UserStore
	resets            ResetStore
	sessions          SessionStore
	email             *EmailService
	tokenTTL          time.Duration
	bcryptCost        int
	passwordMinLength int
}

// NewResetService creates a new reset service
func NewResetService(users UserStore, resets ResetStore, sessions SessionStore, email *EmailService, tokenTTL time.Duration, bcryptCost, passwordMinLength int) *ResetService {
	return &ResetService{
		users:             users,
		resets:            resets,
		sessions:          sessions,
		email:             email,
		tokenTTL:          tokenTTL,
		bcryptCost:        bcryptCost,
		passwordMinLength: passwordMinLength,
	}
}

// Request starts a password reset for the given email. For any well-formed
// email it returns nil whether or not a user exists, so the endpoint cannot
// be used to probe for registered addresses. A new request supersedes any
// prior one for the same user.
func (s *ResetService) Request(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil
	}

	// External-identity users have no password to reset; stay silent so the
	// response shape gives nothing away.
	if !user.HasPassword() {
		return nil
	}

	token := security.NewResetToken()
	request := &models.PasswordResetRequest{
		TokenDigest: security.TokenDigest(token),
		UserID:      user.ID,
		ExpiresAt:   time.Now().Add(s.tokenTTL),
	}
	if err := s.resets.Supersede(ctx, request); err != nil {
		return fmt.Errorf("failed to create reset request: %w", err)
	}

	// Delivery failure must not fail the request; the token is live and the
	// user can retry.
	if s.email != nil {
		if err := s.email.SendPasswordResetEmail(ctx, user.Email, user.Name, token); err != nil {
			log.Printf("Failed to send password reset email to %s: %v", user.Email, err)
		}
	}

	return nil
}

// Verify reports whether a reset token is currently usable, without consuming
// it. Used by the reset page before showing the new-password form.
func (s *ResetService) Verify(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	request, err := s.resets.GetByTokenDigest(ctx, security.TokenDigest(token))
	if err != nil {
		return false, fmt.Errorf("failed to get reset request: %w", err)
	}
	if request == nil || request.Used || request.IsExpired() {
		return false, nil
	}
	return true, nil
}

// Reset consumes a reset token, sets the new password, and revokes every
// session the user had. A token that is unknown, expired, or already used
// returns ErrInvalidResetToken; the store guarantees at most one caller wins.
func (s *ResetService) Reset(ctx context.Context, token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword, s.passwordMinLength); err != nil {
		return err
	}

	passwordHash, err := security.HashPasswordWithCost(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.resets.ConsumeAndSetPassword(ctx, security.TokenDigest(token), passwordHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	// Anyone holding a stolen session loses it here
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	return nil
}

// CleanupExpiredRequests removes expired reset requests from the store
func (s *ResetService) CleanupExpiredRequests(ctx context.Context) error {
	if err := s.resets.DeleteExpired(ctx); err != nil {
		return fmt.Errorf("failed to cleanup reset requests: %w", err)
	}
	return nil
}
