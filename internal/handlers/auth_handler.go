package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"aidesk/internal/models"
	"aidesk/internal/security"
	"aidesk/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	resetService         *service.ResetService
	identityService      *service.IdentityService
	emailService         *service.EmailService
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	appBaseURL           string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	authService *service.AuthService,
	resetService *service.ResetService,
	identityService *service.IdentityService,
	emailService *service.EmailService,
	oauthProviders map[string]OAuthProvider,
	oauthRedirectBaseURL string,
	appBaseURL string,
) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		resetService:         resetService,
		identityService:      identityService,
		emailService:         emailService,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		appBaseURL:           appBaseURL,
	}
}

type userResponse struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar,omitempty"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
}

type accountResponse struct {
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	Plan      string `json:"plan"`
}

type authResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      userResponse    `json:"user"`
	Account   accountResponse `json:"account"`
}

func newUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Avatar:        user.Avatar,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
	}
}

func newAccountResponse(account *models.Account) accountResponse {
	return accountResponse{
		AccountID: account.AccountID,
		Name:      account.Name,
		Plan:      string(account.Plan),
	}
}

func newAuthResponse(result *service.AuthResult) authResponse {
	return authResponse{
		Token:     result.Token,
		ExpiresAt: result.Session.ExpiresAt,
		User:      newUserResponse(result.User),
		Account:   newAccountResponse(result.Account),
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		Name        string `json:"name"`
		AccountName string `json:"accountName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		AccountName: req.AccountName,
		UserAgent:   r.UserAgent(),
		IPAddress:   security.GetClientIP(r),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if h.emailService != nil && h.emailService.IsEnabled() {
		// Best effort; the account exists whether or not the email lands
		go func(email, name, accountName string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.emailService.SendWelcomeEmail(ctx, email, name, accountName); err != nil {
				log.Printf("Failed to send welcome email to %s: %v", email, err)
			}
		}(result.User.Email, result.User.Name, result.Account.Name)
	}

	respondJSON(w, http.StatusCreated, newAuthResponse(result))
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password, r.UserAgent(), security.GetClientIP(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newAuthResponse(result))
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	auth := GetAuthFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	respondJSON(w, http.StatusOK, struct {
		User    userResponse    `json:"user"`
		Account accountResponse `json:"account"`
	}{
		User:    newUserResponse(auth.User),
		Account: newAccountResponse(auth.Account),
	})
}

// Logout handles POST /api/auth/logout. Always succeeds, even for tokens
// that no longer resolve to a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth := GetAuthFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := h.authService.Logout(r.Context(), auth.Token); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ForgotPassword handles POST /api/auth/forgot-password. The response does
// not distinguish known from unknown addresses.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.resetService.Request(r.Context(), req.Email); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "If an account exists for that email, a reset link has been sent",
	})
}

// VerifyResetToken handles GET /api/auth/verify-reset-token?token=...
func (h *AuthHandler) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	valid, err := h.resetService.Verify(r.Context(), token)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.resetService.Reset(r.Context(), req.Token, req.Password); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ChangePassword handles POST /api/user/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	auth := GetAuthFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.ChangePassword(r.Context(), auth.User.ID, req.CurrentPassword, req.NewPassword, auth.Token); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UpdateProfile handles PUT /api/user/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	auth := GetAuthFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req struct {
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), auth.User.ID, req.Name, req.Avatar)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newUserResponse(user))
}
