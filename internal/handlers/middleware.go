package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"aidesk/internal/security"
	"aidesk/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const AuthContextKey ContextKey = "auth"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService) *Middleware {
	return &Middleware{authService: authService}
}

// RequireAuth resolves the Authorization bearer token to a user and account
// and rejects the request with 401 when it cannot
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		auth, err := m.authService.Authenticate(r.Context(), token)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), AuthContextKey, auth)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit applies a per-client-IP request budget before the wrapped handler
// runs. Over-budget requests get 429 and never reach the handler.
func RateLimit(limiter security.Limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(security.GetClientIP(r)) {
			respondError(w, http.StatusTooManyRequests, "too many requests, try again later")
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetAuthFromContext retrieves the authenticated state from the request
// context. Returns nil outside RequireAuth.
func GetAuthFromContext(ctx context.Context) *service.AuthResult {
	auth, ok := ctx.Value(AuthContextKey).(*service.AuthResult)
	if !ok {
		return nil
	}
	return auth
}

// bearerToken extracts the token from the Authorization header
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
