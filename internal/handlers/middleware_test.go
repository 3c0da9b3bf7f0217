package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"aidesk/internal/service"
	"aidesk/internal/validation"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{"no header", "", ""},
		{"valid bearer", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"wrong scheme", "Basic abc123", ""},
		{"missing token", "Bearer", ""},
		{"extra whitespace", "Bearer   abc123", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := bearerToken(r); got != tt.expected {
				t.Errorf("bearerToken() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation error", validation.ValidationError{Field: "email", Message: "invalid email format"}, http.StatusBadRequest},
		{"policy error", validation.PolicyError{Failures: []string{"must contain a number"}}, http.StatusBadRequest},
		{"invalid reset token", service.ErrInvalidResetToken, http.StatusBadRequest},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unauthenticated", service.ErrUnauthenticated, http.StatusUnauthorized},
		{"email taken", service.ErrEmailTaken, http.StatusConflict},
		{"unknown error", errors.New("database exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			respondServiceError(w, tt.err)
			if w.Code != tt.expected {
				t.Errorf("Status = %d, want %d", w.Code, tt.expected)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

func TestRespondServiceErrorHidesInternals(t *testing.T) {
	w := httptest.NewRecorder()
	respondServiceError(w, errors.New("pq: connection refused to db-prod-3"))

	if body := w.Body.String(); body != `{"error":"internal server error"}`+"\n" {
		t.Errorf("Internal details leaked into response: %s", body)
	}
}

// allowAll and denyAll are stub limiters for middleware tests
type stubLimiter struct{ allow bool }

func (s stubLimiter) Allow(key string) bool { return s.allow }

func TestRateLimitMiddleware(t *testing.T) {
	called := false
	handler := RateLimit(stubLimiter{allow: true}, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	if !called || w.Code != http.StatusOK {
		t.Errorf("Expected handler to run, called=%v status=%d", called, w.Code)
	}

	called = false
	handler = RateLimit(stubLimiter{allow: false}, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	if called {
		t.Error("Handler must not run when over budget")
	}
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
}
