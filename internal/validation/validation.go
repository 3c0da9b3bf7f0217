package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	upperRegex     = regexp.MustCompile(`[A-Z]`)
	lowerRegex     = regexp.MustCompile(`[a-z]`)
	digitRegex     = regexp.MustCompile(`[0-9]`)
	maxEmailLength = 254
)

// ValidationError represents a validation error on a single field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PolicyError carries every password rule the candidate failed, so the caller
// can show the full list or collapse it into a generic message.
type PolicyError struct {
	Failures []string
}

func (e PolicyError) Error() string {
	return "password: " + strings.Join(e.Failures, "; ")
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if len(email) > maxEmailLength {
		return ValidationError{Field: "email", Message: "email is too long"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks a password against the strength policy and reports
// every rule it fails
func ValidatePassword(password string, minLength int) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}

	var failures []string
	if len(password) < minLength {
		failures = append(failures, fmt.Sprintf("must be at least %d characters", minLength))
	}
	if !upperRegex.MatchString(password) {
		failures = append(failures, "must contain an upper-case letter")
	}
	if !lowerRegex.MatchString(password) {
		failures = append(failures, "must contain a lower-case letter")
	}
	if !digitRegex.MatchString(password) {
		failures = append(failures, "must contain a number")
	}

	if len(failures) > 0 {
		return PolicyError{Failures: failures}
	}
	return nil
}

// ValidateName checks if a display name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	if len(name) > 100 {
		return ValidationError{Field: "name", Message: "name must be at most 100 characters"}
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address. Uniqueness is
// case-insensitive, so every store write and lookup goes through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
