package validation

import (
	"errors"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid email", "user@example.com", false},
		{"valid with plus tag", "user+tag@example.co.uk", false},
		{"leading whitespace trimmed", "  user@example.com", false},
		{"empty", "", true},
		{"missing at", "userexample.com", true},
		{"missing domain", "user@", true},
		{"missing tld", "user@example", true},
		{"spaces inside", "us er@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name         string
		password     string
		wantFailures int
	}{
		{"meets policy", "Sup3rSecret", 0},
		{"too short but otherwise fine", "Ab1", 1},
		{"missing upper", "alllower123", 1},
		{"missing lower", "ALLUPPER123", 1},
		{"missing digit", "NoNumbersHere", 1},
		{"fails everything", "zzz", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, 8)
			if tt.wantFailures == 0 {
				if err != nil {
					t.Errorf("ValidatePassword(%q) error = %v, want nil", tt.password, err)
				}
				return
			}

			var policyErr PolicyError
			if !errors.As(err, &policyErr) {
				t.Fatalf("ValidatePassword(%q) error = %T, want PolicyError", tt.password, err)
			}
			if len(policyErr.Failures) != tt.wantFailures {
				t.Errorf("ValidatePassword(%q) failures = %v, want %d", tt.password, policyErr.Failures, tt.wantFailures)
			}
		})
	}

	t.Run("empty password is a field error", func(t *testing.T) {
		err := ValidatePassword("", 8)
		var fieldErr ValidationError
		if !errors.As(err, &fieldErr) {
			t.Fatalf("ValidatePassword(\"\") error = %T, want ValidationError", err)
		}
		if fieldErr.Field != "password" {
			t.Errorf("field = %q, want password", fieldErr.Field)
		}
	})
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "Ada Lovelace", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"single character", "A", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Errorf("NormalizeEmail() = %q, want user@example.com", got)
	}
}
