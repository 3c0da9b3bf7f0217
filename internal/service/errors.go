package service

import "errors"

var (
	// ErrEmailTaken is returned when registration targets an email that
	// already belongs to a user
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidCredentials covers every login failure the caller is allowed
	// to see. Unknown email and wrong password are deliberately the same
	// error so responses cannot be used to probe which addresses exist.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthenticated is returned when a bearer token resolves to no live
	// session
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidResetToken is returned when a reset token is unknown,
	// expired, or already consumed. Undifferentiated on purpose.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)
