// Package repository implements the SQL-backed stores consumed by the
// service layer. Lookups return (nil, nil) when no row matches; the sentinel
// errors below cover the cases callers have to distinguish.
package repository

import "errors"

// ErrDuplicateKey is returned when an insert loses to a unique constraint
// (user email or external account id). Under concurrent registration the
// constraint, not the application, decides the winner; callers translate
// this into their conflict or fallback-to-found path.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrNotFound is returned by compound operations (such as consuming a reset
// request) whose target row is absent, expired, or already consumed. It is
// deliberately undifferentiated.
var ErrNotFound = errors.New("not found")
