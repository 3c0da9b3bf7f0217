package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const (
	// tokenBytes is the entropy of a bearer or reset token (256 bits)
	tokenBytes = 32

	// accountIDBytes is the entropy behind an external account identifier
	accountIDBytes = 12
)

// NewToken returns an opaque bearer token drawn from the CSPRNG. Tokens carry
// no timestamp or sequence component; knowing any number of prior tokens
// reveals nothing about the next one.
func NewToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// TokenDigest returns the SHA-256 hex digest of a token. Only digests are
// persisted; looking sessions up by digest keeps the raw token out of SQL
// comparisons entirely.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewResetToken returns a password reset token. Reset tokens travel inside
// email links, so the dashed UUID form keeps them short and copy-paste safe.
func NewResetToken() string {
	return uuid.NewString()
}

// NewAccountID returns an externally shareable account identifier in a
// namespace distinct from internal row ids, e.g. "acct_3f9c2b...".
func NewAccountID() (string, error) {
	raw := make([]byte, accountIDBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate account id: %w", err)
	}
	return "acct_" + hex.EncodeToString(raw), nil
}
