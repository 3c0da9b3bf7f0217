package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor for new password hashes. Existing
// digests embed their own cost, so raising this only affects hashes created
// afterwards.
const DefaultBcryptCost = 12

// HashPassword hashes a password with bcrypt. The salt is generated per call
// and embedded in the digest, so hashing the same password twice yields
// different digests.
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, DefaultBcryptCost)
}

// HashPasswordWithCost hashes a password with an explicit bcrypt cost
func HashPasswordWithCost(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against a bcrypt digest. A malformed or
// empty digest verifies as false; it never reports why the comparison failed.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
