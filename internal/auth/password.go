package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// IsHashed reports whether a stored credential is a bcrypt hash.
func IsHashed(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
}

// CredentialVerifier checks a supplied password against a stored credential.
type CredentialVerifier interface {
	Verify(stored, supplied string) bool
}

// DefaultVerifier accepts bcrypt hashes and legacy plaintext credentials.
// Supplied passwords are trimmed; plaintext is then compared exactly.
type DefaultVerifier struct{}

func (DefaultVerifier) Verify(stored, supplied string) bool {
	if IsHashed(stored) {
		return ComparePassword(stored, strings.TrimSpace(supplied)) == nil
	}
	stored = strings.TrimSpace(stored)
	supplied = strings.TrimSpace(supplied)
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
