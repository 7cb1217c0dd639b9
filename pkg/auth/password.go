package auth

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost = 12

	// bcrypt ignores everything past 72 bytes. Inputs are truncated to that
	// length explicitly, on a UTF-8 boundary, so hashing and verification
	// agree for long passwords. Two passwords sharing the same 72-byte
	// prefix verify against each other's hashes; this equivalence class is
	// accepted to stay compatible with existing stored hashes.
	MaxPasswordBytes = 72
)

// truncatePassword returns at most MaxPasswordBytes of the password,
// shortened until the prefix decodes as valid UTF-8.
func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) <= MaxPasswordBytes {
		return b
	}

	b = b[:MaxPasswordBytes]
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return b
}

// HashPassword hashes a password with bcrypt. The salt is drawn per call by
// the bcrypt implementation from crypto/rand.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword(truncatePassword(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// VerifyPassword reports whether password matches the stored hash. A
// malformed stored hash verifies as false, never as an error.
func VerifyPassword(password, hashedPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), truncatePassword(password)) == nil
}
