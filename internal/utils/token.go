package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// resetTokenBytes is the entropy of an opaque reset token (256 bits).
const resetTokenBytes = 32

// NewOpaqueToken returns a random url-safe token with no embedded claims.
// It can only be checked by hashing it and looking the hash up.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the SHA‑256 hex digest persisted in place of a raw
// refresh or reset token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
