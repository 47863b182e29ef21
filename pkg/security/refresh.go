package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const refreshTokenBytes = 32

// GenerateRefreshToken returns 256 bits from crypto/rand, hex encoded.
func GenerateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken is the digest stored and looked up in place of the raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
