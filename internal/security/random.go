package security

import (
	"crypto/rand"
	"encoding/hex"
)

// NewResetToken returns 256 random bits, hex encoded so it is safe in URL paths.
func NewResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
