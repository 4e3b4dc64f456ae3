package helper

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash8 is a short stable fingerprint for putting identifiers like emails in logs.
func Hash8(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
