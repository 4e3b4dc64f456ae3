package security

import "golang.org/x/crypto/bcrypt"

// MaxPasswordBytes is the bcrypt input limit. Longer passwords are cut to
// this length on both hash and compare, so only the first 72 bytes count.
const MaxPasswordBytes = 72

// Hasher wraps bcrypt with a configurable cost.
type Hasher struct {
	Cost int
}

func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{Cost: cost}
}

func (h Hasher) Hash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(clip(pw), h.Cost)
	return string(b), err
}

// Check reports whether pw matches hash. A malformed hash is a mismatch.
func (h Hasher) Check(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), clip(pw)) == nil
}

func clip(pw string) []byte {
	b := []byte(pw)
	if len(b) > MaxPasswordBytes {
		b = b[:MaxPasswordBytes]
	}
	return b
}
