package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies stateless access tokens. It holds no
// record of issued tokens, so there is no revocation.
type TokenService struct {
	method  jwt.SigningMethod
	signKey any
	keyFunc jwt.Keyfunc
	kid     string
	ttl     time.Duration
	now     func() time.Time
}

func NewHS256(secret string, ttl time.Duration) *TokenService {
	key := []byte(secret)
	return &TokenService{
		method:  jwt.SigningMethodHS256,
		signKey: key,
		keyFunc: func(*jwt.Token) (any, error) { return key, nil },
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewRS256 signs with key and accepts only tokens whose kid names it.
func NewRS256(key *SigningKey, ttl time.Duration) *TokenService {
	return &TokenService{
		method:  jwt.SigningMethodRS256,
		signKey: key.priv,
		kid:     key.ID,
		keyFunc: func(t *jwt.Token) (any, error) {
			if kid, _ := t.Header["kid"].(string); kid != key.ID {
				return nil, errors.New("unknown kid")
			}
			return key.Public(), nil
		},
		ttl: ttl,
		now: time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	cp := *s
	cp.now = now
	return &cp
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

func (s *TokenService) Issue(uid, email string) (string, error) {
	now := s.now()
	c := Claims{
		UID: uid, Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Subject:   uid,
		},
	}
	t := jwt.NewWithClaims(s.method, c)
	if s.kid != "" {
		t.Header["kid"] = s.kid
	}
	return t.SignedString(s.signKey)
}

// Verify returns the claims of a valid token. Bad signatures, foreign
// algorithms, malformed input, expired tokens and tokens without a subject
// all yield ok=false.
func (s *TokenService) Verify(token string) (*Claims, bool) {
	if token == "" {
		return nil, false
	}
	c := &Claims{}
	t, err := jwt.ParseWithClaims(token, c, s.keyFunc,
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !t.Valid || c.Subject == "" {
		return nil, false
	}
	return c, true
}
