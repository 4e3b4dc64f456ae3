// Package reset issues and redeems single-use password reset tokens.
//
// A token lives on the user record together with its expiry. Issuing a new
// token overwrites the previous one, so a user has at most one live token.
// Redeeming is a single conditional update in the store: the token must match
// exactly and be unexpired, and it is cleared in the same write that sets the
// new password hash.
package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/quiz-auth-service/internal/domain"
	"github.com/tazhibayda/quiz-auth-service/internal/metrics"
	"github.com/tazhibayda/quiz-auth-service/internal/repo"
	"github.com/tazhibayda/quiz-auth-service/internal/security"
)

const DefaultTTL = 15 * time.Minute

type Store interface {
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiresAt time.Time) error
	FindUserByResetToken(ctx context.Context, token string, now time.Time) (*domain.User, error)
	ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (*domain.User, error)
}

type Manager struct {
	store    Store
	ttl      time.Duration
	now      func() time.Time
	newToken func() (string, error)
}

func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, now: time.Now, newToken: security.NewResetToken}
}

// WithClock replaces the time source; used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue stores a fresh token on u and returns it. u is updated in place.
func (m *Manager) Issue(ctx context.Context, u *domain.User) (string, error) {
	tok, err := m.newToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	exp := m.now().Add(m.ttl).UTC()
	if err := m.store.SetResetToken(ctx, u.ID, tok, exp); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("store reset token: %w", err)
	}
	u.ResetToken = tok
	u.ResetTokenExpiresAt = &exp
	metrics.ResetTokens.WithLabelValues("issued").Inc()
	return tok, nil
}

// Lookup returns the user holding a live token.
func (m *Manager) Lookup(ctx context.Context, token string) (*domain.User, error) {
	u, err := m.store.FindUserByResetToken(ctx, token, m.now())
	if err != nil {
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	if u == nil {
		return nil, domain.ErrInvalidOrExpired
	}
	return u, nil
}

// Redeem sets passwordHash on the user owning token and retires the token.
func (m *Manager) Redeem(ctx context.Context, token, passwordHash string) (*domain.User, error) {
	u, err := m.store.ConsumeResetToken(ctx, token, m.now(), passwordHash)
	if err != nil {
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	if u == nil {
		metrics.ResetTokens.WithLabelValues("rejected").Inc()
		return nil, domain.ErrInvalidOrExpired
	}
	metrics.ResetTokens.WithLabelValues("redeemed").Inc()
	return u, nil
}
