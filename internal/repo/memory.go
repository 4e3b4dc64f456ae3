package repo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/quiz-auth-service/internal/domain"
)

// MemoryStore mirrors Store's semantics in process memory. It backs
// STORE_DRIVER=memory and the package tests of the layers above.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[primitive.ObjectID]*domain.User
	byEmail map[string]primitive.ObjectID
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[primitive.ObjectID]*domain.User),
		byEmail: make(map[string]primitive.ObjectID),
		now:     time.Now,
	}
}

func (m *MemoryStore) Ping(context.Context) error  { return nil }
func (m *MemoryStore) Close(context.Context) error { return nil }

func clone(u *domain.User) *domain.User {
	cp := *u
	cp.History = append([]domain.ScoreEntry{}, u.History...)
	if u.ResetTokenExpiresAt != nil {
		t := *u.ResetTokenExpiresAt
		cp.ResetTokenExpiresAt = &t
	}
	return &cp
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	return clone(m.byID[id]), nil
}

func (m *MemoryStore) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[oid]
	if !ok {
		return nil, nil
	}
	return clone(u), nil
}

func (m *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return ErrDuplicateKey
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := m.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.History == nil {
		u.History = []domain.ScoreEntry{}
	}
	m.byID[u.ID] = clone(u)
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) SaveUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.byID[u.ID]
	if !ok {
		return ErrNotFound
	}
	if other, taken := m.byEmail[u.Email]; taken && other != u.ID {
		return ErrDuplicateKey
	}
	u.UpdatedAt = m.now().UTC()
	delete(m.byEmail, prev.Email)
	m.byID[u.ID] = clone(u)
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) LinkGoogleID(_ context.Context, id primitive.ObjectID, googleID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.GoogleID != "" {
		return nil, nil
	}
	u.GoogleID = googleID
	u.UpdatedAt = m.now().UTC()
	return clone(u), nil
}

func (m *MemoryStore) RecordScore(_ context.Context, id primitive.ObjectID, e domain.ScoreEntry) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	u.Scores.Raise(e.Difficulty, e.Value)
	u.History = append(u.History, e)
	u.UpdatedAt = m.now().UTC()
	return clone(u), nil
}

func (m *MemoryStore) SetResetToken(_ context.Context, id primitive.ObjectID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	for _, other := range m.byID {
		if other.ID != id && other.ResetToken == token {
			return ErrDuplicateKey
		}
	}
	exp := expiresAt.UTC()
	u.ResetToken = token
	u.ResetTokenExpiresAt = &exp
	u.UpdatedAt = m.now().UTC()
	return nil
}

// liveToken must be called with mu held.
func (m *MemoryStore) liveToken(token string, now time.Time) *domain.User {
	if token == "" {
		return nil
	}
	for _, u := range m.byID {
		if u.ResetToken == token && u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(now) {
			return u
		}
	}
	return nil
}

func (m *MemoryStore) FindUserByResetToken(_ context.Context, token string, now time.Time) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.liveToken(token, now); u != nil {
		return clone(u), nil
	}
	return nil, nil
}

func (m *MemoryStore) ConsumeResetToken(_ context.Context, token string, now time.Time, passwordHash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.liveToken(token, now)
	if u == nil {
		return nil, nil
	}
	u.PasswordHash = passwordHash
	u.ResetToken = ""
	u.ResetTokenExpiresAt = nil
	u.UpdatedAt = m.now().UTC()
	return clone(u), nil
}
