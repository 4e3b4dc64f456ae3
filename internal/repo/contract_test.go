package repo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/quiz-auth-service/internal/domain"
	"github.com/tazhibayda/quiz-auth-service/internal/repo"
)

// userStore is the method set shared by Store and MemoryStore.
type userStore interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	FindUserByResetToken(ctx context.Context, token string, now time.Time) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	SaveUser(ctx context.Context, u *domain.User) error
	LinkGoogleID(ctx context.Context, id primitive.ObjectID, googleID string) (*domain.User, error)
	RecordScore(ctx context.Context, id primitive.ObjectID, e domain.ScoreEntry) (*domain.User, error)
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (*domain.User, error)
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) userStore) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		s := newStore(t)
		u := &domain.User{Email: "a@x.com", Username: "a", PasswordHash: "h"}
		require.NoError(t, s.CreateUser(ctx, u))
		require.False(t, u.ID.IsZero())

		byEmail, err := s.FindUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, u.ID, byEmail.ID)
		assert.Equal(t, "h", byEmail.PasswordHash)

		byID, err := s.FindUserByID(ctx, u.ID.Hex())
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, "a@x.com", byID.Email)

		missing, err := s.FindUserByEmail(ctx, "b@x.com")
		require.NoError(t, err)
		assert.Nil(t, missing)

		bad, err := s.FindUserByID(ctx, "not-an-object-id")
		require.NoError(t, err)
		assert.Nil(t, bad)
	})

	t.Run("duplicate email", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateUser(ctx, &domain.User{Email: "dup@x.com"}))
		err := s.CreateUser(ctx, &domain.User{Email: "dup@x.com"})
		assert.ErrorIs(t, err, repo.ErrDuplicateKey)
	})

	t.Run("concurrent duplicate create", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.CreateUser(ctx, &domain.User{Email: "race@x.com"})
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, repo.ErrDuplicateKey)
		}
		assert.Equal(t, 1, ok)
	})

	t.Run("save", func(t *testing.T) {
		s := newStore(t)
		u := &domain.User{Email: "g@x.com", Username: "g"}
		require.NoError(t, s.CreateUser(ctx, u))

		u.GoogleID = "google-123"
		require.NoError(t, s.SaveUser(ctx, u))

		got, err := s.FindUserByEmail(ctx, "g@x.com")
		require.NoError(t, err)
		assert.Equal(t, "google-123", got.GoogleID)

		ghost := &domain.User{ID: primitive.NewObjectID(), Email: "ghost@x.com"}
		assert.ErrorIs(t, s.SaveUser(ctx, ghost), repo.ErrNotFound)
	})

	t.Run("link google id keeps concurrent score", func(t *testing.T) {
		s := newStore(t)
		u := &domain.User{Email: "l@x.com", Username: "l"}
		require.NoError(t, s.CreateUser(ctx, u))

		stale, err := s.FindUserByEmail(ctx, "l@x.com")
		require.NoError(t, err)
		_, err = s.RecordScore(ctx, u.ID, domain.ScoreEntry{Difficulty: domain.Medium, Value: 70, Label: "medium"})
		require.NoError(t, err)

		linked, err := s.LinkGoogleID(ctx, stale.ID, "google-1")
		require.NoError(t, err)
		require.NotNil(t, linked)
		assert.Equal(t, "google-1", linked.GoogleID)
		assert.Equal(t, 70, linked.Scores.Medium)
		require.Len(t, linked.History, 1)

		again, err := s.LinkGoogleID(ctx, u.ID, "google-2")
		require.NoError(t, err)
		assert.Nil(t, again)
		got, err := s.FindUserByID(ctx, u.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "google-1", got.GoogleID)

		ghost, err := s.LinkGoogleID(ctx, primitive.NewObjectID(), "google-3")
		require.NoError(t, err)
		assert.Nil(t, ghost)
	})

	t.Run("record score keeps best and raw history", func(t *testing.T) {
		s := newStore(t)
		u := &domain.User{Email: "s@x.com"}
		require.NoError(t, s.CreateUser(ctx, u))

		now := time.Now().UTC().Truncate(time.Millisecond)
		_, err := s.RecordScore(ctx, u.ID, domain.ScoreEntry{Difficulty: domain.Easy, Value: 50, Label: "easy", CreatedAt: now})
		require.NoError(t, err)
		got, err := s.RecordScore(ctx, u.ID, domain.ScoreEntry{Difficulty: domain.Easy, Value: 30, Label: "easy", CreatedAt: now})
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, 50, got.Scores.Easy)
		require.Len(t, got.History, 2)
		assert.Equal(t, 50, got.History[0].Value)
		assert.Equal(t, 30, got.History[1].Value)

		none, err := s.RecordScore(ctx, primitive.NewObjectID(), domain.ScoreEntry{Difficulty: domain.Hard, Value: 1})
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("reset token lifecycle", func(t *testing.T) {
		s := newStore(t)
		u := &domain.User{Email: "r@x.com", PasswordHash: "old"}
		require.NoError(t, s.CreateUser(ctx, u))

		now := time.Now()
		require.NoError(t, s.SetResetToken(ctx, u.ID, "tok-1", now.Add(15*time.Minute)))
		require.NoError(t, s.SetResetToken(ctx, u.ID, "tok-2", now.Add(15*time.Minute)))

		stale, err := s.FindUserByResetToken(ctx, "tok-1", now)
		require.NoError(t, err)
		assert.Nil(t, stale, "a newer token replaces the old one")

		prefix, err := s.ConsumeResetToken(ctx, "tok-", now, "new")
		require.NoError(t, err)
		assert.Nil(t, prefix)

		live, err := s.FindUserByResetToken(ctx, "tok-2", now)
		require.NoError(t, err)
		require.NotNil(t, live)

		expired, err := s.ConsumeResetToken(ctx, "tok-2", now.Add(16*time.Minute), "new")
		require.NoError(t, err)
		assert.Nil(t, expired)

		got, err := s.ConsumeResetToken(ctx, "tok-2", now, "new")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "new", got.PasswordHash)
		assert.Empty(t, got.ResetToken)
		assert.Nil(t, got.ResetTokenExpiresAt)

		again, err := s.ConsumeResetToken(ctx, "tok-2", now, "newer")
		require.NoError(t, err)
		assert.Nil(t, again)

		assert.ErrorIs(t, s.SetResetToken(ctx, primitive.NewObjectID(), "tok-3", now), repo.ErrNotFound)
	})
}
