package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/quiz-auth-service/internal/domain"
)

// SetResetToken overwrites any previous token of the user.
func (s *Store) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiresAt time.Time) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.reset_token.set")
	defer sp.Finish()

	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"reset_token":            token,
			"reset_token_expires_at": expiresAt.UTC(),
			"updated_at":             time.Now().UTC(),
		}},
	)
	if IsDup(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) FindUserByResetToken(ctx context.Context, token string, now time.Time) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	return s.findOne(ctx, bson.M{
		"reset_token":            token,
		"reset_token_expires_at": bson.M{"$gt": now.UTC()},
	})
}

// ConsumeResetToken swaps in the new hash and clears the token in one
// conditional update. Returns nil, nil when no live token matches.
func (s *Store) ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (*domain.User, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.reset_token.consume")
	defer sp.Finish()

	if token == "" {
		return nil, nil
	}
	res := s.users.FindOneAndUpdate(ctx,
		bson.M{
			"reset_token":            token,
			"reset_token_expires_at": bson.M{"$gt": now.UTC()},
		},
		bson.M{
			"$set":   bson.M{"password_hash": passwordHash, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"reset_token": "", "reset_token_expires_at": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var u domain.User
	if err := res.Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		sp.SetTag("error", err)
		return nil, err
	}
	return &u, nil
}
