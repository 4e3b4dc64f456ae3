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

func (s *Store) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var u domain.User
	err := s.users.FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByEmail expects an already normalized email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

// FindUserByID treats a malformed id like a missing user.
func (s *Store) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.user.insert")
	defer sp.Finish()

	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.History == nil {
		u.History = []domain.ScoreEntry{}
	}
	res, err := s.users.InsertOne(ctx, u)
	if IsDup(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (s *Store) SaveUser(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.users.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if IsDup(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkGoogleID sets google_id only while the user has none, leaving the
// rest of the document untouched. It returns nil when the user is missing or
// already linked.
func (s *Store) LinkGoogleID(ctx context.Context, id primitive.ObjectID, googleID string) (*domain.User, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.user.link_google")
	defer sp.Finish()

	res := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "google_id": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"google_id": googleID, "updated_at": time.Now().UTC()}},
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

// RecordScore raises the tier best with $max and appends the raw entry in a
// single update, so concurrent submissions cannot lower a best score.
func (s *Store) RecordScore(ctx context.Context, id primitive.ObjectID, e domain.ScoreEntry) (*domain.User, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.user.record_score",
		tracer.Tag("difficulty", string(e.Difficulty)),
	)
	defer sp.Finish()

	res := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$max":  bson.M{"scores." + string(e.Difficulty): e.Value},
			"$push": bson.M{"history": e},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
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
