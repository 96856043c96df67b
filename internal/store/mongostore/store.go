package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ghostnote/ghost-note/backend/internal/model/user"
)

const usersCollection = "users"

// Store keeps each user as one document with an embedded messages array.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
}

// Connect dials MongoDB, checks the connection and ensures the unique indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to mongodb")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "unable to ping mongodb")
	}

	s := &Store{
		client: client,
		users:  client.Database(database).Collection(usersCollection),
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return errors.Wrap(err, "unable to create user indexes")
}

func (s *Store) Create(ctx context.Context, u user.User) error {
	if u.Messages == nil {
		u.Messages = []user.Message{}
	}
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrConflict
		}
		return errors.Wrap(err, "unable to insert user "+u.Username)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (user.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) FindByUsername(ctx context.Context, username string) (user.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *Store) FindByEmail(ctx context.Context, email string) (user.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (user.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": identifier},
		bson.M{"username": identifier},
	}})
}

func (s *Store) Update(ctx context.Context, u user.User) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
		"username":            u.Username,
		"email":               u.Email,
		"password":            u.PasswordHash,
		"verifyCode":          u.VerifyCode,
		"verifyCodeExpiry":    u.VerifyCodeExpiry,
		"isVerified":          u.IsVerified,
		"isAcceptingMessages": u.IsAcceptingMessages,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrConflict
		}
		return errors.Wrap(err, "unable to update user "+u.ID)
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "unable to delete user "+id)
	}
	if res.DeletedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *Store) SetAcceptingMessages(ctx context.Context, id string, accepting bool) (user.User, error) {
	var u user.User
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isAcceptingMessages": accepting}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "unable to update message acceptance for user "+id)
	}
	return u, nil
}

func (s *Store) AppendMessage(ctx context.Context, id string, msg user.Message) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"messages": msg}})
	if err != nil {
		return errors.Wrap(err, "unable to save message for user "+id)
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, id, messageID string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{"messages": bson.M{"_id": messageID}}},
	)
	if err != nil {
		return errors.Wrap(err, "unable to delete message "+messageID)
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	if res.ModifiedCount == 0 {
		return user.ErrMessageNotFound
	}
	return nil
}

func (s *Store) Messages(ctx context.Context, id string) ([]user.Message, error) {
	var doc struct {
		Messages []user.Message `bson:"messages"`
	}
	err := s.users.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"messages": 1}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "unable to load messages for user "+id)
	}
	if doc.Messages == nil {
		return []user.Message{}, nil
	}
	return doc.Messages, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (user.User, error) {
	var u user.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "unable to find user")
	}
	return u, nil
}
