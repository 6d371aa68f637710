package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/flicklist/backend/internal/models"
	"github.com/flicklist/backend/internal/repositories"
)

const usersCollection = "users"

// Connect opens a client for uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// UserRepository stores each user as a single document in the users
// collection. List mutations are single-document updates, which MongoDB
// applies atomically.
type UserRepository struct {
	users *mongo.Collection
}

// NewUserRepository constructs a repository over database's users collection.
func NewUserRepository(database *mongo.Database) *UserRepository {
	return &UserRepository{users: database.Collection(usersCollection)}
}

// EnsureIndexes creates the uniqueness constraints on email and username.
// Documents without a username are excluded from the username index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("username_unique").
				SetPartialFilterExpression(bson.D{{Key: "username", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// Create inserts a new user document.
func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	if user.LikedMedia == nil {
		user.LikedMedia = []models.LikedEntry{}
	}
	if user.WantToWatch == nil {
		user.WantToWatch = []models.SharedEntry{}
	}

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repositories.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail fetches a user document by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, repositories.ErrNotFound
		}
		return models.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return normalize(user), nil
}

// SetUsername assigns a username to a document that has none.
func (r *UserRepository) SetUsername(ctx context.Context, email, username string) error {
	res, err := r.users.UpdateOne(ctx,
		bson.D{
			{Key: "email", Value: email},
			{Key: "username", Value: bson.D{{Key: "$exists", Value: false}}},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "username", Value: username}}}},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repositories.ErrConflict
		}
		return fmt.Errorf("set username: %w", err)
	}
	if res.MatchedCount == 0 {
		if err := r.mustExist(ctx, email); err != nil {
			return err
		}
		return repositories.ErrConflict
	}
	return nil
}

// List returns every user document in creation order.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	cursor, err := r.users.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	for i := range users {
		users[i] = normalize(users[i])
	}
	return users, nil
}

// AppendLiked pushes entry only when no liked entry carries the same media id.
func (r *UserRepository) AppendLiked(ctx context.Context, email string, entry models.LikedEntry) (bool, error) {
	res, err := r.users.UpdateOne(ctx,
		bson.D{
			{Key: "email", Value: email},
			{Key: "likedMedia.mediaId", Value: bson.D{{Key: "$ne", Value: entry.MediaID}}},
		},
		bson.D{{Key: "$push", Value: bson.D{{Key: "likedMedia", Value: entry}}}},
	)
	if err != nil {
		return false, fmt.Errorf("push liked media: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	return false, r.mustExist(ctx, email)
}

// RemoveLiked pulls the entry for mediaID and returns the remaining list.
func (r *UserRepository) RemoveLiked(ctx context.Context, email string, mediaID int64) ([]models.LikedEntry, error) {
	var user models.User
	err := r.users.FindOneAndUpdate(ctx,
		bson.D{
			{Key: "email", Value: email},
			{Key: "likedMedia.mediaId", Value: mediaID},
		},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "likedMedia", Value: bson.D{{Key: "mediaId", Value: mediaID}}}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if err := r.mustExist(ctx, email); err != nil {
				return nil, err
			}
			return nil, repositories.ErrEntryNotFound
		}
		return nil, fmt.Errorf("pull liked media: %w", err)
	}
	return normalize(user).LikedMedia, nil
}

// AppendShared pushes entry only when no want-to-watch entry carries the same
// media id.
func (r *UserRepository) AppendShared(ctx context.Context, email string, entry models.SharedEntry) (bool, error) {
	res, err := r.users.UpdateOne(ctx,
		bson.D{
			{Key: "email", Value: email},
			{Key: "wantToWatch.mediaId", Value: bson.D{{Key: "$ne", Value: entry.MediaID}}},
		},
		bson.D{{Key: "$push", Value: bson.D{{Key: "wantToWatch", Value: entry}}}},
	)
	if err != nil {
		return false, fmt.Errorf("push want to watch: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	return false, r.mustExist(ctx, email)
}

// RemoveShared pulls every want-to-watch entry for mediaID.
func (r *UserRepository) RemoveShared(ctx context.Context, email string, mediaID int64) (models.User, error) {
	var user models.User
	err := r.users.FindOneAndUpdate(ctx,
		bson.D{{Key: "email", Value: email}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "wantToWatch", Value: bson.D{{Key: "mediaId", Value: mediaID}}}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, repositories.ErrNotFound
		}
		return models.User{}, fmt.Errorf("pull want to watch: %w", err)
	}
	return normalize(user), nil
}

func (r *UserRepository) mustExist(ctx context.Context, email string) error {
	count, err := r.users.CountDocuments(ctx, bson.D{{Key: "email", Value: email}}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func normalize(user models.User) models.User {
	if user.LikedMedia == nil {
		user.LikedMedia = []models.LikedEntry{}
	}
	if user.WantToWatch == nil {
		user.WantToWatch = []models.SharedEntry{}
	}
	user.CreatedAt = user.CreatedAt.UTC()
	for i := range user.LikedMedia {
		user.LikedMedia[i].AddedAt = user.LikedMedia[i].AddedAt.UTC()
	}
	for i := range user.WantToWatch {
		user.WantToWatch[i].AddedAt = user.WantToWatch[i].AddedAt.UTC()
	}
	return user
}

var _ repositories.UserRepository = (*UserRepository)(nil)
