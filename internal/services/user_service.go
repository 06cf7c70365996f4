package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campfire-chat/campfire-backend/internal/auth"
	"github.com/campfire-chat/campfire-backend/internal/database"
	"github.com/campfire-chat/campfire-backend/internal/models"
)

// UserService is the MongoDB-backed credential store. Lookups that find no
// record return (nil, nil); a non-nil error always means the store itself
// failed.
type UserService struct {
	users *mongo.Collection
}

func NewUserService() *UserService {
	return &UserService{users: database.DB.Collection("users")}
}

// EnsureUserIndexes creates the unique username index. External accounts
// have no username, so the index is sparse.
func (s *UserService) EnsureUserIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	return err
}

func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserService) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	return &user, nil
}

// Insert stores a new local account. The ID is store-generated and
// created_on is set once, here.
func (s *UserService) Insert(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	if user.CreatedOn.IsZero() {
		user.CreatedOn = time.Now().UTC()
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

// UpsertExternal inserts or refreshes the record for an external identity,
// keyed by the provider-issued id. Profile fields and created_on are written
// only when the record is first inserted; last_login and login_count are
// refreshed on every call. The two field groups never overlap.
func (s *UserService) UpsertExternal(ctx context.Context, identity auth.ExternalIdentity) (*models.User, error) {
	now := time.Now().UTC()

	update := bson.M{
		"$setOnInsert": bson.M{
			"name":       identity.Name,
			"photo":      identity.Photo,
			"email":      identity.Email,
			"provider":   identity.Provider,
			"created_on": now,
		},
		"$set": bson.M{"last_login": now},
		"$inc": bson.M{"login_count": 1},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var user models.User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": identity.ID}, update, opts).Decode(&user)
	if err != nil {
		return nil, fmt.Errorf("external identity upsert: %w", err)
	}
	return &user, nil
}

// SetPhoto updates the stored avatar URL.
func (s *UserService) SetPhoto(ctx context.Context, id, url string) error {
	_, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"photo": url}})
	if err != nil {
		return fmt.Errorf("photo update: %w", err)
	}
	return nil
}
