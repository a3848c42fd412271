package users

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wuwenbin0122/lrblog/internal/models"
)

// MongoStore stores users in the "users" collection. Uniqueness of email is
// enforced by the index created in db.Mongo.EnsureCollections.
type MongoStore struct {
	users *mongo.Collection
}

func NewMongoStore(users *mongo.Collection) *MongoStore {
	return &MongoStore{users: users}
}

func (s *MongoStore) Create(ctx context.Context, user *models.User) error {
	doc := *user
	doc.Email = NormalizeEmail(doc.Email)

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("mongo insert user: %w", err)
	}

	return nil
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"email": NormalizeEmail(email)}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find user: %w", err)
	}

	return &user, nil
}
