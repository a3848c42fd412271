package db_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wuwenbin0122/lrblog/internal/db"
	"github.com/wuwenbin0122/lrblog/internal/utils"
)

func TestMongoEnsureCollectionsRejectsDuplicateEmail(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set; skipping mongo integration test")
	}

	database := "lrblog_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	cfg := utils.MongoConfig{
		URI:            uri,
		Database:       database,
		ConnectTimeout: 5 * time.Second,
	}

	store, err := db.NewMongo(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}
	defer func() {
		ctx := context.Background()
		store.Database.Drop(ctx)
		store.Close(ctx)
	}()

	if err := store.EnsureCollections(context.Background()); err != nil {
		t.Fatalf("ensure collections failed: %v", err)
	}

	ctx := context.Background()

	doc := bson.M{
		"_id":       uuid.NewString(),
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
		"password":  "hash",
		"createdAt": time.Now().UTC(),
	}
	if _, err := store.Users.InsertOne(ctx, doc); err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}

	doc["_id"] = uuid.NewString()
	if _, err := store.Users.InsertOne(ctx, doc); !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}

	var result bson.M
	if err := store.Users.FindOne(ctx, bson.M{"email": "ada@example.com"}).Decode(&result); err != nil {
		t.Fatalf("failed to fetch user: %v", err)
	}

	if result["firstName"] != "Ada" {
		t.Fatalf("expected firstName 'Ada', got %v", result["firstName"])
	}
}
