package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/wuwenbin0122/lrblog/internal/models"
	"github.com/wuwenbin0122/lrblog/internal/users"
)

func TestMemoryStoreCreateAndFind(t *testing.T) {
	store := users.NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, &models.User{ID: "1", FirstName: "Ada", Email: "Ada@Example.com"}); err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	user, err := store.FindByEmail(ctx, " ada@example.COM ")
	if err != nil {
		t.Fatalf("find returned error: %v", err)
	}
	if user.FirstName != "Ada" {
		t.Fatalf("expected Ada, got %s", user.FirstName)
	}

	if err := store.Create(ctx, &models.User{ID: "2", Email: "ada@example.com"}); !errors.Is(err, users.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	if _, err := store.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := users.NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, &models.User{ID: "1", FirstName: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	user, _ := store.FindByEmail(ctx, "ada@example.com")
	user.FirstName = "Changed"

	again, _ := store.FindByEmail(ctx, "ada@example.com")
	if again.FirstName != "Ada" {
		t.Fatalf("store leaked a mutable reference")
	}
}
