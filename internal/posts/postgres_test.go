package posts_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wuwenbin0122/lrblog/internal/db"
	"github.com/wuwenbin0122/lrblog/internal/models"
	"github.com/wuwenbin0122/lrblog/internal/posts"
	"github.com/wuwenbin0122/lrblog/internal/utils"
)

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()
	store, err := db.NewPostgres(ctx, utils.PostgresConfig{DSN: dsn, ConnectTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema failed: %v", err)
	}

	gormDB, err := db.NewGORM(store)
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}

	repo := posts.NewPostgresRepository(store.Pool, gormDB)
	author := uuid.NewString() + "@example.com"
	tag := "t" + uuid.NewString()[:8]

	post := &models.Post{Title: "Integration Post", Content: "body", AuthorEmail: author, Tags: []string{tag}}
	if err := repo.Create(ctx, post); err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	defer store.Pool.Exec(ctx, "DELETE FROM posts WHERE author_email = $1", author)

	if post.ID == "" || post.Slug == "" {
		t.Fatalf("expected id and slug to be assigned, got %+v", post)
	}

	if err := repo.Create(ctx, &models.Post{Title: "dup", Slug: post.Slug, AuthorEmail: author}); !errors.Is(err, posts.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}

	byAuthor, err := repo.ByAuthor(ctx, author)
	if err != nil || len(byAuthor) != 1 || byAuthor[0].Tags[0] != tag {
		t.Fatalf("unexpected posts by author %+v (%v)", byAuthor, err)
	}

	got, err := repo.Get(ctx, post.Slug)
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	if got.Views != 1 {
		t.Fatalf("expected read to count a view, got %d", got.Views)
	}

	page, err := repo.List(ctx, posts.Filter{Tags: []string{tag}})
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if page.Total != 1 || len(page.Posts) != 1 || page.Posts[0].ID != post.ID {
		t.Fatalf("unexpected page %+v", page)
	}

	if _, err := repo.Get(ctx, uuid.NewString()); !errors.Is(err, posts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
