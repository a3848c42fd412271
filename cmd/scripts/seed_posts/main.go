package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/wuwenbin0122/lrblog/internal/db"
	"github.com/wuwenbin0122/lrblog/internal/posts"
	"github.com/wuwenbin0122/lrblog/internal/utils"
)

func main() {
	author := flag.String("author", "", "email recorded as the author of the seeded posts")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		utils.Sugar().Debugf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		utils.Sugar().Fatalf("load config: %v", err)
	}

	utils.MustNewLogger(cfg.Logging)
	logger := utils.Sugar()
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	store, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatalf("connect postgres: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatalf("ensure schema: %v", err)
	}

	inserted := 0
	for _, post := range posts.Samples() {
		tag, err := store.Pool.Exec(ctx, `
			INSERT INTO posts (id, slug, title, content, author_email, tags, views, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (slug) DO NOTHING
		`, uuid.NewString(), post.Slug, post.Title, post.Content, strings.ToLower(strings.TrimSpace(*author)), []string(post.Tags), post.Views, post.CreatedAt)
		if err != nil {
			logger.Fatalf("insert post %q: %v", post.Slug, err)
		}
		if tag.RowsAffected() > 0 {
			inserted++
			fmt.Printf("seeded %s\n", post.Slug)
		}
	}

	fmt.Printf("done. posts inserted: %d\n", inserted)
}
