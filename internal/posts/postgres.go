package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/wuwenbin0122/lrblog/internal/models"
)

const postColumns = "id, slug, title, content, author_email, tags, views, created_at"

// PostgresRepository writes and fetches posts with pgx and lists them through
// a gorm catalog sharing the same pool.
type PostgresRepository struct {
	pool    *pgxpool.Pool
	catalog *Catalog
}

func NewPostgresRepository(pool *pgxpool.Pool, gormDB *gorm.DB) *PostgresRepository {
	return &PostgresRepository{pool: pool, catalog: NewCatalog(gormDB)}
}

func (r *PostgresRepository) List(ctx context.Context, filter Filter) (*Page, error) {
	return r.catalog.List(ctx, filter)
}

func (r *PostgresRepository) ByAuthor(ctx context.Context, email string) ([]models.Post, error) {
	query := "SELECT " + postColumns + " FROM posts WHERE author_email = $1 ORDER BY created_at DESC LIMIT 50"
	rows, err := r.pool.Query(ctx, query, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("query posts by author: %w", err)
	}
	defer rows.Close()

	out := make([]models.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return out, nil
}

// Get returns the post with id or slug and counts the read as a view.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Post, error) {
	query := "UPDATE posts SET views = views + 1 WHERE id = $1 OR slug = $1 RETURNING " + postColumns
	post, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query post: %w", err)
	}
	return post, nil
}

func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.Slug == "" {
		post.Slug = Slugify(post.Title) + "-" + post.ID[:8]
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if post.Tags == nil {
		post.Tags = pq.StringArray{}
	}
	post.AuthorEmail = strings.ToLower(strings.TrimSpace(post.AuthorEmail))

	const insert = "INSERT INTO posts (id, slug, title, content, author_email, tags, views, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"
	_, err := r.pool.Exec(ctx, insert,
		post.ID,
		post.Slug,
		post.Title,
		post.Content,
		post.AuthorEmail,
		[]string(post.Tags),
		post.Views,
		post.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrSlugTaken
		}
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var (
		post models.Post
		tags []string
	)
	if err := row.Scan(
		&post.ID,
		&post.Slug,
		&post.Title,
		&post.Content,
		&post.AuthorEmail,
		&tags,
		&post.Views,
		&post.CreatedAt,
	); err != nil {
		return nil, err
	}
	post.Tags = pq.StringArray(tags)
	return &post, nil
}
