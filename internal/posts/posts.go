// Package posts stores and lists blog articles.
package posts

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/wuwenbin0122/lrblog/internal/models"
)

var (
	ErrNotFound  = errors.New("posts: not found")
	ErrReadOnly  = errors.New("posts: repository is read-only")
	ErrSlugTaken = errors.New("posts: slug already taken")
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 50
	// MaxPage keeps (Page-1)*PageSize within int32 range.
	MaxPage = math.MaxInt32 / MaxPageSize
)

type Filter struct {
	Page     int
	PageSize int
	Search   string
	Tags     []string
}

func (f Filter) normalized() Filter {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f Filter) offset() int {
	return (f.Page - 1) * f.PageSize
}

type Page struct {
	Posts    []models.Post
	Page     int
	PageSize int
	Total    int64
}

type Repository interface {
	List(ctx context.Context, filter Filter) (*Page, error)
	ByAuthor(ctx context.Context, email string) ([]models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases title and joins its words with dashes.
func Slugify(title string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 64 {
		slug = strings.Trim(slug[:64], "-")
	}
	if slug == "" {
		slug = "post"
	}
	return slug
}
