package posts

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/wuwenbin0122/lrblog/internal/models"
)

// StaticRepository serves a fixed list of sample posts. It is used when no
// database is configured and shows the same feed on every profile.
type StaticRepository struct {
	posts []models.Post
}

func NewStaticRepository() *StaticRepository {
	return &StaticRepository{posts: Samples()}
}

// Samples returns the built-in sample posts.
func Samples() []models.Post {
	return []models.Post{
		{
			ID:        "1",
			Slug:      "getting-started-with-next-js",
			Title:     "Getting Started with Next.js",
			Content:   "Next.js gives React applications file-based routing, server rendering and API routes out of the box.",
			Tags:      pq.StringArray{"react", "nextjs"},
			Views:     120,
			CreatedAt: time.Date(2023, time.July, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:        "2",
			Slug:      "designing-a-clean-ui",
			Title:     "Designing a Clean UI",
			Content:   "Whitespace, a restrained palette and consistent spacing go further than any component library.",
			Tags:      pq.StringArray{"design"},
			Views:     85,
			CreatedAt: time.Date(2023, time.August, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:        "3",
			Slug:      "why-i-write-every-day",
			Title:     "Why I Write Every Day",
			Content:   "Writing daily turns vague ideas into arguments you can test, share and improve.",
			Tags:      pq.StringArray{"writing"},
			Views:     42,
			CreatedAt: time.Date(2023, time.September, 18, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (r *StaticRepository) List(ctx context.Context, filter Filter) (*Page, error) {
	filter = filter.normalized()

	matched := make([]models.Post, 0, len(r.posts))
	for _, post := range r.posts {
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(post.Title), needle) && !strings.Contains(strings.ToLower(post.Content), needle) {
				continue
			}
		}
		if !hasAllTags(post.Tags, filter.Tags) {
			continue
		}
		matched = append(matched, post)
	}

	total := int64(len(matched))
	start := filter.offset()
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	return &Page{
		Posts:    matched[start:end],
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Total:    total,
	}, nil
}

func (r *StaticRepository) ByAuthor(ctx context.Context, email string) ([]models.Post, error) {
	out := make([]models.Post, len(r.posts))
	copy(out, r.posts)
	return out, nil
}

func (r *StaticRepository) Get(ctx context.Context, id string) (*models.Post, error) {
	for _, post := range r.posts {
		if post.ID == id || post.Slug == id {
			p := post
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (r *StaticRepository) Create(ctx context.Context, post *models.Post) error {
	return ErrReadOnly
}

func hasAllTags(have pq.StringArray, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
