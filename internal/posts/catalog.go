package posts

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/wuwenbin0122/lrblog/internal/models"
)

// Catalog answers the paginated post listing.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) List(ctx context.Context, filter Filter) (*Page, error) {
	filter = filter.normalized()

	query := c.db.WithContext(ctx).Model(&models.Post{})

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(title ILIKE ? OR content ILIKE ?)", like, like)
	}

	if len(filter.Tags) > 0 {
		query = query.Where("tags @> ?", pq.StringArray(filter.Tags))
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	offset := filter.offset()
	posts := make([]models.Post, 0, filter.PageSize)
	if err := query.Order("created_at DESC").Limit(filter.PageSize).Offset(offset).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	return &Page{
		Posts:    posts,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Total:    total,
	}, nil
}
