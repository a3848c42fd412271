package models

import (
	"time"

	"github.com/lib/pq"
)

// Post is a published article.
type Post struct {
	ID          string         `json:"id" gorm:"primaryKey;column:id"`
	Slug        string         `json:"slug" gorm:"column:slug"`
	Title       string         `json:"title" gorm:"column:title"`
	Content     string         `json:"content" gorm:"column:content"`
	AuthorEmail string         `json:"authorEmail" gorm:"column:author_email"`
	Tags        pq.StringArray `json:"tags" gorm:"column:tags;type:text[]"`
	Views       int64          `json:"views" gorm:"column:views"`
	CreatedAt   time.Time      `json:"date" gorm:"column:created_at"`
}

func (Post) TableName() string {
	return "posts"
}
