package views

import (
	"context"

	"go.uber.org/zap"

	"github.com/wuwenbin0122/lrblog/internal/models"
	"github.com/wuwenbin0122/lrblog/internal/userdata"
)

// PostSource lists the posts written by a user.
type PostSource interface {
	ByAuthor(ctx context.Context, email string) ([]models.Post, error)
}

// Deps are the collaborators shared by every view of a page.
type Deps struct {
	Cache  *userdata.Cache
	Posts  PostSource
	Logger *zap.SugaredLogger
}

func (d Deps) logger() *zap.SugaredLogger {
	if d.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return d.Logger
}
