// Package users persists account records.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/wuwenbin0122/lrblog/internal/models"
)

var (
	ErrNotFound    = errors.New("users: not found")
	ErrEmailExists = errors.New("users: email already registered")
)

// Store is the persistence contract used by the auth service.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// NormalizeEmail is the canonical key under which emails are stored and looked up.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
