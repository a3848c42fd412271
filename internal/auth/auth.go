package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wuwenbin0122/lrblog/internal/models"
	"github.com/wuwenbin0122/lrblog/internal/users"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the longest input bcrypt hashes.
	MaxPasswordBytes = 72
)

var (
	ErrSecretRequired     = errors.New("auth: jwt secret required")
	ErrEmailExists        = errors.New("auth: email already registered")
	ErrNameRequired       = errors.New("auth: first and last name are required")
	ErrEmailRequired      = errors.New("auth: email is required")
	ErrPasswordTooWeak    = errors.New("auth: password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("auth: password must be at most 72 bytes")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrUserNotFound       = errors.New("auth: user not found")
)

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
	User      models.User
}

// Claims are carried by session tokens. The registered ID claim is the
// session id looked up in the session store.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type Service struct {
	secret []byte
	ttl    time.Duration
	users  users.Store
}

func NewService(secret string, ttl time.Duration, store users.Store) (*Service, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrSecretRequired
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if store == nil {
		store = users.NewMemoryStore()
	}

	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		users:  store,
	}, nil
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" || lastName == "" {
		return nil, ErrNameRequired
	}

	email := users.NormalizeEmail(input.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(input.Password) < MinPasswordLength {
		return nil, ErrPasswordTooWeak
	}
	if len(input.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("auth: create user: %w", err)
	}

	sanitized := user.Sanitize()
	return &sanitized, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := users.NormalizeEmail(input.Email)
	if email == "" || strings.TrimSpace(input.Password) == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	token, expiresAt, err := s.generateToken(user, sessionID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Token:     token,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
		User:      user.Sanitize(),
	}, nil
}

// Profile returns the projection of the user registered under email.
func (s *Service) Profile(ctx context.Context, email string) (*models.Profile, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}

	profile := user.Profile()
	return &profile, nil
}

func (s *Service) VerifyToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *Service) generateToken(user *models.User, sessionID string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}
