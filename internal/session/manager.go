package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wuwenbin0122/lrblog/internal/auth"
	"github.com/wuwenbin0122/lrblog/internal/utils"
)

// Manager issues, resolves and ends sessions.
type Manager struct {
	auth           *auth.Service
	store          Store
	hub            *Hub
	cookieName     string
	cookieSecure   bool
	resolveTimeout time.Duration
	logger         *zap.SugaredLogger
}

func NewManager(authService *auth.Service, store Store, hub *Hub, cfg utils.SessionConfig, logger *zap.SugaredLogger) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if hub == nil {
		hub = NewHub()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		cookieName = "lrblog_session"
	}
	resolveTimeout := cfg.ResolveTimeout
	if resolveTimeout <= 0 {
		resolveTimeout = 1500 * time.Millisecond
	}

	return &Manager{
		auth:           authService,
		store:          store,
		hub:            hub,
		cookieName:     cookieName,
		cookieSecure:   cfg.CookieSecure,
		resolveTimeout: resolveTimeout,
		logger:         logger,
	}
}

func (m *Manager) Hub() *Hub {
	return m.hub
}

// Resolve determines the session of the request. It never fails: problems
// with the token resolve to unauthenticated, a slow store resolves to loading.
func (m *Manager) Resolve(ctx context.Context, r *http.Request) Session {
	token := m.tokenFromRequest(r)
	if token == "" {
		return Unauthenticated()
	}

	claims, err := m.auth.VerifyToken(token)
	if err != nil {
		return Unauthenticated()
	}

	lookupCtx, cancel := context.WithTimeout(ctx, m.resolveTimeout)
	defer cancel()

	record, err := m.store.Load(lookupCtx, claims.ID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return Unauthenticated()
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		m.logger.Warnw("session lookup exceeded resolve budget", "session", claims.ID, "budget", m.resolveTimeout)
		return Loading()
	default:
		m.logger.Warnw("session lookup failed", "session", claims.ID, "error", err)
		return Unauthenticated()
	}

	if !strings.EqualFold(record.Identity.Email, claims.Email) {
		return Unauthenticated()
	}

	return Authenticated(record.Identity)
}

// SignIn checks the credentials, persists a session record and returns the
// token to hand to the client.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*auth.AuthResult, error) {
	result, err := m.auth.Login(ctx, auth.LoginInput{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	record := Record{
		ID:        result.SessionID,
		UserID:    result.User.ID,
		Identity:  Identity{Email: result.User.Email, Image: result.User.Avatar},
		ExpiresAt: result.ExpiresAt,
	}
	if err := m.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("session: save: %w", err)
	}

	m.hub.Publish(Event{SessionID: record.ID, Email: record.Identity.Email, Status: StatusAuthenticated})

	return result, nil
}

// SignOut removes the session the request carries, if any.
func (m *Manager) SignOut(ctx context.Context, r *http.Request) error {
	token := m.tokenFromRequest(r)
	if token == "" {
		return nil
	}

	claims, err := m.auth.VerifyToken(token)
	if err != nil {
		return nil
	}

	if err := m.store.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}

	m.hub.Publish(Event{SessionID: claims.ID, Email: claims.Email, Status: StatusUnauthenticated})

	return nil
}

// SessionID returns the id of the session named by the request's token, or ""
// when the request carries no valid token.
func (m *Manager) SessionID(r *http.Request) string {
	token := m.tokenFromRequest(r)
	if token == "" {
		return ""
	}

	claims, err := m.auth.VerifyToken(token)
	if err != nil {
		return ""
	}
	return claims.ID
}

func (m *Manager) SetCookie(w http.ResponseWriter, result *auth.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) tokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}

	if cookie, err := r.Cookie(m.cookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}

	return ""
}
