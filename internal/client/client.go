// Package client talks to the blog's JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/wuwenbin0122/lrblog/internal/forms"
	"github.com/wuwenbin0122/lrblog/internal/models"
)

const defaultHTTPTimeout = 10 * time.Second

// ErrFetchUser is returned for every failed user-data request. Callers cannot
// tell a missing user from a server or network failure.
var ErrFetchUser = errors.New("error fetching user data")

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is the transient message shown after a form submission.
type Notification struct {
	Kind    NotificationKind
	Message string
}

type Client struct {
	baseURL string
	http    httpDoer

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(doer httpDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithToken authenticates requests with a session token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// GetUserData issues a single POST /api/user for email. Any non-2xx answer,
// transport error or undecodable body collapses into ErrFetchUser; context
// cancellation is reported as is.
func (c *Client) GetUserData(ctx context.Context, email string) (*models.Profile, error) {
	resp, err := c.postJSON(ctx, "/api/user", map[string]string{"email": email})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrFetchUser, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrFetchUser
	}

	var profile models.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrFetchUser, err)
	}

	return &profile, nil
}

// SignUp validates the form and, only when it is valid, posts it to
// /api/signup. The server message is surfaced whatever the status code; the
// status only selects the notification kind. An invalid form is reported as
// *forms.ValidationError and no request is made.
func (c *Client) SignUp(ctx context.Context, form forms.SignUpForm) (Notification, error) {
	form.Normalize()
	if err := form.Validate(); err != nil {
		return Notification{}, err
	}

	resp, err := c.postJSON(ctx, "/api/signup", form)
	if err != nil {
		return Notification{}, fmt.Errorf("signup request: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Notification{}, fmt.Errorf("signup response: %w", err)
	}

	kind := NotificationError
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		kind = NotificationSuccess
	}

	return Notification{Kind: kind, Message: body.Message}, nil
}

// SignIn exchanges credentials for a session token, which is then attached to
// later requests made with this client.
func (c *Client) SignIn(ctx context.Context, form forms.SignInForm) error {
	if err := form.Validate(); err != nil {
		return err
	}

	resp, err := c.postJSON(ctx, "/api/auth/signin", form)
	if err != nil {
		return fmt.Errorf("signin request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("signin response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return buildAPIError(resp.StatusCode, body)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("signin response: %w", err)
	}
	if payload.Token == "" {
		return errors.New("signin response: missing token")
	}

	c.mu.Lock()
	c.token = payload.Token
	c.mu.Unlock()

	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.http.Do(req)
}

type apiErrorEnvelope struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func buildAPIError(statusCode int, body []byte) error {
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		if msg := strings.TrimSpace(envelope.Error); msg != "" {
			return fmt.Errorf("api error (%d): %s", statusCode, msg)
		}
		if msg := strings.TrimSpace(envelope.Message); msg != "" {
			return fmt.Errorf("api error (%d): %s", statusCode, msg)
		}
	}

	snippet := strings.TrimSpace(string(body))
	if snippet == "" {
		snippet = http.StatusText(statusCode)
	}
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}

	return fmt.Errorf("api error (%d): %s", statusCode, snippet)
}
