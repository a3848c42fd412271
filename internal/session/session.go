// Package session resolves the caller's authentication state.
//
// A Session is always one of three states. Loading means the session store
// did not answer within the resolve budget; callers render a placeholder and
// try again rather than treating the caller as signed out.
package session

import "time"

type Status string

const (
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// Identity is the partial user projection carried by a session. Fields the
// sign-in method did not supply stay empty.
type Identity struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

type Session struct {
	Status Status    `json:"status"`
	User   *Identity `json:"user,omitempty"`
}

func Loading() Session {
	return Session{Status: StatusLoading}
}

func Unauthenticated() Session {
	return Session{Status: StatusUnauthenticated}
}

func Authenticated(identity Identity) Session {
	return Session{Status: StatusAuthenticated, User: &identity}
}

func (s Session) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// Email returns the identity email of an authenticated session, or "".
func (s Session) Email() string {
	if !s.IsAuthenticated() {
		return ""
	}
	return s.User.Email
}

// Record is what the session store keeps per signed-in session.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expiresAt"`
}
