package views_test

import (
	"testing"

	"github.com/wuwenbin0122/lrblog/internal/session"
	"github.com/wuwenbin0122/lrblog/internal/views"
)

func TestGate(t *testing.T) {
	cases := []struct {
		name     string
		sess     session.Session
		kind     views.DecisionKind
		location string
	}{
		{"loading", session.Loading(), views.RenderPlaceholder, ""},
		{"unauthenticated", session.Unauthenticated(), views.RenderRedirect, "/signin"},
		{"zero session", session.Session{}, views.RenderRedirect, "/signin"},
		{"authenticated without identity", session.Session{Status: session.StatusAuthenticated}, views.RenderRedirect, "/signin"},
		{"authenticated", session.Authenticated(session.Identity{Email: "a@b.com"}), views.RenderContent, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := views.Gate(tc.sess)
			if got.Kind != tc.kind || got.Location != tc.location {
				t.Fatalf("expected %v %q, got %v %q", tc.kind, tc.location, got.Kind, got.Location)
			}
		})
	}
}

func TestGuestGate(t *testing.T) {
	if got := views.GuestGate(session.Loading()); got.Kind != views.RenderPlaceholder {
		t.Fatalf("expected placeholder while loading, got %v", got.Kind)
	}
	if got := views.GuestGate(session.Authenticated(session.Identity{Email: "a@b.com"})); got.Kind != views.RenderRedirect || got.Location != "/profile" {
		t.Fatalf("expected redirect to /profile, got %+v", got)
	}
	if got := views.GuestGate(session.Unauthenticated()); got.Kind != views.RenderContent {
		t.Fatalf("expected content for guests, got %v", got.Kind)
	}
}

func TestEveryGatedViewRedirectsUnauthenticated(t *testing.T) {
	sess := session.Unauthenticated()

	decisions := map[string]views.Decision{
		"profile":      views.NewProfileView(sess, views.Deps{}).Decide(),
		"writearticle": views.NewWriteArticleView(sess).Decide(),
	}

	for name, d := range decisions {
		if d.Kind != views.RenderRedirect || d.Location != views.SignInPath {
			t.Fatalf("%s: expected redirect to sign in, got %+v", name, d)
		}
	}
}
