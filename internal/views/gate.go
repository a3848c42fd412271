// Package views builds the view-models of the blog's pages from a resolved
// session. Views never look the session up themselves; it is handed to their
// constructor.
package views

import "github.com/wuwenbin0122/lrblog/internal/session"

const (
	SignInPath  = "/signin"
	ProfilePath = "/profile"
)

type DecisionKind int

const (
	RenderPlaceholder DecisionKind = iota
	RenderRedirect
	RenderContent
)

// Decision says what a gated view shows for a session.
type Decision struct {
	Kind     DecisionKind
	Location string
}

// Gate guards views that need a signed-in user. Unauthenticated callers are
// sent to the sign-in page; where they came from is not remembered.
func Gate(sess session.Session) Decision {
	switch sess.Status {
	case session.StatusLoading:
		return Decision{Kind: RenderPlaceholder}
	case session.StatusAuthenticated:
		if sess.User != nil {
			return Decision{Kind: RenderContent}
		}
	}
	return Decision{Kind: RenderRedirect, Location: SignInPath}
}

// GuestGate guards the sign-up and sign-in pages, which only make sense for
// callers without a session.
func GuestGate(sess session.Session) Decision {
	switch sess.Status {
	case session.StatusLoading:
		return Decision{Kind: RenderPlaceholder}
	case session.StatusAuthenticated:
		return Decision{Kind: RenderRedirect, Location: ProfilePath}
	default:
		return Decision{Kind: RenderContent}
	}
}
