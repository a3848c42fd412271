package views

import (
	"context"

	"github.com/wuwenbin0122/lrblog/internal/session"
)

// NavBar is rendered on every page. It is not gated: each session status has
// its own presentation.
type NavBar struct {
	Status    session.Status
	Avatar    string
	AvatarAlt string
}

func (n NavBar) Loading() bool {
	return n.Status == session.StatusLoading
}

func (n NavBar) SignedIn() bool {
	return n.Status == session.StatusAuthenticated
}

type NavBarView struct {
	session  session.Session
	hydrator *Hydrator
}

func NewNavBarView(sess session.Session, deps Deps) *NavBarView {
	return &NavBarView{session: sess, hydrator: NewHydrator(deps.Cache, deps.logger())}
}

func (v *NavBarView) SetSession(sess session.Session) {
	v.session = sess
}

func (v *NavBarView) Load(ctx context.Context) NavBar {
	nav := NavBar{Status: v.session.Status}
	if !v.session.IsAuthenticated() {
		return nav
	}

	v.hydrator.Sync(ctx, v.session)
	model := v.hydrator.Model()

	nav.Avatar = DisplayProfile(v.session, model).Image
	nav.AvatarAlt = "profile " + model.FirstName
	return nav
}

func (v *NavBarView) Hydrator() *Hydrator {
	return v.hydrator
}

func (v *NavBarView) Close() {
	v.hydrator.Close()
}
