package views

import (
	"context"

	"github.com/wuwenbin0122/lrblog/internal/models"
	"github.com/wuwenbin0122/lrblog/internal/session"
)

const profileAbout = "I am a Full Stack Developer and a UI/UX Designer."

// ProfilePage is the content of /profile for a signed-in user.
type ProfilePage struct {
	Card  ProfileDisplay
	About string
	Posts []PostCard
}

// PostCard is one entry of the profile's post list.
type PostCard struct {
	ID         string
	Author     string
	ProfilePic string
	Title      string
	Content    string
	Date       string
	Views      int64
}

type ProfileView struct {
	deps     Deps
	session  session.Session
	hydrator *Hydrator
}

func NewProfileView(sess session.Session, deps Deps) *ProfileView {
	return &ProfileView{
		deps:     deps,
		session:  sess,
		hydrator: NewHydrator(deps.Cache, deps.logger()),
	}
}

func (v *ProfileView) Decide() Decision {
	return Gate(v.session)
}

// SetSession replaces the session the view renders for. The next Load
// refetches when the status changed.
func (v *ProfileView) SetSession(sess session.Session) {
	v.session = sess
}

// Load hydrates the view and returns its page. ok is false when the gate does
// not allow content; nothing is fetched in that case.
func (v *ProfileView) Load(ctx context.Context) (page ProfilePage, ok bool) {
	if v.Decide().Kind != RenderContent {
		return ProfilePage{}, false
	}

	v.hydrator.Sync(ctx, v.session)
	card := DisplayProfile(v.session, v.hydrator.Model())

	return ProfilePage{
		Card:  card,
		About: profileAbout,
		Posts: v.loadPosts(ctx, card.Image),
	}, true
}

func (v *ProfileView) Hydrator() *Hydrator {
	return v.hydrator
}

func (v *ProfileView) Close() {
	v.hydrator.Close()
}

func (v *ProfileView) loadPosts(ctx context.Context, picture string) []PostCard {
	if v.deps.Posts == nil {
		return nil
	}

	posts, err := v.deps.Posts.ByAuthor(ctx, v.session.Email())
	if err != nil {
		v.deps.logger().Warnw("load profile posts failed", "email", v.session.Email(), "error", err)
		return nil
	}

	cards := make([]PostCard, 0, len(posts))
	for _, post := range posts {
		cards = append(cards, newPostCard(post, "You", picture))
	}
	return cards
}

func newPostCard(post models.Post, author, picture string) PostCard {
	return PostCard{
		ID:         post.ID,
		Author:     author,
		ProfilePic: picture,
		Title:      post.Title,
		Content:    post.Content,
		Date:       post.CreatedAt.Format("January 2, 2006"),
		Views:      post.Views,
	}
}
