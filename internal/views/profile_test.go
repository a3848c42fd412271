package views_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wuwenbin0122/lrblog/internal/models"
	"github.com/wuwenbin0122/lrblog/internal/session"
	"github.com/wuwenbin0122/lrblog/internal/userdata"
	"github.com/wuwenbin0122/lrblog/internal/views"
)

type stubPosts struct {
	posts []models.Post
	err   error
	asked string
}

func (s *stubPosts) ByAuthor(ctx context.Context, email string) ([]models.Post, error) {
	s.asked = email
	return s.posts, s.err
}

func TestProfileViewLoadingIssuesNoFetch(t *testing.T) {
	fetcher := &countingFetcher{profile: sampleProfile()}
	deps := views.Deps{Cache: userdata.NewCache(fetcher, time.Minute)}

	for _, sess := range []session.Session{session.Loading(), session.Unauthenticated()} {
		view := views.NewProfileView(sess, deps)
		if _, ok := view.Load(context.Background()); ok {
			t.Fatalf("%s: expected no content", sess.Status)
		}
		view.Close()
	}

	if calls := fetcher.calls.Load(); calls != 0 {
		t.Fatalf("expected no fetch, got %d", calls)
	}
}

func TestProfileViewMergesSessionAndFetch(t *testing.T) {
	fetcher := &countingFetcher{profile: sampleProfile()}
	posts := &stubPosts{posts: []models.Post{{
		ID:        "p1",
		Title:     "Hello",
		Content:   "World",
		Views:     7,
		CreatedAt: time.Date(2023, time.May, 4, 0, 0, 0, 0, time.UTC),
	}}}
	deps := views.Deps{Cache: userdata.NewCache(fetcher, time.Minute), Posts: posts}

	view := views.NewProfileView(alice, deps)
	defer view.Close()

	page, ok := view.Load(context.Background())
	if !ok {
		t.Fatalf("expected content for authenticated session")
	}
	if page.Card.Name != "A B" || page.Card.Image != "u" || page.Card.CreatedAt != "t" {
		t.Fatalf("unexpected card %+v", page.Card)
	}
	if posts.asked != "a@b.com" {
		t.Fatalf("expected posts for session email, got %q", posts.asked)
	}
	if len(page.Posts) != 1 || page.Posts[0].Author != "You" || page.Posts[0].ProfilePic != "u" || page.Posts[0].Date != "May 4, 2023" {
		t.Fatalf("unexpected posts %+v", page.Posts)
	}

	named := views.NewProfileView(session.Authenticated(session.Identity{Name: "Real Name", Email: "a@b.com"}), deps)
	defer named.Close()
	page, _ = named.Load(context.Background())
	if page.Card.Name != "Real Name" {
		t.Fatalf("expected session name to take precedence, got %q", page.Card.Name)
	}
}

func TestProfileViewFetchFailureRendersEmpty(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("error fetching user data")}
	deps := views.Deps{Cache: userdata.NewCache(fetcher, time.Minute), Posts: &stubPosts{err: errors.New("db down")}}

	view := views.NewProfileView(alice, deps)
	defer view.Close()

	page, ok := view.Load(context.Background())
	if !ok {
		t.Fatalf("expected content even when the fetch fails")
	}
	if !view.Hydrator().Model().IsZero() {
		t.Fatalf("expected empty model, got %+v", view.Hydrator().Model())
	}
	if page.Card.Name != "" || page.Card.Email != "a@b.com" || page.Card.CreatedAt != "" {
		t.Fatalf("unexpected card %+v", page.Card)
	}
	if page.Posts != nil {
		t.Fatalf("expected no posts when the post source fails")
	}
}

func TestNavBarAndProfileShareOneFetch(t *testing.T) {
	fetcher := &countingFetcher{profile: sampleProfile(), block: make(chan struct{})}
	deps := views.Deps{Cache: userdata.NewCache(fetcher, time.Minute)}

	nav := views.NewNavBarView(alice, deps)
	profile := views.NewProfileView(alice, deps)
	defer nav.Close()
	defer profile.Close()

	navDone := make(chan views.NavBar, 1)
	go func() { navDone <- nav.Load(context.Background()) }()

	pageDone := make(chan views.ProfilePage, 1)
	go func() {
		page, _ := profile.Load(context.Background())
		pageDone <- page
	}()

	deadline := time.After(2 * time.Second)
	for {
		navState, _ := nav.Hydrator().State()
		profileState, _ := profile.Hydrator().State()
		if navState == views.Fetching && profileState == views.Fetching {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("views never started fetching")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(fetcher.block)

	bar := <-navDone
	page := <-pageDone

	if calls := fetcher.calls.Load(); calls != 1 {
		t.Fatalf("expected siblings to share one fetch, got %d", calls)
	}
	if bar.Avatar != "u" || bar.AvatarAlt != "profile A" || !bar.SignedIn() {
		t.Fatalf("unexpected navbar %+v", bar)
	}
	if page.Card.Name != "A B" {
		t.Fatalf("unexpected profile card %+v", page.Card)
	}
}

func TestNavBarStates(t *testing.T) {
	fetcher := &countingFetcher{profile: sampleProfile()}
	deps := views.Deps{Cache: userdata.NewCache(fetcher, time.Minute)}

	loading := views.NewNavBarView(session.Loading(), deps).Load(context.Background())
	if !loading.Loading() || loading.Avatar != "" {
		t.Fatalf("unexpected loading navbar %+v", loading)
	}

	guest := views.NewNavBarView(session.Unauthenticated(), deps).Load(context.Background())
	if guest.SignedIn() || guest.Loading() {
		t.Fatalf("unexpected guest navbar %+v", guest)
	}

	if calls := fetcher.calls.Load(); calls != 0 {
		t.Fatalf("expected no fetch for guests, got %d", calls)
	}
}
