// Package web serves the blog's HTML pages.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wuwenbin0122/lrblog/internal/auth"
	"github.com/wuwenbin0122/lrblog/internal/forms"
	"github.com/wuwenbin0122/lrblog/internal/models"
	"github.com/wuwenbin0122/lrblog/internal/posts"
	"github.com/wuwenbin0122/lrblog/internal/session"
	"github.com/wuwenbin0122/lrblog/internal/userdata"
	"github.com/wuwenbin0122/lrblog/internal/views"
)

//go:embed templates/*.html
var templateFS embed.FS

// RefreshAfter is the Refresh header sent with the loading placeholder.
const RefreshAfter = "1"

type Server struct {
	authService *auth.Service
	sessions    *session.Manager
	posts       posts.Repository
	deps        views.Deps
	templates   *template.Template
	logger      *zap.SugaredLogger
}

func NewServer(authService *auth.Service, sessions *session.Manager, cache *userdata.Cache, repo posts.Repository, logger *zap.SugaredLogger) (*Server, error) {
	if repo == nil {
		repo = posts.NewStaticRepository()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{"join": strings.Join}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}

	return &Server{
		authService: authService,
		sessions:    sessions,
		posts:       repo,
		deps:        views.Deps{Cache: cache, Posts: repo, Logger: logger},
		templates:   tmpl,
		logger:      logger,
	}, nil
}

func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(s.templates)

	router.GET("/", s.handleHome)
	router.GET("/profile", s.handleProfile)
	router.GET("/writearticle", s.handleWriteArticle)
	router.POST("/writearticle", s.handlePublishArticle)
	router.GET("/signup", s.handleSignUpPage)
	router.POST("/signup", s.handleSignUp)
	router.GET("/signin", s.handleSignInPage)
	router.POST("/signin", s.handleSignIn)
	router.POST("/signout", s.handleSignOut)
}

func (s *Server) resolve(c *gin.Context) session.Session {
	return s.sessions.Resolve(c.Request.Context(), c.Request)
}

// navbar hydrates the navigation bar for sess. The caller closes the view.
func (s *Server) navbar(c *gin.Context, sess session.Session) (*views.NavBarView, views.NavBar) {
	view := views.NewNavBarView(sess, s.deps)
	return view, view.Load(c.Request.Context())
}

// gate renders the placeholder or redirect of a decision and reports whether
// the handler may render its content.
func (s *Server) gate(c *gin.Context, decision views.Decision, title string) bool {
	switch decision.Kind {
	case views.RenderPlaceholder:
		c.Header("Refresh", RefreshAfter)
		c.HTML(http.StatusOK, "loading.html", gin.H{
			"Title": title,
			"Nav":   views.NavBar{Status: session.StatusLoading},
		})
		return false
	case views.RenderRedirect:
		c.Redirect(http.StatusSeeOther, decision.Location)
		return false
	default:
		return true
	}
}

func (s *Server) handleHome(c *gin.Context) {
	sess := s.resolve(c)
	navView, nav := s.navbar(c, sess)
	defer navView.Close()

	page, _ := strconv.Atoi(c.Query("page"))
	search := strings.TrimSpace(c.Query("search"))

	result, err := s.posts.List(c.Request.Context(), posts.Filter{Page: page, Search: search})
	if err != nil {
		s.logger.Errorw("list posts failed", "error", err)
		result = &posts.Page{Page: 1, PageSize: posts.DefaultPageSize}
	}

	cards := make([]views.PostCard, 0, len(result.Posts))
	for _, post := range result.Posts {
		cards = append(cards, feedCard(post))
	}

	prev, next := 0, 0
	if result.Page > 1 {
		prev = result.Page - 1
	}
	if int64(result.Page*result.PageSize) < result.Total {
		next = result.Page + 1
	}

	c.HTML(http.StatusOK, "home.html", gin.H{
		"Title":    "Home",
		"Nav":      nav,
		"Posts":    cards,
		"Search":   search,
		"PrevPage": prev,
		"NextPage": next,
	})
}

// handleProfile hydrates the navbar and the profile card concurrently; both
// subscribe to the same cached user fetch.
func (s *Server) handleProfile(c *gin.Context) {
	sess := s.resolve(c)
	profileView := views.NewProfileView(sess, s.deps)
	defer profileView.Close()

	if !s.gate(c, profileView.Decide(), "Profile") {
		return
	}

	navView := views.NewNavBarView(sess, s.deps)
	defer navView.Close()

	var (
		nav  views.NavBar
		page views.ProfilePage
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		nav = navView.Load(ctx)
		return nil
	})
	g.Go(func() error {
		page, _ = profileView.Load(ctx)
		return nil
	})
	_ = g.Wait()

	c.HTML(http.StatusOK, "profile.html", gin.H{
		"Title": "Profile",
		"Nav":   nav,
		"Page":  page,
	})
}

func (s *Server) handleWriteArticle(c *gin.Context) {
	sess := s.resolve(c)
	view := views.NewWriteArticleView(sess)
	if !s.gate(c, view.Decide(), "Write") {
		return
	}

	s.renderWriteArticle(c, sess, http.StatusOK, view)
}

func (s *Server) handlePublishArticle(c *gin.Context) {
	sess := s.resolve(c)
	view := views.NewWriteArticleView(sess)
	if !s.gate(c, view.Decide(), "Write") {
		return
	}

	var form forms.ArticleForm
	if err := c.ShouldBind(&form); err != nil {
		s.logger.Debugw("bind article form failed", "error", err)
	}
	form.Tags = splitTags(form.Tags)

	if !view.Submit(form) {
		s.renderWriteArticle(c, sess, http.StatusBadRequest, view)
		return
	}

	post := &models.Post{
		Title:       view.Form.Title,
		Content:     view.Form.Content,
		AuthorEmail: view.Author(),
		Tags:        view.Form.Tags,
	}
	status := http.StatusCreated
	switch err := s.posts.Create(c.Request.Context(), post); {
	case err == nil:
		view.Complete(true, "Article published")
	case errors.Is(err, posts.ErrReadOnly):
		status = http.StatusServiceUnavailable
		view.Complete(false, "Publishing is not available right now")
	case errors.Is(err, posts.ErrSlugTaken):
		status = http.StatusConflict
		view.Complete(false, "An article with this title already exists")
	default:
		s.logger.Errorw("publish article failed", "author", view.Author(), "error", err)
		status = http.StatusInternalServerError
		view.Complete(false, "Something went wrong, please try again")
	}

	s.renderWriteArticle(c, sess, status, view)
}

func (s *Server) renderWriteArticle(c *gin.Context, sess session.Session, status int, view *views.WriteArticleView) {
	navView, nav := s.navbar(c, sess)
	defer navView.Close()

	c.HTML(status, "writearticle.html", gin.H{
		"Title": "Write",
		"Nav":   nav,
		"View":  view,
	})
}

func (s *Server) handleSignUpPage(c *gin.Context) {
	sess := s.resolve(c)
	view := views.NewSignUpView(sess)
	if !s.gate(c, view.Decide(), "Sign up") {
		return
	}

	s.renderForm(c, sess, http.StatusOK, "signup.html", "Sign up", view)
}

func (s *Server) handleSignUp(c *gin.Context) {
	sess := s.resolve(c)
	view := views.NewSignUpView(sess)
	if !s.gate(c, view.Decide(), "Sign up") {
		return
	}

	var form forms.SignUpForm
	if err := c.ShouldBind(&form); err != nil {
		s.logger.Debugw("bind signup form failed", "error", err)
	}

	if !view.Submit(form) {
		s.renderForm(c, sess, http.StatusBadRequest, "signup.html", "Sign up", view)
		return
	}

	_, err := s.authService.Register(c.Request.Context(), auth.RegisterInput{
		FirstName: view.Form.FirstName,
		LastName:  view.Form.LastName,
		Email:     view.Form.Email,
		Password:  view.Form.Password,
	})
	status := http.StatusCreated
	switch {
	case err == nil:
		view.Complete(true, "Account created")
	case errors.Is(err, auth.ErrEmailExists):
		status = http.StatusConflict
		view.Complete(false, "Email already registered")
	case errors.Is(err, auth.ErrPasswordTooLong):
		status = http.StatusBadRequest
		view.Complete(false, "Password must be at most 72 bytes")
	default:
		s.logger.Errorw("signup failed", "email", view.Form.Email, "error", err)
		status = http.StatusInternalServerError
		view.Complete(false, "Something went wrong, please try again")
	}

	s.renderForm(c, sess, status, "signup.html", "Sign up", view)
}

func (s *Server) handleSignInPage(c *gin.Context) {
	sess := s.resolve(c)
	view := views.NewSignInView(sess)
	if !s.gate(c, view.Decide(), "Sign in") {
		return
	}

	s.renderForm(c, sess, http.StatusOK, "signin.html", "Sign in", view)
}

func (s *Server) handleSignIn(c *gin.Context) {
	sess := s.resolve(c)
	view := views.NewSignInView(sess)
	if !s.gate(c, view.Decide(), "Sign in") {
		return
	}

	var form forms.SignInForm
	if err := c.ShouldBind(&form); err != nil {
		s.logger.Debugw("bind signin form failed", "error", err)
	}
	view.Email = strings.TrimSpace(form.Email)

	if err := form.Validate(); err != nil {
		var verr *forms.ValidationError
		message := "Email and password are required"
		if errors.As(err, &verr) {
			message = verr.First()
		}
		view.Notification = &views.Notification{Kind: "error", Message: message}
		s.renderForm(c, sess, http.StatusBadRequest, "signin.html", "Sign in", view)
		return
	}

	result, err := s.sessions.SignIn(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		status := http.StatusInternalServerError
		message := "Something went wrong, please try again"
		if errors.Is(err, auth.ErrInvalidCredentials) {
			status = http.StatusUnauthorized
			message = "Invalid email or password"
		} else {
			s.logger.Errorw("signin failed", "email", view.Email, "error", err)
		}
		view.Notification = &views.Notification{Kind: "error", Message: message}
		s.renderForm(c, sess, status, "signin.html", "Sign in", view)
		return
	}

	s.sessions.SetCookie(c.Writer, result)
	c.Redirect(http.StatusSeeOther, views.ProfilePath)
}

func (s *Server) handleSignOut(c *gin.Context) {
	if err := s.sessions.SignOut(c.Request.Context(), c.Request); err != nil {
		s.logger.Warnw("signout failed", "error", err)
	}
	s.sessions.ClearCookie(c.Writer)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) renderForm(c *gin.Context, sess session.Session, status int, name, title string, view any) {
	navView, nav := s.navbar(c, sess)
	defer navView.Close()

	c.HTML(status, name, gin.H{
		"Title": title,
		"Nav":   nav,
		"View":  view,
	})
}

func feedCard(post models.Post) views.PostCard {
	author := post.AuthorEmail
	if author == "" {
		author = "LR Blog"
	}
	return views.PostCard{
		ID:         post.ID,
		Author:     author,
		ProfilePic: views.AvatarURL(author),
		Title:      post.Title,
		Content:    post.Content,
		Date:       post.CreatedAt.Format("January 2, 2006"),
		Views:      post.Views,
	}
}

// splitTags accepts a single comma separated field as well as repeated ones.
func splitTags(values []string) []string {
	var tags []string
	for _, value := range values {
		for _, tag := range strings.Split(value, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}
