package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/lrblog/internal/auth"
	"github.com/wuwenbin0122/lrblog/internal/forms"
	"github.com/wuwenbin0122/lrblog/internal/posts"
	"github.com/wuwenbin0122/lrblog/internal/session"
)

const sessionKey = "lrblog.session"

type Handler struct {
	authService *auth.Service
	sessions    *session.Manager
	posts       posts.Repository
	logger      *zap.SugaredLogger
}

func NewHandler(authService *auth.Service, sessions *session.Manager, repo posts.Repository, logger *zap.SugaredLogger) *Handler {
	if repo == nil {
		repo = posts.NewStaticRepository()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{authService: authService, sessions: sessions, posts: repo, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.handleHealth)

	apiGroup := router.Group("/api")
	apiGroup.POST("/signup", h.handleSignUp)
	apiGroup.POST("/user", h.requireSession, h.handleUserData)

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/signin", h.handleSignIn)
	authGroup.POST("/signout", h.handleSignOut)
	authGroup.GET("/session", h.handleSession)
	authGroup.GET("/session/events", h.requireSession, h.handleSessionEvents)

	postGroup := apiGroup.Group("/posts")
	postGroup.GET("", h.handleListPosts)
	postGroup.GET("/:id", h.handleGetPost)
	postGroup.POST("", h.requireSession, h.handleCreatePost)
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleSignUp answers with {"message"} on every path so the form can show it
// as a notification whatever the status.
func (h *Handler) handleSignUp(c *gin.Context) {
	var form forms.SignUpForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	form.Normalize()

	if err := form.Validate(); err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"message": verr.First(), "fields": verr.Fields})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	_, err := h.authService.Register(c.Request.Context(), auth.RegisterInput{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Password:  form.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			c.JSON(http.StatusConflict, gin.H{"message": "Email already registered"})
		case errors.Is(err, auth.ErrNameRequired), errors.Is(err, auth.ErrEmailRequired), errors.Is(err, auth.ErrPasswordTooWeak), errors.Is(err, auth.ErrPasswordTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"message": strings.TrimPrefix(err.Error(), "auth: ")})
		default:
			h.logger.Errorw("signup failed", "email", form.Email, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong, please try again"})
		}
		return
	}

	h.logger.Infow("account created", "email", form.Email)
	c.JSON(http.StatusCreated, gin.H{"message": "Account created"})
}

type userDataRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleUserData(c *gin.Context) {
	var req userDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(c, http.StatusBadRequest, "email is required", auth.ErrEmailRequired)
		return
	}

	sess := currentSession(c)
	if !strings.EqualFold(email, sess.Email()) {
		writeError(c, http.StatusForbidden, "cannot read another user's data", errForbidden)
		return
	}

	profile, err := h.authService.Profile(c.Request.Context(), email)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			writeError(c, http.StatusNotFound, "user not found", err)
		default:
			writeError(c, http.StatusInternalServerError, "failed to load user", err)
		}
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *Handler) handleSignIn(c *gin.Context) {
	var form forms.SignInForm
	if err := c.ShouldBind(&form); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	if err := form.Validate(); err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) {
			writeError(c, http.StatusBadRequest, verr.First(), err)
			return
		}
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	result, err := h.sessions.SignIn(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(c, http.StatusUnauthorized, "invalid email or password", err)
		default:
			writeError(c, http.StatusInternalServerError, "failed to sign in", err)
		}
		return
	}

	h.sessions.SetCookie(c.Writer, result)
	c.JSON(http.StatusOK, gin.H{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.Format(time.RFC3339),
		"user":      result.User.Profile(),
	})
}

func (h *Handler) handleSignOut(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context(), c.Request); err != nil {
		writeError(c, http.StatusInternalServerError, "failed to sign out", err)
		return
	}

	h.sessions.ClearCookie(c.Writer)
	c.JSON(http.StatusOK, session.Unauthenticated())
}

func (h *Handler) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.Resolve(c.Request.Context(), c.Request))
}

var errForbidden = errors.New("email does not match session")

// requireSession aborts unless the request carries an authenticated session.
// A session still loading is reported as unavailable so clients retry.
func (h *Handler) requireSession(c *gin.Context) {
	sess := h.sessions.Resolve(c.Request.Context(), c.Request)
	switch sess.Status {
	case session.StatusAuthenticated:
		c.Set(sessionKey, sess)
		c.Next()
	case session.StatusLoading:
		c.Header("Retry-After", "1")
		writeError(c, http.StatusServiceUnavailable, "session is loading", errSessionLoading)
		c.Abort()
	default:
		writeError(c, http.StatusUnauthorized, "authentication required", auth.ErrInvalidToken)
		c.Abort()
	}
}

var errSessionLoading = errors.New("session store did not answer in time")

func currentSession(c *gin.Context) session.Session {
	if value, ok := c.Get(sessionKey); ok {
		if sess, ok := value.(session.Session); ok {
			return sess
		}
	}
	return session.Unauthenticated()
}

func writeError(c *gin.Context, status int, message string, err error) {
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
