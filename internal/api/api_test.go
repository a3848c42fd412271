package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wuwenbin0122/lrblog/internal/auth"
	"github.com/wuwenbin0122/lrblog/internal/posts"
	"github.com/wuwenbin0122/lrblog/internal/session"
	"github.com/wuwenbin0122/lrblog/internal/utils"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authService, err := auth.NewService("test-secret", time.Hour, nil)
	if err != nil {
		t.Fatalf("failed to create auth service: %v", err)
	}

	sessions := session.NewManager(authService, session.NewMemoryStore(), session.NewHub(),
		utils.SessionConfig{CookieName: "sid", ResolveTimeout: time.Second}, nil)

	handler := NewHandler(authService, sessions, posts.NewStaticRepository(), nil)
	router := gin.New()
	handler.RegisterRoutes(router)

	return router, handler
}

func signUp(t *testing.T, router *gin.Engine, email string) *httptest.ResponseRecorder {
	t.Helper()
	body := map[string]string{
		"firstName":       "Alice",
		"lastName":        "Liddell",
		"email":           email,
		"password":        "wonderland",
		"confirmPassword": "wonderland",
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/signup", body))
	return rec
}

func signIn(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    email,
		"password": "wonderland",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected signin status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("expected token in signin response")
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "sid=") {
		t.Fatalf("expected session cookie, got %q", rec.Header().Get("Set-Cookie"))
	}
	return token
}

func TestSignUp(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := signUp(t, router, "alice@example.com")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp["message"] != "Account created" {
		t.Fatalf("unexpected message %v", resp["message"])
	}

	rec = signUp(t, router, "ALICE@example.com")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp["message"] != "Email already registered" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

func TestSignUpValidation(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/signup", map[string]string{
		"firstName":       "Alice",
		"lastName":        "Liddell",
		"email":           "alice@example.com",
		"password":        "wonderland",
		"confirmPassword": "looking-glass",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp["message"] != "Passwords must match" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

func TestSignUpRejectsPasswordOverBcryptLimit(t *testing.T) {
	router, _ := setupTestRouter(t)

	password := strings.Repeat("é", 40)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/signup", map[string]string{
		"firstName":       "Alice",
		"lastName":        "Liddell",
		"email":           "alice@example.com",
		"password":        password,
		"confirmPassword": password,
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	decodeBody(t, rec.Body.Bytes(), &resp)
	if resp["message"] != "Password must be at most 72 bytes" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

func TestUserData(t *testing.T) {
	router, _ := setupTestRouter(t)
	signUp(t, router, "alice@example.com")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/user", map[string]string{"email": "alice@example.com"}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without session, got %d", rec.Code)
	}

	token := signIn(t, router, "alice@example.com")

	cases := []struct {
		name   string
		email  string
		status int
	}{
		{name: "own email", email: "alice@example.com", status: http.StatusOK},
		{name: "missing email", email: "", status: http.StatusBadRequest},
		{name: "other email", email: "bob@example.com", status: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := newJSONRequest(t, http.MethodPost, "/api/user", map[string]string{"email": tc.email})
			req.Header.Set("Authorization", "Bearer "+token)
			router.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}
			if tc.status != http.StatusOK {
				return
			}
			var profile map[string]any
			decodeBody(t, rec.Body.Bytes(), &profile)
			if profile["firstName"] != "Alice" || profile["lastName"] != "Liddell" {
				t.Fatalf("unexpected profile %v", profile)
			}
			if _, leaked := profile["password"]; leaked {
				t.Fatalf("profile leaked password field")
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	router, _ := setupTestRouter(t)
	signUp(t, router, "alice@example.com")
	token := signIn(t, router, "alice@example.com")

	status := func() map[string]any {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: token})
		router.ServeHTTP(rec, req)
		var resp map[string]any
		decodeBody(t, rec.Body.Bytes(), &resp)
		return resp
	}

	resp := status()
	if resp["status"] != string(session.StatusAuthenticated) {
		t.Fatalf("expected authenticated session, got %v", resp)
	}
	user, _ := resp["user"].(map[string]any)
	if user["email"] != "alice@example.com" || user["name"] != nil {
		t.Fatalf("unexpected session user %v", user)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: token})
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected signout status 200, got %d", rec.Code)
	}

	if resp := status(); resp["status"] != string(session.StatusUnauthenticated) {
		t.Fatalf("expected unauthenticated after signout, got %v", resp)
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	router, _ := setupTestRouter(t)
	signUp(t, router, "alice@example.com")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "alice@example.com",
		"password": "not-the-password",
	}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestPostsRoutes(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts?page_size=2&tags=design", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var list struct {
		Posts []map[string]any `json:"posts"`
		Total int              `json:"total"`
	}
	decodeBody(t, rec.Body.Bytes(), &list)
	if list.Total != 1 || len(list.Posts) != 1 || list.Posts[0]["id"] != "2" {
		t.Fatalf("unexpected listing %+v", list)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts?page=4611686018427387904", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected huge page to answer 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	article := map[string]any{"title": "Hello", "content": "World"}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/posts", article))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without session, got %d", rec.Code)
	}

	signUp(t, router, "alice@example.com")
	token := signIn(t, router, "alice@example.com")

	rec = httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/posts", article)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503 from read-only store, got %d", rec.Code)
	}
}

func TestSessionEventsStream(t *testing.T) {
	router, _ := setupTestRouter(t)
	signUp(t, router, "alice@example.com")
	token := signIn(t, router, "alice@example.com")

	server := httptest.NewServer(router)
	defer server.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/auth/session/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var event session.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read initial event: %v", err)
	}
	if event.Status != session.StatusAuthenticated || event.Email != "alice@example.com" {
		t.Fatalf("unexpected initial event %+v", event)
	}

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/auth/signout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("signout request failed: %v", err)
	}
	resp.Body.Close()

	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read signout event: %v", err)
	}
	if event.Status != session.StatusUnauthenticated {
		t.Fatalf("expected unauthenticated event, got %+v", event)
	}
}

func TestSessionEventsOutliveOtherSessionSignOut(t *testing.T) {
	router, handler := setupTestRouter(t)
	signUp(t, router, "alice@example.com")
	laptop := signIn(t, router, "alice@example.com")
	phone := signIn(t, router, "alice@example.com")

	server := httptest.NewServer(router)
	defer server.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+laptop)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/auth/session/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var event session.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read initial event: %v", err)
	}
	laptopID := event.SessionID
	if laptopID == "" {
		t.Fatalf("expected initial event to carry the session id")
	}

	signOut := func(token string) {
		req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/auth/signout", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("signout request failed: %v", err)
		}
		resp.Body.Close()
	}

	signOut(phone)
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read phone signout event: %v", err)
	}
	if event.Status != session.StatusUnauthenticated || event.SessionID == laptopID {
		t.Fatalf("expected the other session's signout, got %+v", event)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+laptop)
	if got := handler.sessions.Resolve(req.Context(), req); !got.IsAuthenticated() {
		t.Fatalf("expected laptop session to stay valid, got %s", got.Status)
	}

	signOut(laptop)
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("stream closed before the caller's own signout: %v", err)
	}
	if event.SessionID != laptopID {
		t.Fatalf("expected the caller's signout, got %+v", event)
	}

	if err := conn.ReadJSON(&event); err == nil {
		t.Fatalf("expected stream to close after the caller signed out")
	}
}

func TestSessionEventsRequireSession(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/session/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	req, err := http.NewRequest(method, path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, data []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
