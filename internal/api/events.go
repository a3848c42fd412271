package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wuwenbin0122/lrblog/internal/session"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = 50 * time.Second
)

var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameHostOrigin,
}

// sameHostOrigin admits requests without an Origin header and browser pages
// served from the same host; the stream authenticates by cookie.
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.HasSuffix(origin, "://"+r.Host)
}

// handleSessionEvents streams session status changes for the caller's email,
// starting with the current status. Sign-outs of other sessions of the same
// user are forwarded; the stream ends once the caller's own session signs out.
func (h *Handler) handleSessionEvents(c *gin.Context) {
	sess := currentSession(c)
	email := sess.Email()
	sessionID := h.sessions.SessionID(c.Request)

	events, cancel := h.sessions.Hub().Subscribe(16)
	defer cancel()

	conn, err := eventsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf("session events upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debugf("session events client closed: %v", err)
				}
				return
			}
		}
	}()

	send := func(event session.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
		return conn.WriteJSON(event)
	}

	if err := send(session.Event{SessionID: sessionID, Email: email, Status: sess.Status}); err != nil {
		return
	}

	ticker := time.NewTicker(eventsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			if !strings.EqualFold(event.Email, email) {
				continue
			}
			if err := send(event); err != nil {
				return
			}
			if event.Status == session.StatusUnauthenticated && event.SessionID == sessionID {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"),
					time.Now().Add(eventsWriteWait))
				return
			}
		}
	}
}
