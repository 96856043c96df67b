package live

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ghostnote/ghost-note/backend/internal/middleware"
	liveService "github.com/ghostnote/ghost-note/backend/internal/service/live"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Handler upgrades owners to a WebSocket that streams new messages.
type Handler struct {
	hub      *liveService.Hub
	upgrader websocket.Upgrader
}

// New creates the live feed handler. originAllowed decides cross origin upgrades.
func New(hub *liveService.Hub, originAllowed func(r *http.Request) bool) *Handler {
	if originAllowed == nil {
		originAllowed = func(*http.Request) bool { return true }
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originAllowed,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.With(auth).Get("/live", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Not authenticated!", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("[live] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(claims.UserID)
	defer h.hub.Unsubscribe(sub)

	logrus.Infof("[live] connection opened for user=%s", claims.Username)
	defer logrus.Infof("[live] connection closed for user=%s", claims.Username)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.readLoop(conn, cancel)

	if err := send(conn, map[string]string{"event": "connected", "username": claims.Username}); err != nil {
		logrus.Debugf("[live] greeting failed: %v", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.Events():
			if !ok {
				err := conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"),
					time.Now().Add(writeWait))
				if err != nil {
					logrus.Debugf("[live] close frame for user=%s failed: %v", claims.Username, err)
				}
				return
			}
			if err := send(conn, evt); err != nil {
				logrus.Debugf("[live] write failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logrus.Debugf("[live] ping failed: %v", err)
				return
			}
		}
	}
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *Handler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logrus.Debugf("[live] set read deadline: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Debugf("[live] read error: %v", err)
			}
			return
		}
	}
}

func send(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}
