package stream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/eleven-am/speech-gateway/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 2 * time.Second
	pongWait       = 2 * pingInterval
	maxMessageSize = 512 * 1024
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades client connections and runs the read/write pumps around
// one Session each.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger.With("component", "stream_handler"),
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/speech/stream", h.handleStream)
}

func (h *Handler) handleStream(c echo.Context) error {
	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	session := h.manager.Create()
	h.logger.Info("client connected", "session_id", session.ID, "remote", c.RealIP())

	go h.writePump(ws, session)
	h.readPump(ws, session)

	h.manager.Remove(session.ID)
	h.logger.Info("client disconnected", "session_id", session.ID)
	return nil
}

func (h *Handler) readPump(ws *websocket.Conn, session *Session) {
	defer ws.Close()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Error("websocket read error", "session_id", session.ID, "error", err)
			}
			return
		}

		// any traffic proves the peer is alive
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := protocol.Decode(data)
		if err != nil {
			// malformed: reported and ignored, connection stays up
			h.logger.Warn("rejected message", "session_id", session.ID, "error", err)
			session.Reject(err.Error())
			continue
		}
		session.Handle(msg)
	}
}

// writePump exits only when the session's outbound channel closes, never on
// Done() directly: the shutdown path queues a final error frame before
// closing the channel, and that frame must reach the client.
func (h *Handler) writePump(ws *websocket.Conn, session *Session) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case msg, ok := <-session.Outbound():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := msg.Encode()
			if err != nil {
				h.logger.Error("encode frame failed", "session_id", session.ID, "error", err)
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Error("websocket write error", "session_id", session.ID, "error", err)
				return
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
