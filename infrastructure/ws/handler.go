package ws

import (
	"context"
	"log/slog"
	"net/http"

	"chat-hub/observability"
	"chat-hub/services"

	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests and runs one Session per connection.
type Handler struct {
	service    services.IChatService
	log        *slog.Logger
	metrics    *observability.Metrics
	bufferSize int
	upgrader   websocket.Upgrader

	// baseCtx outlives individual requests: the request context dies when
	// the connection is hijacked, so sessions are tied to the server
	// lifetime instead.
	baseCtx context.Context
}

func NewHandler(baseCtx context.Context, service services.IChatService,
	metrics *observability.Metrics, bufferSize int, log *slog.Logger) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		metrics:    metrics,
		bufferSize: bufferSize,
		baseCtx:    baseCtx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from another origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	session := NewSession(conn, h.service, h.bufferSize, h.log)
	h.log.Info("client connected", "session_id", session.ID(), "remote", r.RemoteAddr)
	if h.metrics != nil {
		h.metrics.SessionOpened()
		defer h.metrics.SessionClosed()
	}

	// Reuse the handler goroutine for the session; returns on disconnect.
	session.Run(h.baseCtx)
	h.log.Info("client disconnected", "session_id", session.ID())
}
