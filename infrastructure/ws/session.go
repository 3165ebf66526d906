// Package ws is the WebSocket transport: one Session per connection, a
// strictly sequential read loop feeding the router, and a write loop
// draining the session sink to the socket.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"chat-hub/domain"
	"chat-hub/services"
	"chat-hub/sink"
	"chat-hub/wire"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type State int32

const (
	Open State = iota
	Closing
	Closed
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Session owns one WebSocket connection exclusively. The registry only
// ever holds the session's sink, never the connection, so a concurrent
// broadcast can at worst fail an enqueue and can never touch the socket.
type Session struct {
	id      string
	conn    *websocket.Conn
	sink    *sink.SessionSink
	service services.IChatService
	log     *slog.Logger

	state     atomic.Int32
	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(conn *websocket.Conn, service services.IChatService,
	bufferSize int, log *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		conn:    conn,
		sink:    sink.NewSessionSink(bufferSize),
		service: service,
		log:     log.With("session_id", id),
		done:    make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Run drives the whole session lifecycle: join (atomic snapshot read plus
// registration), backfill, then the read loop. It blocks until the
// connection dies. The write loop runs in its own goroutine so a slow
// client never stalls reads.
func (s *Session) Run(ctx context.Context) {
	defer s.Close()

	history, err := s.service.Join(s.id, s.sink)
	if err != nil {
		s.log.Error("history snapshot failed, refusing session", "error", err)
		return
	}

	if err := s.writeJSON(wire.NewHistory(history)); err != nil {
		s.log.Warn("history backfill not delivered", "error", err)
		return
	}

	go s.writeLoop(ctx)
	s.readLoop(ctx)
}

// readLoop handles inbound frames strictly sequentially: no two frames
// from the same connection are ever processed concurrently.
func (s *Session) readLoop(ctx context.Context) {
	defer s.Close()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var sub domain.Submission
		if err := s.conn.ReadJSON(&sub); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("connection dropped", "error", err)
			} else {
				s.log.Debug("connection closed", "error", err)
			}
			return
		}
		if _, err := s.service.PostMessage(ctx, sub); err != nil {
			// Invalid or unpersistable submissions are dropped without
			// feedback to the sender; nothing was broadcast.
			s.log.Debug("submission dropped", "username", sub.Username, "error", err)
		}
	}
}

func (s *Session) writeLoop(ctx context.Context) {
	defer s.Close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case m := <-s.sink.Events:
			if err := s.writeJSON(wire.FromDomain(m)); err != nil {
				s.log.Debug("live delivery failed", "message_id", m.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) writeJSON(v any) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("write to session %s: %w", s.id, err)
	}
	return nil
}

// Close tears the session down exactly once, even when the read loop, the
// write loop, and a remote close race each other: deregister, release the
// connection, mark Closed.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(Closing))
		close(s.done)
		s.service.Leave(s.id)
		_ = s.conn.Close()
		s.state.Store(int32(Closed))
		s.log.Debug("session closed")
	})
}
