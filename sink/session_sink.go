package sink

import (
	"context"

	"chat-hub/domain"
	"chat-hub/errors"
)

// SessionSink is the receiving end of one live connection. The write loop
// of the session owns the channel and drains it to the socket.
type SessionSink struct {
	Events chan domain.Message
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan domain.Message, bufferSize)}
}

// Consume is called by the registry during a broadcast.
// The enqueue is non-blocking: a full buffer means the session is not
// draining (dead or too slow) and the delivery fails immediately instead
// of stalling the broadcast for everyone else. The registry reacts to the
// failure by unregistering the session.
func (s *SessionSink) Consume(ctx context.Context, m domain.Message) error {
	select {
	case s.Events <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSinkFull
	}
}
