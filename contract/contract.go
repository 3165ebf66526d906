//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"

	"chat-hub/domain"
)

// EventSink is one session's receiving end. Consume must have a bounded
// failure path: it never blocks indefinitely on a dead or slow session.
type EventSink interface {
	Consume(ctx context.Context, m domain.Message) error
}

// IRegistry is the concurrency-safe set of live sessions. A session is
// registered exactly while it is open; delivery failures remove it.
type IRegistry interface {
	Register(sessionID string, sink EventSink)
	Unregister(sessionID string)
	Broadcast(ctx context.Context, m domain.Message) (delivered, failed int)
	Len() int
}

// IRouter turns one inbound submission into one persisted, globally
// ordered message and fans it out to every registered session.
type IRouter interface {
	HandleIncoming(ctx context.Context, sub domain.Submission) (domain.Message, error)
	Attach(sessionID string, sink EventSink) ([]domain.Message, error)
	Detach(sessionID string)
}
