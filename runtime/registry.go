// Package runtime coordinates session registration, message ordering, and
// fan-out. It orchestrates the system without containing business logic
// or domain rules.
package runtime

import (
	"context"
	"log/slog"
	"sync"

	"chat-hub/contract"
	"chat-hub/domain"
)

// Registry is the process-wide set of live sessions, owned explicitly and
// passed by reference to the router rather than living as ambient global
// state. All mutation happens under the mutex.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	sessions map[string]contract.EventSink
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[string]contract.EventSink),
	}
}

// Register adds a session. Registering an already present session is a
// no-op and keeps the original sink.
func (r *Registry) Register(sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; ok {
		return
	}
	r.sessions[sessionID] = sink
}

// Unregister removes a session. Removing an absent session is a no-op.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Broadcast delivers one message to every registered session.
// Per-session failures are isolated: a dead session never aborts delivery
// to the rest, and any session whose delivery attempt fails is unregistered
// as a consequence. Sends go through EventSink.Consume, which is bounded,
// so a broadcast can never hang on a closed connection.
func (r *Registry) Broadcast(ctx context.Context, m domain.Message) (delivered, failed int) {
	r.mu.RLock()
	snapshot := make(map[string]contract.EventSink, len(r.sessions))
	for id, sink := range r.sessions {
		snapshot[id] = sink
	}
	r.mu.RUnlock()

	var lost []string
	for id, sink := range snapshot {
		if err := sink.Consume(ctx, m); err != nil {
			r.log.Warn("delivery failed, dropping session",
				"session_id", id, "message_id", m.ID, "error", err)
			lost = append(lost, id)
			failed++
			continue
		}
		delivered++
	}
	for _, id := range lost {
		r.Unregister(id)
	}
	return delivered, failed
}
