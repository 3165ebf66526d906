package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/moderation"
	"chat-hub/observability"
	"chat-hub/repositories"
)

// Router turns one inbound submission into one persisted, globally ordered
// message and fans it out to every registered session.
//
// Append and broadcast run under a single mutex. The store alone defines
// the total order of messages; the mutex extends that order to the fan-out,
// so every session registered across two broadcasts observes them in
// persisted order. Attach shares the same mutex, which closes the gap
// between the history snapshot read and broadcast registration: a joining
// session can neither miss nor double-receive a message persisted while it
// joins.
type Router struct {
	mu         sync.Mutex
	log        *slog.Logger
	registry   contract.IRegistry
	repository repositories.IMessageRepository
	index      repositories.IMessageIndex
	moderator  *moderation.Moderator
	metrics    *observability.Metrics
}

// NewRouter wires the coordination core. index, moderator, and metrics are
// optional; pass nil to disable the corresponding concern.
func NewRouter(log *slog.Logger, registry contract.IRegistry,
	repository repositories.IMessageRepository, index repositories.IMessageIndex,
	moderator *moderation.Moderator, metrics *observability.Metrics) *Router {
	return &Router{
		log:        log,
		registry:   registry,
		repository: repository,
		index:      index,
		moderator:  moderator,
		metrics:    metrics,
	}
}

// HandleIncoming validates, persists, and broadcasts one submission.
// Persistence is attempted exactly once: a store failure drops the
// submission with no broadcast, while per-session fan-out failures never
// roll it back. The sender receives the same canonical broadcast as every
// other session.
func (r *Router) HandleIncoming(ctx context.Context, sub domain.Submission) (domain.Message, error) {
	if err := sub.Validate(); err != nil {
		return domain.Message{}, err
	}
	if r.moderator != nil {
		sub.Body = r.moderator.Censor(sub.Body)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	message, err := r.repository.Append(sub)
	if err != nil {
		return domain.Message{}, err
	}
	if r.index != nil {
		// The store is the source of truth; a lost index entry only
		// degrades search results.
		if err := r.index.Index(message); err != nil {
			r.log.Warn("message not indexed", "message_id", message.ID, "error", err)
		}
	}
	delivered, failed := r.registry.Broadcast(ctx, message)
	r.log.Debug("message broadcast",
		"message_id", message.ID,
		"delivered", delivered,
		"failed", failed)
	if r.metrics != nil {
		r.metrics.MessagePersisted(time.Since(start), failed)
	}
	return message, nil
}

// Attach atomically reads the history snapshot and registers the session
// for broadcast. Once Attach returns, every later message reaches the sink;
// everything earlier is in the returned slice, ascending by sequence
// timestamp, exactly once.
func (r *Router) Attach(sessionID string, sink contract.EventSink) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history, err := r.repository.ListAll()
	if err != nil {
		return nil, err
	}
	r.registry.Register(sessionID, sink)
	return history, nil
}

// Detach removes the session from the fan-out set. Safe to call for a
// session the registry has already dropped.
func (r *Router) Detach(sessionID string) {
	r.registry.Unregister(sessionID)
}
