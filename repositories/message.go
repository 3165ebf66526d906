//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-hub/domain"
	"chat-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const keyPrefix = "msg:"

type IMessageRepository interface {
	Append(sub domain.Submission) (domain.Message, error)
	ListAll() ([]domain.Message, error)
	Get(key string) (domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger

	mu        sync.Mutex
	lastStamp time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// record is the persisted layout. Field names match the wire envelope so
// a stored value replays as-is to clients.
type record struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Body     string    `json:"message"`
	FileURL  string    `json:"fileUrl"`
	FileName string    `json:"file"`
	SentAt   time.Time `json:"timestamp"`
}

// Append assigns the identifier and the sequence timestamp, then durably
// persists the message before returning its canonical form.
//
// The key is formatted as "msg:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
//
// The timestamp is taken under a mutex and forced strictly increasing, so
// sequence assignment is linearizable across concurrent appends and ties
// are broken by arrival order at the store.
func (r *MessageRepository) Append(sub domain.Submission) (domain.Message, error) {
	r.mu.Lock()
	stamp := time.Now().UTC()
	if !stamp.After(r.lastStamp) {
		stamp = r.lastStamp.Add(time.Nanosecond)
	}
	r.lastStamp = stamp
	r.mu.Unlock()

	message := domain.Message{
		ID:             uuid.New(),
		Username:       sub.Username,
		Body:           sub.Body,
		AttachmentURL:  sub.FileURL,
		AttachmentName: sub.FileName,
		SentAt:         stamp,
	}
	value, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, err
	}
	key := Key(message)
	if err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	}); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return message, nil
}

// ListAll returns every persisted message ascending by sequence timestamp.
// Thanks to the padded timestamp in the key, a forward prefix scan yields
// messages already sorted; no in-memory sort is needed.
func (r *MessageRepository) ListAll() ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				message, err := decode(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return messages, nil
}

// Get fetches one message by its full storage key. Used by the search
// index, which stores keys rather than duplicating message payloads.
func (r *MessageRepository) Get(key string) (domain.Message, error) {
	var message domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			message, err = decode(value)
			return err
		})
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return message, nil
}

// Key derives the storage key of a persisted message.
func Key(m domain.Message) string {
	return fmt.Sprintf("%s%019d:%s", keyPrefix, m.SentAt.UnixNano(), m.ID)
}

func fromMessage(m domain.Message) record {
	return record{
		ID:       m.ID.String(),
		Username: m.Username,
		Body:     m.Body,
		FileURL:  m.AttachmentURL,
		FileName: m.AttachmentName,
		SentAt:   m.SentAt,
	}
}

func decode(value []byte) (domain.Message, error) {
	var rec record
	if err := json.Unmarshal(value, &rec); err != nil {
		return domain.Message{}, err
	}
	parsedID, err := uuid.Parse(rec.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:             parsedID,
		Username:       rec.Username,
		Body:           rec.Body,
		AttachmentURL:  rec.FileURL,
		AttachmentName: rec.FileName,
		SentAt:         rec.SentAt.UTC(),
	}, nil
}
