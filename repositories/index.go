package repositories

import (
	"context"
	"log/slog"

	"chat-hub/domain"

	"github.com/blugelabs/bluge"
)

type IMessageIndex interface {
	Index(m domain.Message) error
	Search(ctx context.Context, terms string, limit int) ([]string, error)
}

// MessageIndex maintains a full-text index over message bodies and sender
// names. Badger remains the source of truth: the index only stores the
// storage key of each message, and an index write failure never fails the
// append it follows.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

func (i *MessageIndex) Index(m domain.Message) error {
	doc := bluge.NewDocument(m.ID.String()).
		AddField(bluge.NewTextField("body", m.Body)).
		AddField(bluge.NewTextField("username", m.Username)).
		AddField(bluge.NewKeywordField("key", Key(m)).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Search returns the storage keys of the best matches for the given terms,
// to be hydrated from the message store.
func (i *MessageIndex) Search(ctx context.Context, terms string, limit int) ([]string, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	query := bluge.NewBooleanQuery().AddShould(
		bluge.NewMatchQuery(terms).SetField("body"),
		bluge.NewMatchQuery(terms).SetField("username"),
	)
	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var keys []string
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "key" {
				keys = append(keys, string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return keys, nil
}
