// Package wire defines the JSON envelope shared by the WebSocket and HTTP
// surfaces. Clients receive the same canonical message shape on both.
package wire

import (
	"time"

	"chat-hub/domain"

	"github.com/samber/lo"
)

// Message is the server-to-client form of one persisted message.
type Message struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Body     string `json:"message"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"file"`
	SentAt   string `json:"timestamp"`
}

// History is the one-time backfill envelope sent right after connect. The
// type discriminator lets clients tell bulk backfill from single live
// frames.
type History struct {
	Type string    `json:"type"`
	Data []Message `json:"data"`
}

const HistoryType = "pastMessages"

func FromDomain(m domain.Message) Message {
	return Message{
		ID:       m.ID.String(),
		Username: m.Username,
		Body:     m.Body,
		FileURL:  m.AttachmentURL,
		FileName: m.AttachmentName,
		SentAt:   m.SentAt.Format(time.RFC3339Nano),
	}
}

func FromDomainSlice(messages []domain.Message) []Message {
	return lo.Map(messages, func(item domain.Message, _ int) Message {
		return FromDomain(item)
	})
}

func NewHistory(messages []domain.Message) History {
	return History{Type: HistoryType, Data: FromDomainSlice(messages)}
}
