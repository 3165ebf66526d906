// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once persisted and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event. ID and SentAt are assigned
// by the message store at persistence time; SentAt is the global sequence
// key for history replay.
type Message struct {
	ID             uuid.UUID
	Username       string
	Body           string
	AttachmentURL  string
	AttachmentName string
	SentAt         time.Time
}

func (m Message) HasAttachment() bool {
	return m.AttachmentURL != ""
}

// Attachment is the normalized locator produced by an attachment store.
// Upload backends answer in different shapes; the boundary adapter folds
// them into this single value so the core never branches on shape.
type Attachment struct {
	URL         string
	DisplayName string
}
