//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_attachment_store.go -package=mocks

// Package attachments holds the upload backends. The core only ever sees
// the normalized domain.Attachment value they produce; which backend
// answered, and in which shape, stays behind this boundary.
package attachments

import (
	"context"
	"fmt"
	"io"

	"chat-hub/domain"
)

var ErrTooLarge = fmt.Errorf("attachment exceeds the size limit")

// Store persists one uploaded file and returns a retrievable locator.
type Store interface {
	Save(ctx context.Context, filename, contentType string, r io.Reader) (domain.Attachment, error)
}
