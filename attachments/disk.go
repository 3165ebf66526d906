package attachments

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"chat-hub/domain"

	"github.com/google/uuid"
)

// DiskStore keeps attachments in a local directory, served by whatever
// fronts baseURL. Each file lands in its own UUID subdirectory under its
// original (sanitized) name so the display name survives on disk.
type DiskStore struct {
	dir     string
	baseURL string
	maxSize int64
	log     *slog.Logger
}

func NewDiskStore(dir, baseURL string, maxSize int64, log *slog.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("attachment directory: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: baseURL, maxSize: maxSize, log: log}, nil
}

func (s *DiskStore) Save(ctx context.Context, filename, contentType string, r io.Reader) (domain.Attachment, error) {
	body, err := buffer(r, s.maxSize)
	if err != nil {
		return domain.Attachment{}, err
	}

	name := filepath.Base(filename)
	sub := uuid.NewString()
	if err := os.MkdirAll(filepath.Join(s.dir, sub), 0o755); err != nil {
		return domain.Attachment{}, err
	}
	if err := os.WriteFile(filepath.Join(s.dir, sub, name), body, 0o644); err != nil {
		return domain.Attachment{}, err
	}
	s.log.Debug("attachment stored", "dir", sub, "file", name, "bytes", len(body))

	escaped := (&url.URL{Path: sub + "/" + name}).EscapedPath()
	return domain.Attachment{
		URL:         fmt.Sprintf("%s/%s", s.baseURL, escaped),
		DisplayName: name,
	}, nil
}
