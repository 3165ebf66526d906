package attachments

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"

	"chat-hub/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// S3Store uploads attachments to an S3 bucket. Keys are prefixed with a
// fresh UUID so two users uploading "photo.jpg" never clobber each other.
type S3Store struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
	maxSize int64
	log     *slog.Logger
}

// NewS3Store builds the S3 backend. baseURL overrides the public URL root
// (CDN or custom domain); leave it empty to derive the canonical
// bucket.s3.region.amazonaws.com form. maxSize 0 means no limit.
func NewS3Store(client *s3.Client, bucket, region, baseURL string,
	maxSize int64, log *slog.Logger) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
		maxSize: maxSize,
		log:     log,
	}
}

func (s *S3Store) Save(ctx context.Context, filename, contentType string, r io.Reader) (domain.Attachment, error) {
	body, err := buffer(r, s.maxSize)
	if err != nil {
		return domain.Attachment{}, err
	}
	if contentType == "" {
		contentType = mimetype.Detect(body).String()
	}

	key := path.Join(uuid.NewString(), path.Base(filename))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("s3 upload failed: %w", err)
	}
	s.log.Debug("attachment stored", "bucket", s.bucket, "key", key, "bytes", len(body))

	return domain.Attachment{URL: s.objectURL(key), DisplayName: path.Base(filename)}, nil
}

func (s *S3Store) objectURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
}

// buffer reads the whole upload into memory, enforcing the size limit.
func buffer(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxSize {
		return nil, ErrTooLarge
	}
	return body, nil
}
