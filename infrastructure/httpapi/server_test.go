package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/mocks"
	"chat-hub/observability"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type stubService struct {
	history    []domain.Message
	historyErr error
	searchHits []domain.Message
}

func (s *stubService) PostMessage(ctx context.Context, sub domain.Submission) (domain.Message, error) {
	return domain.Message{}, nil
}

func (s *stubService) History() ([]domain.Message, error) {
	return s.history, s.historyErr
}

func (s *stubService) Search(ctx context.Context, terms string, limit int) ([]domain.Message, error) {
	if limit < len(s.searchHits) {
		return s.searchHits[:limit], nil
	}
	return s.searchHits, nil
}

func (s *stubService) Join(sessionID string, sink contract.EventSink) ([]domain.Message, error) {
	return nil, nil
}

func (s *stubService) Leave(sessionID string) {}

func newTestServer(t *testing.T, service *stubService, store *mocks.MockStore) *httptest.Server {
	t.Helper()
	health, err := observability.NewHealth(logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	api := NewServer(logs.GetLoggerFromLevel(slog.LevelDebug), service, store, observability.NewMetrics(), health, 1<<20)
	server := httptest.NewServer(api.Routes(http.NotFoundHandler()))
	t.Cleanup(server.Close)
	return server
}

func message(username, body string) domain.Message {
	return domain.Message{ID: uuid.New(), Username: username, Body: body, SentAt: time.Now().UTC()}
}

func TestListMessages_Ascending_Wire_Shape(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := &stubService{history: []domain.Message{
		message("alice", "first"),
		message("bob", "second"),
	}}
	server := newTestServer(t, service, mocks.NewMockStore(ctrl))

	resp, err := http.Get(server.URL + "/messages")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var payload []map[string]any
	req.NoError(json.NewDecoder(resp.Body).Decode(&payload))
	req.Len(payload, 2)
	req.Equal("first", payload[0]["message"])
	req.Equal("second", payload[1]["message"])
	// Wire layout carries every envelope field, attachment ones included.
	for _, field := range []string{"id", "username", "message", "fileUrl", "file", "timestamp"} {
		req.Contains(payload[0], field)
	}
}

func TestListMessages_Store_Failure_Is_503(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := &stubService{historyErr: context.DeadlineExceeded}
	server := newTestServer(t, service, mocks.NewMockStore(ctrl))

	resp, err := http.Get(server.URL + "/messages")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSearch_Requires_Query(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	server := newTestServer(t, &stubService{}, mocks.NewMockStore(ctrl))

	resp, err := http.Get(server.URL + "/messages/search")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestSearch_Returns_Hits(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := &stubService{searchHits: []domain.Message{message("alice", "deploy done")}}
	server := newTestServer(t, service, mocks.NewMockStore(ctrl))

	resp, err := http.Get(server.URL + "/messages/search?q=deploy")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var payload []map[string]any
	req.NoError(json.NewDecoder(resp.Body).Decode(&payload))
	req.Len(payload, 1)
	req.Equal("deploy done", payload[0]["message"])
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestUpload_Returns_Normalized_Locator(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().
		Save(gomock.Any(), "report.pdf", gomock.Any(), gomock.Any()).
		Return(domain.Attachment{
			URL:         "https://files.example.com/abc/report.pdf",
			DisplayName: "report.pdf",
		}, nil).
		Times(1)
	server := newTestServer(t, &stubService{}, store)

	body, contentType := multipartBody(t, "file", "report.pdf", "%PDF-1.4")
	resp, err := http.Post(server.URL+"/upload", contentType, body)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var payload map[string]string
	req.NoError(json.NewDecoder(resp.Body).Decode(&payload))
	req.Equal("https://files.example.com/abc/report.pdf", payload["fileUrl"])
	req.Equal("report.pdf", payload["fileName"])
}

func TestUpload_Oversized_Body_Is_413(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	// No Save expectation: the body limit trips before the store is reached.
	store := mocks.NewMockStore(ctrl)

	health, err := observability.NewHealth(logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)
	api := NewServer(logs.GetLoggerFromLevel(slog.LevelDebug), &stubService{}, store,
		observability.NewMetrics(), health, 64)
	server := httptest.NewServer(api.Routes(http.NotFoundHandler()))
	t.Cleanup(server.Close)

	body, contentType := multipartBody(t, "file", "huge.bin", strings.Repeat("x", 4096))
	resp, err := http.Post(server.URL+"/upload", contentType, body)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestUpload_Without_File_Is_400(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	server := newTestServer(t, &stubService{}, mocks.NewMockStore(ctrl))

	body, contentType := multipartBody(t, "not-a-file", "x.txt", "content")
	resp, err := http.Post(server.URL+"/upload", contentType, body)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz_Reports_Ok(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	server := newTestServer(t, &stubService{}, mocks.NewMockStore(ctrl))

	resp, err := http.Get(server.URL + "/healthz")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var status map[string]any
	req.NoError(json.NewDecoder(resp.Body).Decode(&status))
	req.Equal("ok", status["status"])
}
