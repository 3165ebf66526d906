package ws

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/wire"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// fakeService records lifecycle calls and lets tests push live messages
// through the sink a session registered.
type fakeService struct {
	mu         sync.Mutex
	history    []domain.Message
	posted     []domain.Submission
	leaveCalls map[string]int
	sinks      map[string]contract.EventSink
}

func newFakeService(history ...domain.Message) *fakeService {
	return &fakeService{
		history:    history,
		leaveCalls: make(map[string]int),
		sinks:      make(map[string]contract.EventSink),
	}
}

func (f *fakeService) PostMessage(ctx context.Context, sub domain.Submission) (domain.Message, error) {
	if err := sub.Validate(); err != nil {
		return domain.Message{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, sub)
	return domain.Message{ID: uuid.New(), Username: sub.Username, Body: sub.Body, SentAt: time.Now().UTC()}, nil
}

func (f *fakeService) History() ([]domain.Message, error) { return f.history, nil }

func (f *fakeService) Search(ctx context.Context, terms string, limit int) ([]domain.Message, error) {
	return nil, nil
}

func (f *fakeService) Join(sessionID string, sink contract.EventSink) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks[sessionID] = sink
	return f.history, nil
}

func (f *fakeService) Leave(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaveCalls[sessionID]++
}

func (f *fakeService) pushLive(t *testing.T, m domain.Message) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.sinks, 1)
	for _, sink := range f.sinks {
		require.NoError(t, sink.Consume(context.Background(), m))
	}
}

func (f *fakeService) leaveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.leaveCalls {
		total += n
	}
	return total
}

func (f *fakeService) postedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posted)
}

func (f *fakeService) lastPosted() domain.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posted[len(f.posted)-1]
}

func dialTestServer(t *testing.T, service *fakeService) *websocket.Conn {
	t.Helper()
	handler := NewHandler(context.Background(), service, nil, 8, logs.GetLoggerFromLevel(slog.LevelDebug))
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func eventually(t *testing.T, condition func() bool, msg string) {
	t.Helper()
	require.Eventually(t, condition, 2*time.Second, 10*time.Millisecond, msg)
}

func TestSession_History_Snapshot_Arrives_First(t *testing.T) {
	req := require.New(t)
	past := []domain.Message{
		{ID: uuid.New(), Username: "alice", Body: "m1", SentAt: time.Now().UTC()},
		{ID: uuid.New(), Username: "bob", Body: "m2", SentAt: time.Now().UTC().Add(time.Second)},
	}
	service := newFakeService(past...)
	conn := dialTestServer(t, service)

	// The first frame is always the backfill envelope.
	var history wire.History
	req.NoError(conn.ReadJSON(&history))
	req.Equal(wire.HistoryType, history.Type)
	req.Len(history.Data, 2)
	req.Equal("m1", history.Data[0].Body)
	req.Equal("m2", history.Data[1].Body)

	// Live frames follow as single messages.
	live := domain.Message{ID: uuid.New(), Username: "carol", Body: "fresh", SentAt: time.Now().UTC()}
	service.pushLive(t, live)

	var single wire.Message
	req.NoError(conn.ReadJSON(&single))
	req.Equal("fresh", single.Body)
	req.Equal(live.ID.String(), single.ID)
}

func TestSession_Empty_History_Still_Sends_Envelope(t *testing.T) {
	req := require.New(t)
	conn := dialTestServer(t, newFakeService())

	var history wire.History
	req.NoError(conn.ReadJSON(&history))
	req.Equal(wire.HistoryType, history.Type)
	req.Empty(history.Data)
}

func TestSession_Forwards_Inbound_Frames(t *testing.T) {
	req := require.New(t)
	service := newFakeService()
	conn := dialTestServer(t, service)

	var history wire.History
	req.NoError(conn.ReadJSON(&history))

	req.NoError(conn.WriteJSON(map[string]string{"username": "alice", "message": "hello"}))

	eventually(t, func() bool { return service.postedCount() == 1 }, "submission not forwarded")
}

func TestSession_Attachment_Frame_Decodes_From_Wire_Keys(t *testing.T) {
	req := require.New(t)
	service := newFakeService()
	conn := dialTestServer(t, service)

	var history wire.History
	req.NoError(conn.ReadJSON(&history))

	// The raw frame a client sends after uploading: fileUrl and fileName
	// echoed from the upload response, no message text.
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(
		`{"username":"alice","message":"","fileUrl":"https://files.example.com/a/pic.png","fileName":"pic.png"}`)))

	eventually(t, func() bool { return service.postedCount() == 1 }, "attachment frame not forwarded")
	sub := service.lastPosted()
	req.Equal("https://files.example.com/a/pic.png", sub.FileURL)
	req.Equal("pic.png", sub.FileName)
	req.NoError(sub.Validate())
}

func TestSession_Invalid_Frame_Is_Dropped_Not_Fatal(t *testing.T) {
	req := require.New(t)
	service := newFakeService()
	conn := dialTestServer(t, service)

	var history wire.History
	req.NoError(conn.ReadJSON(&history))

	// Neither text nor attachment: dropped server-side, connection lives on.
	req.NoError(conn.WriteJSON(map[string]string{"username": "alice"}))
	req.NoError(conn.WriteJSON(map[string]string{"username": "alice", "message": "valid"}))

	eventually(t, func() bool { return service.postedCount() == 1 }, "valid submission lost")
	req.Equal(0, service.leaveCount())
}

func TestSession_Disconnect_Leaves_Exactly_Once(t *testing.T) {
	req := require.New(t)
	service := newFakeService()
	conn := dialTestServer(t, service)

	var history wire.History
	req.NoError(conn.ReadJSON(&history))

	req.NoError(conn.Close())

	eventually(t, func() bool { return service.leaveCount() == 1 }, "session not deregistered")
	// Grace period: concurrent teardown paths must not deregister twice.
	time.Sleep(50 * time.Millisecond)
	req.Equal(1, service.leaveCount())
}

func TestSession_Close_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	service := newFakeService()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		conns <- conn
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	req.NoError(err)
	t.Cleanup(func() { _ = client.Close() })

	session := NewSession(<-conns, service, 8, logs.GetLoggerFromLevel(slog.LevelDebug))
	_, err = service.Join(session.ID(), nil)
	req.NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.Close()
		}()
	}
	wg.Wait()

	req.Equal(1, service.leaveCount())
	req.Equal(Closed, session.State())
}
