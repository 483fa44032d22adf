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

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/adaptivelabs/quizhub/internal/config"
	"github.com/adaptivelabs/quizhub/internal/hub"
	"github.com/adaptivelabs/quizhub/internal/port/backplane"
	"github.com/adaptivelabs/quizhub/internal/resilience"
	"github.com/adaptivelabs/quizhub/internal/service"
)

// loopBackplane loops publishes straight back to the room's subscriber,
// standing in for NATS in a single process.
type loopBackplane struct {
	mu       sync.Mutex
	handlers map[string]backplane.Handler
}

func newLoopBackplane() *loopBackplane {
	return &loopBackplane{handlers: make(map[string]backplane.Handler)}
}

func (b *loopBackplane) Publish(ctx context.Context, roomID string, data []byte) error {
	b.mu.Lock()
	h := b.handlers[roomID]
	b.mu.Unlock()
	if h != nil {
		h(ctx, roomID, data)
	}
	return nil
}

func (b *loopBackplane) Subscribe(roomID string, handler backplane.Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[roomID] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, roomID)
	}, nil
}

func (b *loopBackplane) IsConnected() bool { return true }
func (b *loopBackplane) Drain() error      { return nil }
func (b *loopBackplane) Close() error      { return nil }

// memCache is an in-memory cache.Cache for snapshot tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type wsFixture struct {
	hub    *hub.Hub
	server *httptest.Server
}

func newFixture(t *testing.T, snapshots *service.Snapshot, hubCfg config.Hub) *wsFixture {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	h := hub.New(log, newLoopBackplane(), resilience.NewBreaker(3, time.Second), hub.NewRegistry())

	handler := NewHandler(log, h, snapshots, nil, hubCfg)
	r := chi.NewRouter()
	r.Get("/ws/{quizID}", handler.ServeWS)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &wsFixture{hub: h, server: srv}
}

func (f *wsFixture) dial(t *testing.T, roomID string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/" + roomID
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal(msg)
		default:
			time.Sleep(2 * time.Millisecond)
		}
	}
}

func defaultHubCfg() config.Hub {
	return config.Defaults().Hub
}

func TestPublishReachesClient(t *testing.T) {
	f := newFixture(t, nil, defaultHubCfg())
	c := f.dial(t, "quiz42")

	eventually(t, func() bool { return f.hub.ConnectionCount() == 1 }, "connection never registered")

	payload := []byte(`{"type":"SCORE_UPDATE","player":"alice","new_score":10}`)
	f.hub.Publish(context.Background(), "quiz42", payload)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	typ, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("message type = %v, want text", typ)
	}
	if string(data) != string(payload) {
		t.Fatalf("payload = %s, want %s", data, payload)
	}
}

func TestEchoTextFrames(t *testing.T) {
	f := newFixture(t, nil, defaultHubCfg())
	c := f.dial(t, "quiz1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Write(ctx, websocket.MessageText, []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got, want := string(data), "server echo: hello"; got != want {
		t.Fatalf("echo = %q, want %q", got, want)
	}
}

func TestRejectsMissingQuizID(t *testing.T) {
	f := newFixture(t, nil, defaultHubCfg())

	log := slog.New(slog.DiscardHandler)
	handler := NewHandler(log, f.hub, nil, nil, defaultHubCfg())

	// Outside a chi route there is no quizID URL parameter.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws/", nil)
	handler.ServeWS(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDisconnectCleansUp(t *testing.T) {
	f := newFixture(t, nil, defaultHubCfg())
	c := f.dial(t, "quiz7")

	eventually(t, func() bool { return f.hub.ConnectionCount() == 1 }, "connection never registered")

	if err := c.Close(websocket.StatusNormalClosure, "done"); err != nil {
		t.Fatalf("Close: %v", err)
	}

	eventually(t, func() bool { return f.hub.ConnectionCount() == 0 }, "connection not unregistered after close")
	eventually(t, func() bool { return len(f.hub.Rooms()) == 0 }, "room not removed after last member left")
}

func TestSlowConsumerIsDisconnected(t *testing.T) {
	cfg := defaultHubCfg()
	cfg.SendBuffer = 1
	f := newFixture(t, nil, cfg)

	// Never read from the client side, so the outbound queue fills.
	f.dial(t, "quiz9")
	eventually(t, func() bool { return f.hub.ConnectionCount() == 1 }, "connection never registered")

	// Payloads large enough to fill the socket buffers, so the write pump
	// stalls and the one-slot queue overflows.
	payload := []byte(`{"type":"SCORE_UPDATE","player":"` + strings.Repeat("x", 64<<10) + `","new_score":1}`)
	for i := 0; i < 256 && f.hub.ConnectionCount() > 0; i++ {
		f.hub.Publish(context.Background(), "quiz9", payload)
	}

	eventually(t, func() bool { return f.hub.ConnectionCount() == 0 }, "slow consumer was not disconnected")
}

func TestSnapshotDeliveredOnJoin(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	snapshots := service.NewSnapshot(log, newMemCache(), time.Hour)

	quizData := []byte(`{"type":"QUIZ_DATA","quiz_id":"quiz5","title":"Capitals"}`)
	snapshots.Store(context.Background(), "quiz5", quizData)

	f := newFixture(t, snapshots, defaultHubCfg())
	c := f.dial(t, "quiz5")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != string(quizData) {
		t.Fatalf("first frame = %s, want stored snapshot", data)
	}
}

// The stored snapshot is queued before the connection joins its room, so
// a broadcast racing the join can never reach the client ahead of it.
func TestSnapshotOrderedBeforeRacingBroadcast(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	snapshots := service.NewSnapshot(log, newMemCache(), time.Hour)

	stored := []byte(`{"type":"QUIZ_DATA","quiz_id":"quiz8","topic":"capitals"}`)
	snapshots.Store(context.Background(), "quiz8", stored)

	f := newFixture(t, snapshots, defaultHubCfg())
	c := f.dial(t, "quiz8")

	fresh := []byte(`{"type":"QUIZ_DATA","quiz_id":"quiz8","topic":"rivers"}`)
	for range 20 {
		f.hub.Publish(context.Background(), "quiz8", fresh)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != string(stored) {
		t.Fatalf("first frame = %s, want the stored snapshot", data)
	}
}
