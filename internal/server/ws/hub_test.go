package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

// chanBus is an in-process SignalBus keyed by the exact subscribe pattern.
type chanBus struct {
	mu   sync.Mutex
	subs map[string]chan []byte
}

func newChanBus() *chanBus {
	return &chanBus{subs: make(map[string]chan []byte)}
}

func (b *chanBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for pattern, ch := range b.subs {
		if pattern == channel || (strings.HasSuffix(pattern, "*") && strings.HasPrefix(channel, strings.TrimSuffix(pattern, "*"))) {
			ch <- payload
		}
	}
	return nil
}

func (b *chanBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 16)
	b.subs[channel] = ch
	return ch, nil
}

func startHub(t *testing.T) (*Hub, *chanBus, *httptest.Server) {
	t.Helper()
	bus := newChanBus()
	hub := NewHub(bus, func() any { return map[string]string{"state": "ready"} }, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Run(ctx) }()

	srv := httptest.NewServer(httpHandler(hub))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		assert.NoError(t, <-errCh)
	})

	require.Eventually(t, func() bool {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		return len(bus.subs) == len(busChannels)
	}, time.Second, 5*time.Millisecond)
	return hub, bus, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m map[string]any
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func publishEvent(t *testing.T, bus *chanBus, ev domain.FeedEvent) {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	channel := domain.PatchChannel(ev.Sport)
	if ev.Type == domain.FeedEventStatus {
		channel = domain.ChannelStatus
	}
	require.NoError(t, bus.Publish(context.Background(), channel, data))
}

func TestHubHelloAndForward(t *testing.T) {
	hub, bus, srv := startHub(t)
	conn := dial(t, srv)

	hello := readJSON(t, conn)
	assert.Equal(t, "hello", hello["type"])
	assert.Equal(t, map[string]any{"state": "ready"}, hello["status"])

	require.Eventually(t, func() bool { return hub.clientCount() == 1 }, time.Second, 5*time.Millisecond)

	publishEvent(t, bus, domain.FeedEvent{Type: domain.FeedEventPatch, Sport: "S", Seq: 3})
	got := readJSON(t, conn)
	assert.Equal(t, "patch", got["type"])
	assert.Equal(t, float64(3), got["seq"])
}

func TestHubUnsubscribe(t *testing.T) {
	hub, bus, srv := startHub(t)
	conn := dial(t, srv)
	readJSON(t, conn)
	require.Eventually(t, func() bool { return hub.clientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(subscribeMsg{Action: "unsubscribe", Channels: []string{"ch:patch:*"}}))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for c := range hub.clients {
			return !c.subscribed("ch:patch:S")
		}
		return false
	}, time.Second, 5*time.Millisecond)

	publishEvent(t, bus, domain.FeedEvent{Type: domain.FeedEventPatch, Sport: "S", Seq: 1})
	publishEvent(t, bus, domain.FeedEvent{Type: domain.FeedEventStatus, Sport: "S", State: "streaming"})

	got := readJSON(t, conn)
	assert.Equal(t, "status", got["type"], "patch was filtered out")
}

func TestChannelOf(t *testing.T) {
	assert.Equal(t, "ch:patch:B", channelOf([]byte(`{"type":"patch","sport":"B"}`)))
	assert.Equal(t, domain.ChannelStatus, channelOf([]byte(`{"type":"status","sport":"B"}`)))
	assert.Equal(t, domain.ChannelStatus, channelOf([]byte(`not json`)))
}

func TestClientSubscribedWildcard(t *testing.T) {
	c := &client{subs: map[string]bool{"ch:patch:*": true}}
	assert.True(t, c.subscribed("ch:patch:S"))
	assert.False(t, c.subscribed("ch:status"))

	c.apply(subscribeMsg{Action: "subscribe", Channels: []string{"ch:status"}})
	assert.True(t, c.subscribed("ch:status"))
}

func httpHandler(h *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.HandleWS)
	return mux
}
