package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/volctrld/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func startTestHub(t *testing.T, snapshot SnapshotFunc) (*Hub, *events.Bus, context.CancelFunc) {
	t.Helper()
	bus := events.NewBus()
	hub := NewHub(testLogger(), bus, snapshot)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	return hub, bus, cancel
}

func startTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(Handler(hub, testLogger()))
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt events.Event
	require.NoError(t, json.Unmarshal(msg, &evt))
	return evt
}

func TestHubSendsSnapshotOnConnect(t *testing.T) {
	hub, _, _ := startTestHub(t, func() any { return map[string]string{"mode": "normal"} })
	conn := dialWS(t, startTestServer(t, hub), "")

	evt := readEvent(t, conn)
	assert.Equal(t, SnapshotEvent, evt.Type)

	var data map[string]string
	require.NoError(t, evt.Decode(&data))
	assert.Equal(t, "normal", data["mode"])
}

func TestHubBroadcastsInOrder(t *testing.T) {
	hub, bus, _ := startTestHub(t, nil)
	server := startTestServer(t, hub)
	conn1 := dialWS(t, server, "")
	conn2 := dialWS(t, server, "")
	waitForClients(t, hub, 2)

	sent := []events.EventType{events.DevicePendingVolume, events.DeviceVolumeChanged, events.ModeChanged}
	for _, et := range sent {
		bus.Publish(events.NewEvent(et, events.DeviceField{Address: "fe80::1"}))
	}

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		var got []events.EventType
		for range sent {
			got = append(got, readEvent(t, conn).Type)
		}
		assert.Equal(t, sent, got)
	}
}

func TestHubFiltersByType(t *testing.T) {
	hub, bus, _ := startTestHub(t, func() any { return nil })
	conn := dialWS(t, startTestServer(t, hub), "?types=device.mute_changed,%20companion.availability_changed")
	waitForClients(t, hub, 1)

	bus.Publish(events.NewEvent(events.DeviceVolumeChanged, nil))
	bus.Publish(events.NewEvent(events.DeviceMuteChanged, nil))
	bus.Publish(events.NewEvent(events.CompanionStatus, nil))

	assert.Equal(t, events.DeviceMuteChanged, readEvent(t, conn).Type, "snapshot and unlisted types are skipped")
	assert.Equal(t, events.CompanionStatus, readEvent(t, conn).Type)
}

func TestHubClientCountTracksDisconnects(t *testing.T) {
	hub, _, _ := startTestHub(t, nil)
	server := startTestServer(t, hub)

	conn := dialWS(t, server, "")
	waitForClients(t, hub, 1)

	_ = conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, _, cancel := startTestHub(t, nil)
	conn := dialWS(t, startTestServer(t, hub), "")
	waitForClients(t, hub, 1)

	cancel()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHandlerRejectsPlainHTTP(t *testing.T) {
	hub, _, _ := startTestHub(t, nil)
	server := startTestServer(t, hub)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParseTypes(t *testing.T) {
	assert.Nil(t, parseTypes(""))
	assert.Equal(t, []events.EventType{"a", "b"}, parseTypes(" a, ,b "))
}

func TestNewClient(t *testing.T) {
	hub := NewHub(testLogger(), events.NewBus(), nil)

	c := hub.NewClient(nil)
	assert.Equal(t, sendBufferSize, cap(c.send))
	assert.True(t, c.wants(events.ModeChanged))

	c = hub.NewClient(nil, events.DeviceMuteChanged)
	assert.True(t, c.wants(events.DeviceMuteChanged))
	assert.False(t, c.wants(events.ModeChanged))
}
