package server

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/volctrld/internal/config"
)

func startServer(t *testing.T, cfg *config.Config, spk *fakeSpeaker) (*Server, *slog.LevelVar) {
	t.Helper()
	level := new(slog.LevelVar)
	srv, err := New(testLogger(), level, cfg, spk, BuildInfo{Version: "test"})
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	require.Eventually(t, func() bool {
		devs := srv.Loop().Snapshot().Devices
		return len(devs) == 2 && devs[0].Reachable
	}, time.Second, 5*time.Millisecond)
	return srv, level
}

type socketClient struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dialSocket(t *testing.T, path string) *socketClient {
	t.Helper()
	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &socketClient{conn: conn, reader: bufio.NewReader(conn)}
}

func (c *socketClient) call(t *testing.T, action string, data map[string]any) map[string]any {
	t.Helper()
	req := map[string]any{"action": action, "id": "req-" + action}
	if data != nil {
		req["data"] = data
	}
	require.NoError(t, json.NewEncoder(c.conn).Encode(req))
	return c.read(t)
}

func (c *socketClient) read(t *testing.T) map[string]any {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := c.reader.ReadBytes('\n')
	require.NoError(t, err)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(line, &resp))
	return resp
}

func TestSocketActions(t *testing.T) {
	cfg := testConfig(t)
	_, level := startServer(t, cfg, newFakeSpeaker("10.0.0.11", "10.0.0.12"))
	c := dialSocket(t, cfg.Server.SocketPath)

	resp := c.call(t, "ping", nil)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "pong", resp["message"])
	assert.Equal(t, "req-ping", resp["id"])

	resp = c.call(t, "health", nil)
	assert.Equal(t, "ok", resp["health"])

	resp = c.call(t, "status", nil)
	devices, ok := resp["devices"].([]any)
	require.True(t, ok)
	assert.Len(t, devices, 2)
	mode, ok := resp["mode"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "normal", mode["mode"])
	assert.NotContains(t, resp, "companion")

	resp = c.call(t, "device", map[string]any{"address": "10.0.0.12"})
	device, ok := resp["device"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Right", device["name"])

	resp = c.call(t, "mode", nil)
	assert.Contains(t, resp, "mode")

	resp = c.call(t, "get_level", nil)
	assert.Equal(t, "info", resp["level"])

	resp = c.call(t, "set_level", map[string]any{"level": "debug"})
	assert.Equal(t, "debug", resp["level"])
	assert.Equal(t, slog.LevelDebug, level.Level())
}

func TestSocketVolumeActions(t *testing.T) {
	cfg := testConfig(t)
	spk := newFakeSpeaker("10.0.0.11", "10.0.0.12")
	startServer(t, cfg, spk)
	c := dialSocket(t, cfg.Server.SocketPath)

	resp := c.call(t, "set_volume", map[string]any{"address": "10.0.0.11", "volume": 75})
	assert.Equal(t, "ok", resp["status"])
	assert.Eventually(t, func() bool {
		v, ok := spk.level("10.0.0.11")
		return ok && v == 75
	}, time.Second, 5*time.Millisecond)

	resp = c.call(t, "toggle_mute", nil)
	assert.Equal(t, "ok", resp["status"])
	muted, _ := spk.muted("10.0.0.12")
	assert.True(t, muted)

	resp = c.call(t, "encoder", map[string]any{"delta": 1})
	assert.Contains(t, resp, "mode")

	resp = c.call(t, "set_auto_standby", map[string]any{"address": "10.0.0.12", "minutes": 30})
	assert.Equal(t, "ok", resp["status"])
	minutes, _ := spk.standbyMinutes("10.0.0.12")
	assert.Equal(t, 30, minutes)
}

func TestSocketErrors(t *testing.T) {
	cfg := testConfig(t)
	startServer(t, cfg, newFakeSpeaker("10.0.0.11", "10.0.0.12"))
	c := dialSocket(t, cfg.Server.SocketPath)

	tests := []struct {
		action string
		data   map[string]any
		code   float64
	}{
		{"teleport", nil, http.StatusBadRequest},
		{"device", map[string]any{"address": "10.0.0.99"}, http.StatusNotFound},
		{"device", nil, http.StatusBadRequest},
		{"set_volume", map[string]any{"volume": "loud"}, http.StatusBadRequest},
		{"set_volume", map[string]any{"address": "10.0.0.99", "volume": 50}, http.StatusNotFound},
		{"button", map[string]any{"pressed": "yes"}, http.StatusBadRequest},
		{"companion", map[string]any{"command": "next"}, http.StatusNotFound},
		{"companion", nil, http.StatusBadRequest},
		{"set_level", map[string]any{"level": "chatty"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			resp := c.call(t, tt.action, tt.data)
			assert.NotEmpty(t, resp["error"])
			assert.Equal(t, tt.code, resp["code"])
			assert.Equal(t, "req-"+tt.action, resp["id"])
		})
	}
}

func TestSocketInvalidJSON(t *testing.T) {
	cfg := testConfig(t)
	startServer(t, cfg, newFakeSpeaker("10.0.0.11", "10.0.0.12"))
	c := dialSocket(t, cfg.Server.SocketPath)

	_, err := c.conn.Write([]byte("{not json\n"))
	require.NoError(t, err)
	resp := c.read(t)
	assert.Contains(t, resp["error"], "invalid JSON")

	// the connection stays usable
	resp = c.call(t, "ping", nil)
	assert.Equal(t, "pong", resp["message"])
}

func httpConfig(t *testing.T, key string) *config.Config {
	cfg := testConfig(t)
	cfg.API = config.APIConfig{Enabled: true, ListenAddress: "127.0.0.1:0", Key: key}
	return cfg
}

func TestHTTPAPI(t *testing.T) {
	cfg := httpConfig(t, "s3cret")
	spk := newFakeSpeaker("10.0.0.11", "10.0.0.12")
	srv, _ := startServer(t, cfg, spk)
	base := "http://" + srv.HTTPAddr().String()

	resp, err := http.Get(base + "/api/v1/status")
	require.NoError(t, err)
	var status struct {
		Devices []struct {
			Address   string `json:"address"`
			Reachable bool   `json:"reachable"`
		} `json:"devices"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, status.Devices, 2)
	assert.True(t, status.Devices[0].Reachable)

	resp, err = http.Get(base + "/api/v1/devices/10.0.0.99")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	put := func(key string) *http.Response {
		req, err := http.NewRequest(http.MethodPut, base+"/api/v1/volume", strings.NewReader(`{"volume":64}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusUnauthorized, put("").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, put("wrong").StatusCode)
	assert.Equal(t, http.StatusOK, put("s3cret").StatusCode)

	assert.Eventually(t, func() bool {
		l, okL := spk.level("10.0.0.11")
		r, okR := spk.level("10.0.0.12")
		return okL && okR && l == 64 && r == 64
	}, time.Second, 5*time.Millisecond)
}

func TestHTTPHealthIsPublic(t *testing.T) {
	srv, _ := startServer(t, httpConfig(t, "s3cret"), newFakeSpeaker("10.0.0.11", "10.0.0.12"))

	resp, err := http.Get("http://" + srv.HTTPAddr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApplyConfig(t *testing.T) {
	cfg := testConfig(t)
	srv, level := startServer(t, cfg, newFakeSpeaker("10.0.0.11", "10.0.0.12"))

	next := *cfg
	next.Logging.Level = "error"
	next.Control.QuietPeriod = 50 * time.Millisecond
	require.NoError(t, srv.ApplyConfig(t.Context(), &next))
	assert.Equal(t, slog.LevelError, level.Level())
}

func TestNewRejectsDuplicateDevices(t *testing.T) {
	cfg := testConfig(t)
	cfg.Devices = append(cfg.Devices, config.DeviceConfig{Name: "Again", Address: "10.0.0.11"})

	_, err := New(testLogger(), new(slog.LevelVar), cfg, newFakeSpeaker(), BuildInfo{})
	assert.Error(t, err)
}
