package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon answers one request per connection with the reply built by
// respond, echoing the request id.
type fakeDaemon struct {
	mu       sync.Mutex
	requests []request
	respond  func(req request) map[string]any
}

func startFakeDaemon(t *testing.T, respond func(req request) map[string]any) (*fakeDaemon, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "vcc")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "d.sock")

	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	d := &fakeDaemon{respond: respond}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go d.serve(conn)
		}
	}()
	return d, path
}

func (d *fakeDaemon) serve(conn net.Conn) {
	defer conn.Close()
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return
	}
	var req request
	if json.Unmarshal(line, &req) != nil {
		return
	}
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()

	resp := d.respond(req)
	if _, ok := resp["id"]; !ok {
		resp["id"] = req.ID
	}
	_ = json.NewEncoder(conn).Encode(resp)
}

func (d *fakeDaemon) last() request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests[len(d.requests)-1]
}

func okReply(extra map[string]any) map[string]any {
	resp := map[string]any{"status": "ok"}
	for k, v := range extra {
		resp[k] = v
	}
	return resp
}

func TestClient_Status(t *testing.T) {
	_, path := startFakeDaemon(t, func(req request) map[string]any {
		return okReply(map[string]any{
			"mode": map[string]any{"mode": "menu", "title": "Main", "item": "Brightness"},
			"devices": []any{
				map[string]any{"address": "10.0.0.11", "name": "Left", "reachable": true, "volume": 60},
			},
		})
	})
	c := New(testLogger(), path)

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "menu", st.Mode.Mode)
	assert.Equal(t, "Brightness", st.Mode.Item)
	require.Len(t, st.Devices, 1)
	assert.True(t, st.Devices[0].Reachable)
	assert.Nil(t, st.Companion)
}

func TestClient_RequestShape(t *testing.T) {
	d, path := startFakeDaemon(t, func(req request) map[string]any {
		switch req.Action {
		case "encoder", "button":
			return okReply(map[string]any{"mode": map[string]any{"mode": "brightness", "brightness": 55}})
		case "companion":
			return okReply(map[string]any{"companion": map[string]any{"availability": "available", "input": "wifi"}})
		case "set_level", "get_level":
			return okReply(map[string]any{"level": "warn"})
		default:
			return okReply(nil)
		}
	})
	c := New(testLogger(), path)
	ctx := context.Background()

	require.NoError(t, c.SetVolume(ctx, "10.0.0.12", 70))
	req := d.last()
	assert.Equal(t, "set_volume", req.Action)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "10.0.0.12", req.Data["address"])
	assert.Equal(t, 70.0, req.Data["volume"])

	require.NoError(t, c.AdjustVolume(ctx, 3))
	assert.Equal(t, 3.0, d.last().Data["delta"])

	require.NoError(t, c.ToggleMute(ctx))
	assert.Equal(t, "toggle_mute", d.last().Action)

	mode, err := c.Encoder(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 55, mode.Brightness)

	_, err = c.Button(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, false, d.last().Data["pressed"])

	st, err := c.Companion(ctx, "input", "wifi")
	require.NoError(t, err)
	assert.Equal(t, "wifi", st.Input)
	assert.Equal(t, "wifi", d.last().Data["input"])

	_, err = c.Companion(ctx, "next", "")
	require.NoError(t, err)
	assert.NotContains(t, d.last().Data, "input")

	require.NoError(t, c.SetAutoStandby(ctx, "10.0.0.11", 0))
	assert.Equal(t, 0.0, d.last().Data["minutes"])

	level, err := c.SetLogLevel(ctx, "warn")
	require.NoError(t, err)
	assert.Equal(t, "warn", level)

	require.NoError(t, c.Ping(ctx))
}

func TestClient_Errors(t *testing.T) {
	_, path := startFakeDaemon(t, func(req request) map[string]any {
		switch req.Action {
		case "device":
			return map[string]any{"error": "not found: device 10.0.0.99", "code": 404}
		case "set_volume":
			return map[string]any{"error": "volume is locked while the menu is open", "code": 409}
		default:
			return map[string]any{"status": "ok", "id": "someone-else"}
		}
	})
	c := New(testLogger(), path)
	ctx := context.Background()

	_, err := c.Device(ctx, "10.0.0.99")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	err = c.SetVolume(ctx, "", 10)
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "409")

	err = c.ToggleMute(ctx)
	assert.ErrorContains(t, err, "does not match")
}

func TestClient_NoDaemon(t *testing.T) {
	c := New(testLogger(), filepath.Join(t.TempDir(), "missing.sock"))
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestNew_DefaultSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/4242")
	c := New(testLogger(), "")
	assert.Equal(t, "/run/user/4242/volctrld.sock", c.socket)
}
