package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

var dial = func(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

// ClientInterface is what the CLI needs from the daemon. Both the socket
// client and the HTTP client implement it.
type ClientInterface interface {
	Status(ctx context.Context) (Status, error)
	Devices(ctx context.Context) ([]Device, error)
	Device(ctx context.Context, address string) (Device, error)
	SetVolume(ctx context.Context, address string, volume float64) error
	AdjustVolume(ctx context.Context, delta int) error
	ToggleMute(ctx context.Context) error
	Encoder(ctx context.Context, delta int) (Mode, error)
	Button(ctx context.Context, pressed bool) (Mode, error)
	Companion(ctx context.Context, command, input string) (Companion, error)
	SetAutoStandby(ctx context.Context, address string, minutes int) error
	GetLogLevel(ctx context.Context) (string, error)
	SetLogLevel(ctx context.Context, level string) (string, error)
}

var (
	_ ClientInterface = (*Client)(nil)
	_ ClientInterface = (*HTTPClient)(nil)
)

// Client talks to volctrld over its Unix socket.
type Client struct {
	logger *slog.Logger
	socket string
}

// New creates a socket client. An empty socket path resolves to the
// runtime directory.
func New(logger *slog.Logger, socket string) *Client {
	if socket == "" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			socket = filepath.Join(dir, "volctrld.sock")
			logger.Debug("Using XDG runtime directory for socket", "dir", dir, "socket", socket)
		} else {
			uid := os.Getuid()
			socket = filepath.Join("/run/user", strconv.Itoa(uid), "volctrld.sock")
			logger.Debug("Using /run/user for socket", "uid", uid, "socket", socket)
		}
	} else {
		logger.Debug("Using provided socket path", "socket", socket)
	}
	return &Client{logger: logger, socket: socket}
}

type request struct {
	Action string         `json:"action"`
	ID     string         `json:"id"`
	Data   map[string]any `json:"data,omitempty"`
}

// call sends one action on a fresh connection and decodes the reply into
// resp when it is non-nil.
func (c *Client) call(ctx context.Context, action string, data map[string]any, resp any) error {
	conn, err := dial(ctx, "unix", c.socket)
	if err != nil {
		return fmt.Errorf("failed to connect to socket %s: %w", c.socket, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req := request{Action: action, ID: uuid.NewString(), Data: data}
	c.logger.Debug("Sending request", "action", action, "id", req.ID)
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
		ID    string `json:"id"`
	}
	if err := json.Unmarshal(line, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Error != "" {
		return &Error{Code: envelope.Code, Message: envelope.Error}
	}
	if envelope.ID != "" && envelope.ID != req.ID {
		return fmt.Errorf("response id %s does not match request %s", envelope.ID, req.ID)
	}
	if resp != nil {
		if err := json.Unmarshal(line, resp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Ping checks that the daemon answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, "ping", nil, nil)
}

// Status returns mode, monitors and companion in one call.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var resp Status
	err := c.call(ctx, "status", nil, &resp)
	return resp, err
}

// Devices returns every monitor in configuration order.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var resp struct {
		Devices []Device `json:"devices"`
	}
	if err := c.call(ctx, "devices", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// Device returns one monitor.
func (c *Client) Device(ctx context.Context, address string) (Device, error) {
	var resp struct {
		Device Device `json:"device"`
	}
	err := c.call(ctx, "device", map[string]any{"address": address}, &resp)
	return resp.Device, err
}

// SetVolume queues an absolute level. An empty address targets every monitor.
func (c *Client) SetVolume(ctx context.Context, address string, volume float64) error {
	return c.call(ctx, "set_volume", map[string]any{"address": address, "volume": volume}, nil)
}

// AdjustVolume moves every monitor by delta steps.
func (c *Client) AdjustVolume(ctx context.Context, delta int) error {
	return c.call(ctx, "adjust_volume", map[string]any{"delta": delta}, nil)
}

// ToggleMute flips the mute state of the monitor set.
func (c *Client) ToggleMute(ctx context.Context) error {
	return c.call(ctx, "toggle_mute", nil, nil)
}

// Encoder injects an encoder turn and returns the resulting mode.
func (c *Client) Encoder(ctx context.Context, delta int) (Mode, error) {
	return c.modeCall(ctx, "encoder", map[string]any{"delta": delta})
}

// Button injects a button edge and returns the resulting mode.
func (c *Client) Button(ctx context.Context, pressed bool) (Mode, error) {
	return c.modeCall(ctx, "button", map[string]any{"pressed": pressed})
}

func (c *Client) modeCall(ctx context.Context, action string, data map[string]any) (Mode, error) {
	var resp struct {
		Mode Mode `json:"mode"`
	}
	err := c.call(ctx, action, data, &resp)
	return resp.Mode, err
}

// Companion runs a companion command. input is only used by "input".
func (c *Client) Companion(ctx context.Context, command, input string) (Companion, error) {
	data := map[string]any{"command": command}
	if input != "" {
		data["input"] = input
	}
	var resp struct {
		Companion Companion `json:"companion"`
	}
	err := c.call(ctx, "companion", data, &resp)
	return resp.Companion, err
}

// SetAutoStandby sets a monitor's auto-standby timer in minutes.
func (c *Client) SetAutoStandby(ctx context.Context, address string, minutes int) error {
	return c.call(ctx, "set_auto_standby", map[string]any{"address": address, "minutes": minutes}, nil)
}

// GetLogLevel returns the daemon's log level.
func (c *Client) GetLogLevel(ctx context.Context) (string, error) {
	return c.levelCall(ctx, "get_level", nil)
}

// SetLogLevel changes the daemon's log level.
func (c *Client) SetLogLevel(ctx context.Context, level string) (string, error) {
	return c.levelCall(ctx, "set_level", map[string]any{"level": level})
}

func (c *Client) levelCall(ctx context.Context, action string, data map[string]any) (string, error) {
	var resp struct {
		Level string `json:"level"`
	}
	err := c.call(ctx, action, data, &resp)
	return resp.Level, err
}
