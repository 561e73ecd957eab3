package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient talks to volctrld's HTTP API.
type HTTPClient struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTP creates a new HTTP client
func NewHTTP(logger *slog.Logger, baseURL string, apiKey string) *HTTPClient {
	return &HTTPClient{
		logger:  logger,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// request performs an HTTP request and decodes the JSON response
func (c *HTTPClient) request(ctx context.Context, method, path string, body any, resp any) error {
	url := c.baseURL + path
	c.logger.Debug("HTTP request", "method", method, "url", url)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		c.logger.Debug("HTTP error response", "status", httpResp.StatusCode, "body", string(respBody))
		return problem(httpResp.StatusCode, respBody)
	}

	if resp != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, resp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// problem turns an error response into an *Error, preferring the detail of
// an RFC 9457 problem body.
func problem(status int, body []byte) error {
	var p struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &p) == nil {
		switch {
		case p.Detail != "":
			msg = p.Detail
		case p.Title != "":
			msg = p.Title
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{Code: status, Message: msg}
}

// GetVersion returns the running daemon's version information.
func (c *HTTPClient) GetVersion(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	if err := c.request(ctx, http.MethodGet, "/api/v1/version", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Status returns mode, monitors and companion in one call.
func (c *HTTPClient) Status(ctx context.Context) (Status, error) {
	var resp Status
	err := c.request(ctx, http.MethodGet, "/api/v1/status", nil, &resp)
	return resp, err
}

// Devices returns every monitor in configuration order.
func (c *HTTPClient) Devices(ctx context.Context) ([]Device, error) {
	var resp []Device
	if err := c.request(ctx, http.MethodGet, "/api/v1/devices", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Device returns one monitor.
func (c *HTTPClient) Device(ctx context.Context, address string) (Device, error) {
	var resp Device
	err := c.request(ctx, http.MethodGet, "/api/v1/devices/"+url.PathEscape(address), nil, &resp)
	return resp, err
}

// SetVolume queues an absolute level. An empty address targets every monitor.
func (c *HTTPClient) SetVolume(ctx context.Context, address string, volume float64) error {
	body := map[string]any{"volume": volume}
	if address != "" {
		body["address"] = address
	}
	return c.request(ctx, http.MethodPut, "/api/v1/volume", body, nil)
}

// AdjustVolume moves every monitor by delta steps.
func (c *HTTPClient) AdjustVolume(ctx context.Context, delta int) error {
	return c.request(ctx, http.MethodPost, "/api/v1/volume/adjust", map[string]any{"delta": delta}, nil)
}

// ToggleMute flips the mute state of the monitor set.
func (c *HTTPClient) ToggleMute(ctx context.Context) error {
	return c.request(ctx, http.MethodPost, "/api/v1/mute/toggle", nil, nil)
}

// Encoder injects an encoder turn and returns the resulting mode.
func (c *HTTPClient) Encoder(ctx context.Context, delta int) (Mode, error) {
	var resp Mode
	err := c.request(ctx, http.MethodPost, "/api/v1/input/encoder", map[string]any{"delta": delta}, &resp)
	return resp, err
}

// Button injects a button edge and returns the resulting mode.
func (c *HTTPClient) Button(ctx context.Context, pressed bool) (Mode, error) {
	var resp Mode
	err := c.request(ctx, http.MethodPost, "/api/v1/input/button", map[string]any{"pressed": pressed}, &resp)
	return resp, err
}

// Companion runs a companion command. input is only used by "input".
func (c *HTTPClient) Companion(ctx context.Context, command, input string) (Companion, error) {
	var body any
	if input != "" {
		body = map[string]any{"input": input}
	}
	var resp Companion
	err := c.request(ctx, http.MethodPost, "/api/v1/companion/"+url.PathEscape(command), body, &resp)
	return resp, err
}

// SetAutoStandby sets a monitor's auto-standby timer in minutes.
func (c *HTTPClient) SetAutoStandby(ctx context.Context, address string, minutes int) error {
	path := "/api/v1/devices/" + url.PathEscape(address) + "/standby"
	return c.request(ctx, http.MethodPut, path, map[string]any{"minutes": minutes}, nil)
}

// GetLogLevel returns the daemon's log level.
func (c *HTTPClient) GetLogLevel(ctx context.Context) (string, error) {
	var resp struct {
		Level string `json:"level"`
	}
	err := c.request(ctx, http.MethodGet, "/api/v1/logging/level", nil, &resp)
	return resp.Level, err
}

// SetLogLevel changes the daemon's log level.
func (c *HTTPClient) SetLogLevel(ctx context.Context, level string) (string, error) {
	var resp struct {
		Level string `json:"level"`
	}
	err := c.request(ctx, http.MethodPut, "/api/v1/logging/level", map[string]any{"level": level}, &resp)
	return resp.Level, err
}
