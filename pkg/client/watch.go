package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one message from the daemon's event stream.
type Event struct {
	Type      string          `json:"type" yaml:"type"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
	Data      json.RawMessage `json:"data" yaml:"-"`
}

// wsURL maps the API base URL onto the event stream endpoint.
func (c *HTTPClient) wsURL(types []string) (string, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/ws")
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if len(types) > 0 {
		q := u.Query()
		q.Set("types", strings.Join(types, ","))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Watch streams events to fn until ctx is cancelled, the connection drops
// or fn returns an error. The first event is always a snapshot unless
// types filters it out.
func (c *HTTPClient) Watch(ctx context.Context, types []string, fn func(Event) error) error {
	target, err := c.wsURL(types)
	if err != nil {
		return err
	}
	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return &Error{Code: resp.StatusCode, Message: fmt.Sprintf("event stream refused: %s", resp.Status)}
		}
		return fmt.Errorf("failed to connect to event stream: %w", err)
	}
	defer conn.Close()
	c.logger.Debug("Connected to event stream", "url", target)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("event stream: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
