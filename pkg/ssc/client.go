package ssc

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jmylchreest/volctrld/internal/errors"
	"github.com/jmylchreest/volctrld/pkg/extract"
)

// MaxVolume is the highest output level the monitors accept.
const MaxVolume = 120.0

// Status is the result of a combined status query. The Has* flags report
// which fields were present in the response.
type Status struct {
	Level            float64
	HasLevel         bool
	Muted            bool
	HasMute          bool
	StandbyCountdown int
	HasStandby       bool
}

// Client issues protocol commands over a Sender.
type Client struct {
	sender    Sender
	maxVolume float64
	logger    *slog.Logger
}

// NewClient creates a Client. maxVolume <= 0 selects MaxVolume.
func NewClient(sender Sender, maxVolume float64, logger *slog.Logger) *Client {
	if maxVolume <= 0 {
		maxVolume = MaxVolume
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{sender: sender, maxVolume: maxVolume, logger: logger}
}

// MaxVolume returns the clamp ceiling used by SetLevel.
func (c *Client) MaxVolume() float64 {
	return c.maxVolume
}

var statusQuery = map[string]any{
	"audio": map[string]any{
		"out": map[string]any{"level": nil, "mute": nil},
	},
	"device": map[string]any{
		"standby": map[string]any{"countdown": nil},
	},
}

// QueryStatus fetches level, mute and standby countdown in one round trip.
// Transport failures wrap errors.ErrTransport. A response that carries none
// of the fields wraps errors.ErrParse.
func (c *Client) QueryStatus(ctx context.Context, address string) (Status, error) {
	resp, err := c.send(ctx, address, statusQuery)
	if err != nil {
		return Status{}, err
	}

	var st Status
	if v, err := extract.Number(resp, "level"); err == nil {
		st.Level, st.HasLevel = v, true
	} else {
		c.logger.Debug("ssc: level unavailable", "device", address, "error", err)
	}
	if v, err := extract.Boolean(resp, "mute"); err == nil {
		st.Muted, st.HasMute = v, true
	} else {
		c.logger.Debug("ssc: mute unavailable", "device", address, "error", err)
	}
	if v, err := extract.Number(resp, "countdown"); err == nil {
		st.StandbyCountdown, st.HasStandby = int(v), true
	} else {
		c.logger.Debug("ssc: standby countdown unavailable", "device", address, "error", err)
	}

	if !st.HasLevel && !st.HasMute && !st.HasStandby {
		return st, errors.Parsef("status response from %s has no known fields", address)
	}
	return st, nil
}

// SetLevel sets the output level, clamped to [0, MaxVolume]. It returns the
// value actually sent.
func (c *Client) SetLevel(ctx context.Context, address string, level float64) (float64, error) {
	clamped := c.Clamp(level)
	if clamped != level {
		c.logger.Debug("ssc: level clamped", "device", address, "error", errors.Rangef("level %v", level), "sent", clamped)
	}
	_, err := c.send(ctx, address, nest(clamped, "audio", "out", "level"))
	return clamped, err
}

// SetMute mutes or unmutes the output.
func (c *Client) SetMute(ctx context.Context, address string, muted bool) error {
	_, err := c.send(ctx, address, nest(muted, "audio", "out", "mute"))
	return err
}

// SetAutoStandbyTime sets the idle minutes before the device enters standby.
func (c *Client) SetAutoStandbyTime(ctx context.Context, address string, minutes int) error {
	if minutes < 0 {
		return errors.InvalidInputf("auto standby time %d", minutes)
	}
	_, err := c.send(ctx, address, nest(minutes, "device", "standby", "auto_standby_time"))
	return err
}

// Query reads a single field addressed by path and returns the raw response.
func (c *Client) Query(ctx context.Context, address string, path ...string) ([]byte, error) {
	if len(path) == 0 {
		return nil, errors.InvalidInputf("empty query path")
	}
	return c.send(ctx, address, nest(nil, path...))
}

// Clamp limits level to the accepted range.
func (c *Client) Clamp(level float64) float64 {
	switch {
	case level < 0:
		return 0
	case level > c.maxVolume:
		return c.maxVolume
	default:
		return level
	}
}

func (c *Client) send(ctx context.Context, address string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Internalf("encode request: %v", err)
	}
	return c.sender.Send(ctx, address, payload)
}

// nest builds {"p0":{"p1":{...:leaf}}}.
func nest(leaf any, path ...string) map[string]any {
	var v any = leaf
	for i := len(path) - 1; i > 0; i-- {
		v = map[string]any{path[i]: v}
	}
	return map[string]any{path[0]: v}
}
