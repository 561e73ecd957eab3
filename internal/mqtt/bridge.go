// Package mqtt bridges volctrld to an MQTT broker so home automation can
// follow and drive the monitors.
//
// State is published retained under <prefix>/<address>/<field> whenever the
// control loop reports a change, and commands are accepted on
// <prefix>/set/volume, <prefix>/set/mute/toggle and <prefix>/set/companion.
package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/volctrld/internal/config"
	"github.com/jmylchreest/volctrld/internal/control"
	"github.com/jmylchreest/volctrld/internal/errors"
	"github.com/jmylchreest/volctrld/internal/events"
	"github.com/jmylchreest/volctrld/pkg/companion"
	"github.com/jmylchreest/volctrld/pkg/speaker"
)

const (
	queueSize      = 64
	commandTimeout = 5 * time.Second
)

// Controller is the part of the control loop the bridge drives.
type Controller interface {
	Snapshot() control.Snapshot
	SetVolume(ctx context.Context, address string, volume float64) error
	ToggleMute(ctx context.Context) error
	Companion(ctx context.Context, command, arg string) (companion.Status, error)
}

type message struct {
	topic   string
	payload []byte
}

// Bridge republishes bus events to MQTT and forwards commands to the loop.
type Bridge struct {
	conn   Conn
	topics Topics
	qos    byte
	ctrl   Controller
	bus    *events.Bus
	logger *slog.Logger

	queue chan message
	ctx   context.Context
}

// NewBridge creates a Bridge. Nothing is published until Run.
func NewBridge(conn Conn, cfg config.MQTTConfig, ctrl Controller, bus *events.Bus, logger *slog.Logger) *Bridge {
	return &Bridge{
		conn:   conn,
		topics: Topics{Prefix: cfg.TopicPrefix},
		qos:    cfg.QoS,
		ctrl:   ctrl,
		bus:    bus,
		logger: logger,
		queue:  make(chan message, queueSize),
		ctx:    context.Background(),
	}
}

// Run subscribes to the command topics, publishes the current state and then
// forwards state changes until ctx is cancelled. The connection is closed on
// return.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.conn.Close()
	b.ctx = ctx

	commands := map[string]MessageHandler{
		b.topics.SetVolume():     b.handleSetVolume,
		b.topics.SetMuteToggle(): b.handleMuteToggle,
		b.topics.SetCompanion():  b.handleCompanion,
	}
	for topic, h := range commands {
		if err := b.conn.Subscribe(topic, b.qos, h); err != nil {
			return err
		}
	}

	unsubscribe := b.bus.SubscribeTypes(b.onEvent,
		events.DeviceVolumeChanged,
		events.DeviceMuteChanged,
		events.DeviceStandbyChanged,
		events.DeviceReachabilityChanged,
		events.DisplayResync,
		events.CompanionStatus,
	)
	defer unsubscribe()

	b.publish(message{topic: b.topics.Status(), payload: []byte(payloadOnline)})
	for _, m := range b.snapshotMessages(b.ctrl.Snapshot()) {
		b.publish(m)
	}
	b.logger.Info("MQTT bridge started", "prefix", b.topics.Prefix)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("MQTT bridge stopped")
			return nil
		case m := <-b.queue:
			b.publish(m)
		}
	}
}

func (b *Bridge) publish(m message) {
	if err := b.conn.Publish(m.topic, b.qos, true, m.payload); err != nil {
		b.logger.Debug("MQTT publish failed", "topic", m.topic, "error", err)
	}
}

// onEvent runs on the control loop goroutine and must not block.
func (b *Bridge) onEvent(e events.Event) {
	for _, m := range b.eventMessages(e) {
		select {
		case b.queue <- m:
		default:
			b.logger.Warn("MQTT queue full, dropping state update", "topic", m.topic)
		}
	}
}

type deviceField struct {
	Address string          `json:"address"`
	Field   string          `json:"field"`
	Value   json.RawMessage `json:"value"`
}

func (b *Bridge) eventMessages(e events.Event) []message {
	switch e.Type {
	case events.DisplayResync:
		var devices []speaker.Snapshot
		if err := e.Decode(&devices); err != nil {
			return nil
		}
		return b.snapshotMessages(control.Snapshot{Devices: devices})
	case events.CompanionStatus:
		var st companion.Status
		if err := e.Decode(&st); err != nil {
			return nil
		}
		return []message{b.companionMessage(st)}
	default:
		var f deviceField
		if err := e.Decode(&f); err != nil || f.Address == "" || len(f.Value) == 0 {
			return nil
		}
		return []message{{topic: b.topics.DeviceState(f.Address, f.Field), payload: f.Value}}
	}
}

func (b *Bridge) snapshotMessages(snap control.Snapshot) []message {
	var out []message
	for _, d := range snap.Devices {
		out = append(out,
			message{topic: b.topics.DeviceState(d.Address, string(control.FieldReachable)), payload: []byte(strconv.FormatBool(d.Reachable))},
			message{topic: b.topics.DeviceState(d.Address, string(control.FieldMute)), payload: []byte(strconv.FormatBool(d.Muted))},
		)
		if d.Volume != nil {
			out = append(out, message{
				topic:   b.topics.DeviceState(d.Address, string(control.FieldVolume)),
				payload: []byte(strconv.FormatFloat(*d.Volume, 'f', -1, 64)),
			})
		}
		if d.StandbyCountdown != nil {
			out = append(out, message{
				topic:   b.topics.DeviceState(d.Address, string(control.FieldStandby)),
				payload: []byte(strconv.Itoa(*d.StandbyCountdown)),
			})
		}
	}
	if snap.Companion != nil {
		out = append(out, b.companionMessage(*snap.Companion))
	}
	return out
}

func (b *Bridge) companionMessage(st companion.Status) message {
	available := st.Availability == companion.Available.String()
	return message{topic: b.topics.CompanionAvailable(), payload: []byte(strconv.FormatBool(available))}
}

func (b *Bridge) commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(b.ctx, commandTimeout)
}

func (b *Bridge) handleSetVolume(_ string, payload []byte) error {
	address, volume, err := parseVolume(payload)
	if err != nil {
		return err
	}
	ctx, cancel := b.commandContext()
	defer cancel()
	return b.ctrl.SetVolume(ctx, address, volume)
}

func (b *Bridge) handleMuteToggle(_ string, _ []byte) error {
	ctx, cancel := b.commandContext()
	defer cancel()
	return b.ctrl.ToggleMute(ctx)
}

func (b *Bridge) handleCompanion(_ string, payload []byte) error {
	command, arg, err := parseCompanion(payload)
	if err != nil {
		return err
	}
	ctx, cancel := b.commandContext()
	defer cancel()
	_, err = b.ctrl.Companion(ctx, command, arg)
	return err
}

// parseVolume accepts a bare number or {"address": "...", "volume": n}.
func parseVolume(payload []byte) (string, float64, error) {
	s := strings.TrimSpace(string(payload))
	if strings.HasPrefix(s, "{") {
		var req struct {
			Address string   `json:"address"`
			Volume  *float64 `json:"volume"`
		}
		if err := json.Unmarshal([]byte(s), &req); err != nil {
			return "", 0, errors.InvalidInputf("volume payload: %v", err)
		}
		if req.Volume == nil {
			return "", 0, errors.InvalidInputf("volume payload has no volume")
		}
		return req.Address, *req.Volume, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return "", 0, errors.InvalidInputf("volume payload %q is not a finite number", s)
	}
	return "", v, nil
}

// parseCompanion accepts a bare command or {"command": "...", "input": "..."}.
func parseCompanion(payload []byte) (string, string, error) {
	s := strings.TrimSpace(string(payload))
	if strings.HasPrefix(s, "{") {
		var req struct {
			Command string `json:"command"`
			Input   string `json:"input"`
		}
		if err := json.Unmarshal([]byte(s), &req); err != nil {
			return "", "", errors.InvalidInputf("companion payload: %v", err)
		}
		s = req.Command
		if s == "" {
			return "", "", errors.InvalidInputf("companion payload has no command")
		}
		return s, req.Input, nil
	}
	if s == "" {
		return "", "", errors.InvalidInputf("empty companion command")
	}
	command, arg, _ := strings.Cut(s, " ")
	return command, strings.TrimSpace(arg), nil
}
