// Package display adapts control loop signals to the event bus. Renderers
// (the WebSocket hub, the MQTT bridge, a panel driver) subscribe to the bus
// instead of talking to the control loop.
package display

import (
	"github.com/jmylchreest/volctrld/internal/control"
	"github.com/jmylchreest/volctrld/internal/events"
	"github.com/jmylchreest/volctrld/pkg/companion"
	"github.com/jmylchreest/volctrld/pkg/speaker"
)

// BusDisplay implements control.Display by publishing events.
type BusDisplay struct {
	bus *events.Bus
}

var _ control.Display = (*BusDisplay)(nil)

// NewBusDisplay creates a BusDisplay publishing on bus.
func NewBusDisplay(bus *events.Bus) *BusDisplay {
	return &BusDisplay{bus: bus}
}

var fieldEvents = map[control.Field]events.EventType{
	control.FieldVolume:    events.DeviceVolumeChanged,
	control.FieldMute:      events.DeviceMuteChanged,
	control.FieldStandby:   events.DeviceStandbyChanged,
	control.FieldReachable: events.DeviceReachabilityChanged,
}

// FieldChanged implements control.Display.
func (d *BusDisplay) FieldChanged(c control.Change) {
	t, ok := fieldEvents[c.Field]
	if !ok {
		return
	}
	d.bus.Publish(events.NewEvent(t, events.DeviceField{
		Address: c.Address,
		Field:   string(c.Field),
		Value:   c.Value,
	}))
}

// PendingVolume implements control.Display.
func (d *BusDisplay) PendingVolume(address string, volume float64, pending bool) {
	d.bus.Publish(events.NewEvent(events.DevicePendingVolume, events.PendingVolume{
		Address: address,
		Volume:  volume,
		Pending: pending,
	}))
}

// ModeChanged implements control.Display.
func (d *BusDisplay) ModeChanged(m control.Mode) {
	d.bus.Publish(events.NewEvent(events.ModeChanged, m))
	if m.Kind == control.ModeBrightness {
		d.bus.Publish(events.NewEvent(events.BrightnessChanged, m.Brightness))
	}
}

// Resync implements control.Display.
func (d *BusDisplay) Resync(devices []speaker.Snapshot) {
	d.bus.Publish(events.NewEvent(events.DisplayResync, devices))
}

// CompanionChanged implements control.Display.
func (d *BusDisplay) CompanionChanged(s companion.Status) {
	d.bus.Publish(events.NewEvent(events.CompanionStatus, s))
}
