// Package events provides the in-process event bus that carries control
// loop signals to the WebSocket hub, the MQTT bridge and any other renderer.
package events

import (
	"encoding/json"
	"slices"
	"sync"
	"time"
)

// EventType identifies the kind of event.
type EventType string

const (
	// Device events, one per confirmed field change
	DeviceVolumeChanged       EventType = "device.volume_changed"
	DeviceMuteChanged         EventType = "device.mute_changed"
	DeviceStandbyChanged      EventType = "device.standby_changed"
	DeviceReachabilityChanged EventType = "device.reachability_changed"

	// DevicePendingVolume carries an optimistic, unconfirmed volume.
	DevicePendingVolume EventType = "device.pending_volume"

	// Surface events
	ModeChanged       EventType = "mode.changed"
	BrightnessChanged EventType = "brightness.changed"
	DisplayResync     EventType = "display.resync"
	CompanionStatus   EventType = "companion.availability_changed"
)

// DeviceField is the payload of the device.*_changed events.
type DeviceField struct {
	Address string `json:"address"`
	Field   string `json:"field"`
	Value   any    `json:"value"`
}

// PendingVolume is the payload of DevicePendingVolume.
type PendingVolume struct {
	Address string  `json:"address"`
	Volume  float64 `json:"volume"`
	Pending bool    `json:"pending"`
}

// Event is a single event emitted by a producer.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent creates an Event, marshaling data to JSON.
// If marshaling fails the Data field is set to null.
func NewEvent(t EventType, data any) Event {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("null")
	}
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Data:      raw,
	}
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// SubscriberFunc is a callback invoked for each event.
// Implementations must not block; slow subscribers should buffer internally.
type SubscriberFunc func(Event)

// Bus is a simple synchronous fan-out event bus.
// Publishing blocks until all subscribers have been called, so subscribers
// should be fast (e.g., write to a channel).
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]SubscriberFunc
	nextID      int
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int]SubscriberFunc),
	}
}

// Subscribe registers a callback and returns an unsubscribe function.
func (b *Bus) Subscribe(fn SubscriberFunc) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// SubscribeTypes registers a callback that only sees the listed event types.
func (b *Bus) SubscribeTypes(fn SubscriberFunc, types ...EventType) func() {
	return b.Subscribe(func(e Event) {
		if slices.Contains(types, e.Type) {
			fn(e)
		}
	})
}

// Publish sends an event to all current subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]SubscriberFunc, 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}
