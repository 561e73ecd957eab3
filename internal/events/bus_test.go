package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects events for a single subscriber.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) fields(t *testing.T) []DeviceField {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DeviceField, 0, len(r.events))
	for _, e := range r.events {
		var f DeviceField
		require.NoError(t, e.Decode(&f))
		out = append(out, f)
	}
	return out
}

func TestDeviceFieldEvent(t *testing.T) {
	e := NewEvent(DeviceMuteChanged, DeviceField{Address: "10.0.0.11", Field: "mute", Value: true})

	assert.Equal(t, DeviceMuteChanged, e.Type)
	assert.False(t, e.Timestamp.IsZero())
	assert.JSONEq(t, `{"address":"10.0.0.11","field":"mute","value":true}`, string(e.Data))

	// numbers come back as float64 once the payload has been through JSON
	var f DeviceField
	require.NoError(t, NewEvent(DeviceVolumeChanged, DeviceField{Address: "10.0.0.12", Field: "volume", Value: 37.5}).Decode(&f))
	assert.Equal(t, DeviceField{Address: "10.0.0.12", Field: "volume", Value: 37.5}, f)
}

func TestBusFansDeviceUpdatesOutToRenderers(t *testing.T) {
	bus := NewBus()
	var display, socket recorder
	unsubDisplay := bus.Subscribe(display.record)
	unsubSocket := bus.Subscribe(socket.record)
	defer unsubSocket()

	bus.Publish(NewEvent(DeviceVolumeChanged, DeviceField{Address: "10.0.0.11", Field: "volume", Value: 40.0}))
	bus.Publish(NewEvent(DeviceMuteChanged, DeviceField{Address: "10.0.0.12", Field: "mute", Value: false}))

	want := []DeviceField{
		{Address: "10.0.0.11", Field: "volume", Value: 40.0},
		{Address: "10.0.0.12", Field: "mute", Value: false},
	}
	assert.Equal(t, want, display.fields(t))
	assert.Equal(t, want, socket.fields(t))

	unsubDisplay()
	bus.Publish(NewEvent(DeviceVolumeChanged, DeviceField{Address: "10.0.0.11", Field: "volume", Value: 41.0}))

	assert.Len(t, display.fields(t), 2, "an unsubscribed renderer sees nothing further")
	assert.Equal(t, DeviceField{Address: "10.0.0.11", Field: "volume", Value: 41.0}, socket.fields(t)[2])
}

func TestBusPendingVolumeLifecycle(t *testing.T) {
	bus := NewBus()
	var pending []PendingVolume
	unsub := bus.SubscribeTypes(func(e Event) {
		var p PendingVolume
		require.NoError(t, e.Decode(&p))
		pending = append(pending, p)
	}, DevicePendingVolume)
	defer unsub()

	bus.Publish(NewEvent(DevicePendingVolume, PendingVolume{Address: "10.0.0.11", Volume: 55, Pending: true}))
	bus.Publish(NewEvent(DeviceVolumeChanged, DeviceField{Address: "10.0.0.11", Field: "volume", Value: 55.0}))
	bus.Publish(NewEvent(DevicePendingVolume, PendingVolume{Address: "10.0.0.11", Volume: 55, Pending: false}))

	assert.Equal(t, []PendingVolume{
		{Address: "10.0.0.11", Volume: 55, Pending: true},
		{Address: "10.0.0.11", Volume: 55, Pending: false},
	}, pending)
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.Publish(NewEvent(DeviceStandbyChanged, DeviceField{Address: "10.0.0.11", Field: "standby", Value: true}))
	})
}

func TestBusSubscribeTypesIgnoresOtherTypes(t *testing.T) {
	bus := NewBus()
	var got []EventType

	unsub := bus.SubscribeTypes(func(e Event) { got = append(got, e.Type) }, DeviceReachabilityChanged, CompanionStatus)
	defer unsub()

	bus.Publish(NewEvent(DeviceReachabilityChanged, DeviceField{Address: "10.0.0.11", Field: "reachable", Value: false}))
	bus.Publish(NewEvent(DevicePendingVolume, PendingVolume{Address: "10.0.0.11", Volume: 20, Pending: true}))
	bus.Publish(NewEvent(CompanionStatus, map[string]string{"availability": "available"}))

	assert.Equal(t, []EventType{DeviceReachabilityChanged, CompanionStatus}, got)
}
