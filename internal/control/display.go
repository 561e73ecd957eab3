// Package control is the single-threaded core of the daemon: it polls the
// monitors, turns encoder and button input into debounced volume commands
// or menu navigation, and keeps the companion device's availability current.
//
// Nothing in this package is safe for concurrent use. The server package
// drives a Controller from exactly one goroutine.
package control

import (
	"github.com/jmylchreest/volctrld/pkg/companion"
	"github.com/jmylchreest/volctrld/pkg/speaker"
)

// Field names a per-device value reported to the display.
type Field string

const (
	FieldReachable Field = "reachable"
	FieldVolume    Field = "volume"
	FieldMute      Field = "mute"
	FieldStandby   Field = "standby"
)

// Change is one field of one device that changed value.
type Change struct {
	Address string `json:"address"`
	Field   Field  `json:"field"`
	Value   any    `json:"value"`
}

// Display receives state signals for rendering. Implementations must not
// block.
type Display interface {
	// FieldChanged reports a confirmed field change from a poll.
	FieldChanged(c Change)
	// PendingVolume reports an optimistic volume, or that the pending
	// value was confirmed or dropped when pending is false.
	PendingVolume(address string, volume float64, pending bool)
	// ModeChanged reports any change to the menu or brightness state.
	ModeChanged(m Mode)
	// Resync asks for a full redraw from devices.
	Resync(devices []speaker.Snapshot)
	// CompanionChanged reports a companion availability transition.
	CompanionChanged(s companion.Status)
}

// NopDisplay discards every signal.
type NopDisplay struct{}

func (NopDisplay) FieldChanged(Change) {}
func (NopDisplay) PendingVolume(string, float64, bool) {}
func (NopDisplay) ModeChanged(Mode) {}
func (NopDisplay) Resync([]speaker.Snapshot) {}
func (NopDisplay) CompanionChanged(companion.Status) {}
