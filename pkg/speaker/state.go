// Package speaker holds the locally cached view of every registered monitor.
//
// A State is owned by the control loop and is not safe for concurrent use.
// Other goroutines read Snapshot copies instead.
package speaker

import (
	"math"
)

// Epsilon is the smallest volume difference treated as a change.
const Epsilon = 0.05

// StandbyUnknown marks a standby countdown that has not been read yet or
// that the device does not report.
const StandbyUnknown = -1

// unset marks a volume value that has no meaningful content. NaN is used
// instead of a negative number because some monitors report levels in
// negative dB.
var unset = math.NaN()

// IsSet reports whether v holds a volume.
func IsSet(v float64) bool {
	return !math.IsNaN(v)
}

// VolumeChanged reports whether next differs from prev by more than Epsilon,
// treating a transition to or from unset as a change.
func VolumeChanged(prev, next float64) bool {
	switch {
	case !IsSet(prev) && !IsSet(next):
		return false
	case !IsSet(prev) || !IsSet(next):
		return true
	default:
		return math.Abs(next-prev) > Epsilon
	}
}

// State is the last known and last requested state of one device.
type State struct {
	address          string
	name             string
	reachable        bool
	volume           float64
	muted            bool
	standbyCountdown int
	requestedVolume  float64
	lastSentVolume   float64
}

// NewState creates a State with every value unset.
func NewState(address, name string) *State {
	return &State{
		address:          address,
		name:             name,
		volume:           unset,
		standbyCountdown: StandbyUnknown,
		requestedVolume:  unset,
		lastSentVolume:   unset,
	}
}

// Address returns the device address.
func (s *State) Address() string { return s.address }

// Name returns the configured display name, falling back to the address.
func (s *State) Name() string {
	if s.name == "" {
		return s.address
	}
	return s.name
}

// Reachable reports whether the last poll succeeded.
func (s *State) Reachable() bool { return s.reachable }

// Volume returns the device reported level.
func (s *State) Volume() (float64, bool) { return s.volume, IsSet(s.volume) }

// Muted returns the device reported mute state.
func (s *State) Muted() bool { return s.muted }

// StandbyCountdown returns seconds until auto standby or StandbyUnknown.
func (s *State) StandbyCountdown() int { return s.standbyCountdown }

// RequestedVolume returns the user intended level not yet confirmed.
func (s *State) RequestedVolume() (float64, bool) {
	return s.requestedVolume, IsSet(s.requestedVolume)
}

// LastSentVolume returns the level last transmitted to the device.
func (s *State) LastSentVolume() (float64, bool) {
	return s.lastSentVolume, IsSet(s.lastSentVolume)
}

// InStandby reports whether the device is known to have entered standby.
func (s *State) InStandby() bool { return s.standbyCountdown == 0 }

// SetReachable stores v and reports whether it changed.
func (s *State) SetReachable(v bool) bool {
	changed := s.reachable != v
	s.reachable = v
	return changed
}

// SetVolume stores v and reports whether it changed by more than Epsilon.
func (s *State) SetVolume(v float64) bool {
	changed := VolumeChanged(s.volume, v)
	s.volume = v
	return changed
}

// SetMuted stores v and reports whether it changed.
func (s *State) SetMuted(v bool) bool {
	changed := s.muted != v
	s.muted = v
	return changed
}

// SetStandbyCountdown stores v and reports whether it changed. Negative
// values are normalised to StandbyUnknown.
func (s *State) SetStandbyCountdown(v int) bool {
	if v < 0 {
		v = StandbyUnknown
	}
	changed := s.standbyCountdown != v
	s.standbyCountdown = v
	return changed
}

// SetRequestedVolume stores v and reports whether it changed.
func (s *State) SetRequestedVolume(v float64) bool {
	changed := VolumeChanged(s.requestedVolume, v)
	s.requestedVolume = v
	return changed
}

// ClearRequestedVolume unsets the requested volume and reports whether one was pending.
func (s *State) ClearRequestedVolume() bool {
	return s.SetRequestedVolume(unset)
}

// SetLastSentVolume stores v and reports whether it changed.
func (s *State) SetLastSentVolume(v float64) bool {
	changed := VolumeChanged(s.lastSentVolume, v)
	s.lastSentVolume = v
	return changed
}

// ClearLastSentVolume forgets the last transmitted level.
func (s *State) ClearLastSentVolume() bool {
	return s.SetLastSentVolume(unset)
}

// Snapshot is an immutable copy of a State for readers outside the control loop.
type Snapshot struct {
	Address          string   `json:"address" yaml:"address"`
	Name             string   `json:"name" yaml:"name"`
	Reachable        bool     `json:"reachable" yaml:"reachable"`
	Volume           *float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
	Muted            bool     `json:"muted" yaml:"muted"`
	StandbyCountdown *int     `json:"standby_countdown,omitempty" yaml:"standby_countdown,omitempty"`
	RequestedVolume  *float64 `json:"requested_volume,omitempty" yaml:"requested_volume,omitempty"`
	LastSentVolume   *float64 `json:"last_sent_volume,omitempty" yaml:"last_sent_volume,omitempty"`
}

// Snapshot copies s.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Address:         s.address,
		Name:            s.Name(),
		Reachable:       s.reachable,
		Muted:           s.muted,
		Volume:          floatPtr(s.volume),
		RequestedVolume: floatPtr(s.requestedVolume),
		LastSentVolume:  floatPtr(s.lastSentVolume),
	}
	if s.standbyCountdown != StandbyUnknown {
		c := s.standbyCountdown
		snap.StandbyCountdown = &c
	}
	return snap
}

func floatPtr(v float64) *float64 {
	if !IsSet(v) {
		return nil
	}
	return &v
}
