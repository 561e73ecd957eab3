package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Device is one monitor as reported by the daemon.
type Device struct {
	Address          string   `json:"address" yaml:"address"`
	Name             string   `json:"name" yaml:"name"`
	Reachable        bool     `json:"reachable" yaml:"reachable"`
	Volume           *float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
	Muted            bool     `json:"muted" yaml:"muted"`
	StandbyCountdown *int     `json:"standby_countdown,omitempty" yaml:"standby_countdown,omitempty"`
}

// InStandby reports whether the monitor's standby countdown has run out.
func (d Device) InStandby() bool {
	return d.StandbyCountdown != nil && *d.StandbyCountdown == 0
}

// Mode is the control surface mode.
type Mode struct {
	Mode       string `json:"mode" yaml:"mode"`
	Level      int    `json:"level" yaml:"level"`
	Position   int    `json:"position" yaml:"position"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	Item       string `json:"item,omitempty" yaml:"item,omitempty"`
	Brightness int    `json:"brightness" yaml:"brightness"`
}

// Companion is the companion streamer status.
type Companion struct {
	Address      string `json:"address" yaml:"address"`
	Availability string `json:"availability" yaml:"availability"`
	UPnP         bool   `json:"upnp" yaml:"upnp"`
	Input        string `json:"input,omitempty" yaml:"input,omitempty"`
}

// Status is the combined daemon view.
type Status struct {
	Mode      Mode       `json:"mode" yaml:"mode"`
	Devices   []Device   `json:"devices" yaml:"devices"`
	Companion *Companion `json:"companion,omitempty" yaml:"companion,omitempty"`
}

// Error is a failure reported by the daemon. Code follows HTTP status
// semantics on both transports.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return "server error: " + e.Message
	}
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a daemon "not found" error.
func IsNotFound(err error) bool {
	return codeOf(err) == http.StatusNotFound
}

// IsConflict reports whether err was refused because of the current mode,
// e.g. setting the volume while the menu is open.
func IsConflict(err error) bool {
	return codeOf(err) == http.StatusConflict
}

func codeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
