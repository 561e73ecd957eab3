// Package handlers provides typed Huma request/response structs and handler
// implementations for the volctrld HTTP API.
package handlers

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/volctrld/internal/control"
	"github.com/jmylchreest/volctrld/internal/errors"
	"github.com/jmylchreest/volctrld/pkg/companion"
	"github.com/jmylchreest/volctrld/pkg/speaker"
)

// --- Device types ---

// DeviceResponse is the API representation of one monitor.
type DeviceResponse struct {
	Address          string   `json:"address" doc:"Network address of the monitor"`
	Name             string   `json:"name" doc:"Display name"`
	Reachable        bool     `json:"reachable" doc:"Whether the last poll got an answer"`
	Volume           *float64 `json:"volume,omitempty" doc:"Last confirmed output level, absent until first read"`
	Muted            bool     `json:"muted" doc:"Last confirmed mute state"`
	StandbyCountdown *int     `json:"standby_countdown,omitempty" doc:"Seconds until auto-standby; 0 means in standby"`
	InStandby        bool     `json:"in_standby" doc:"Whether the monitor is in standby and ignores commands"`
	PendingVolume    *float64 `json:"pending_volume,omitempty" doc:"Requested level not yet confirmed by a poll"`
}

// DeviceFromSnapshot converts a speaker.Snapshot to a DeviceResponse.
func DeviceFromSnapshot(s speaker.Snapshot) DeviceResponse {
	return DeviceResponse{
		Address:          s.Address,
		Name:             s.Name,
		Reachable:        s.Reachable,
		Volume:           s.Volume,
		Muted:            s.Muted,
		StandbyCountdown: s.StandbyCountdown,
		InStandby:        s.StandbyCountdown != nil && *s.StandbyCountdown == 0,
		PendingVolume:    s.RequestedVolume,
	}
}

// DevicesFromSnapshots converts every snapshot, keeping registry order.
func DevicesFromSnapshots(snaps []speaker.Snapshot) []DeviceResponse {
	result := make([]DeviceResponse, len(snaps))
	for i, s := range snaps {
		result[i] = DeviceFromSnapshot(s)
	}
	return result
}

// --- Mode types ---

// ModeResponse is the API representation of the control surface mode.
type ModeResponse struct {
	Mode       string `json:"mode" enum:"normal,menu,brightness" doc:"Current input mode"`
	Level      int    `json:"level" doc:"Menu level (0 is the main menu)"`
	Position   int    `json:"position" doc:"Cursor position within the menu"`
	Title      string `json:"title,omitempty" doc:"Menu title"`
	Item       string `json:"item,omitempty" doc:"Highlighted menu item"`
	Brightness int    `json:"brightness" doc:"Backlight brightness (0-100)"`
}

// ModeFromControl converts a control.Mode to a ModeResponse.
func ModeFromControl(m control.Mode) ModeResponse {
	return ModeResponse{
		Mode:       m.Name,
		Level:      m.Level,
		Position:   m.Position,
		Title:      m.Title,
		Item:       m.Item,
		Brightness: m.Brightness,
	}
}

// --- Companion types ---

// CompanionResponse is the API representation of the companion streamer.
type CompanionResponse struct {
	Address      string `json:"address" doc:"Network address of the streamer"`
	Availability string `json:"availability" enum:"unprobed,available,unavailable" doc:"Availability state"`
	UPnP         bool   `json:"upnp" doc:"Whether UPnP transport control was discovered"`
	Input        string `json:"input,omitempty" doc:"Last known audio input"`
}

// CompanionFromStatus converts a companion.Status to a CompanionResponse.
func CompanionFromStatus(s companion.Status) CompanionResponse {
	return CompanionResponse{
		Address:      s.Address,
		Availability: s.Availability,
		UPnP:         s.UPnP,
		Input:        string(s.Input),
	}
}

// --- Common response types ---

// StatusResponse is a simple status response.
type StatusResponse struct {
	Status string `json:"status" doc:"Operation status"`
}

func ok() StatusResponse {
	return StatusResponse{Status: "ok"}
}

// apiError maps domain errors to HTTP status codes.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	return huma.NewError(errors.HTTPStatus(err), err.Error())
}
