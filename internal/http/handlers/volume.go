package handlers

import (
	"context"
	"time"

	"github.com/jmylchreest/volctrld/internal/control"
	"github.com/jmylchreest/volctrld/internal/errors"
	"github.com/jmylchreest/volctrld/pkg/companion"
)

// Controller is the control loop as seen by the HTTP API.
type Controller interface {
	Snapshot() control.Snapshot
	SetVolume(ctx context.Context, address string, volume float64) error
	AdjustVolume(ctx context.Context, delta int) error
	ToggleMute(ctx context.Context) error
	Encoder(ctx context.Context, delta int, at time.Time) error
	Button(ctx context.Context, pressed bool, at time.Time) error
	Companion(ctx context.Context, command, arg string) (companion.Status, error)
	SetAutoStandby(ctx context.Context, address string, minutes int) error
}

// --- Status ---

// GetStatusInput is the input for the overall status.
type GetStatusInput struct{}

// GetStatusOutput is the output for the overall status.
type GetStatusOutput struct {
	Body struct {
		Mode      ModeResponse       `json:"mode" doc:"Control surface mode"`
		Devices   []DeviceResponse   `json:"devices" doc:"Monitors in configuration order"`
		Companion *CompanionResponse `json:"companion,omitempty" doc:"Companion streamer, when configured"`
	}
}

// --- Devices ---

// ListDevicesInput is the input for listing monitors.
type ListDevicesInput struct{}

// ListDevicesOutput is the output for listing monitors.
type ListDevicesOutput struct {
	Body []DeviceResponse
}

// GetDeviceInput is the input for getting one monitor.
type GetDeviceInput struct {
	Address string `path:"address" doc:"Monitor address as configured"`
}

// GetDeviceOutput is the output for getting one monitor.
type GetDeviceOutput struct {
	Body DeviceResponse
}

// SetAutoStandbyInput is the input for changing a monitor's auto-standby timer.
type SetAutoStandbyInput struct {
	Address string `path:"address" doc:"Monitor address as configured"`
	Body    struct {
		Minutes int `json:"minutes" minimum:"0" doc:"Minutes of silence before standby; 0 disables"`
	}
}

// SetAutoStandbyOutput is the output for changing the auto-standby timer.
type SetAutoStandbyOutput struct {
	Body StatusResponse
}

// --- Volume ---

// SetVolumeInput is the input for an absolute volume request.
type SetVolumeInput struct {
	Body struct {
		Address string  `json:"address,omitempty" doc:"Target monitor; all monitors when empty"`
		Volume  float64 `json:"volume" doc:"Output level, clamped to 0..speaker.max_volume"`
	}
}

// SetVolumeOutput is the output for a volume request.
type SetVolumeOutput struct {
	Body StatusResponse
}

// AdjustVolumeInput is the input for a relative volume request.
type AdjustVolumeInput struct {
	Body struct {
		Delta int `json:"delta" doc:"Steps to move; negative lowers the volume"`
	}
}

// AdjustVolumeOutput is the output for a relative volume request.
type AdjustVolumeOutput struct {
	Body StatusResponse
}

// ToggleMuteInput is the input for toggling mute.
type ToggleMuteInput struct{}

// ToggleMuteOutput is the output for toggling mute.
type ToggleMuteOutput struct {
	Body StatusResponse
}

// --- Raw input ---

// EncoderInput injects an encoder turn.
type EncoderInput struct {
	Body struct {
		Delta int `json:"delta" doc:"Detents turned; negative is counter-clockwise"`
	}
}

// EncoderOutput is the output for an encoder turn.
type EncoderOutput struct {
	Body ModeResponse
}

// ButtonInput injects a button edge.
type ButtonInput struct {
	Body struct {
		Pressed bool `json:"pressed" doc:"true for press, false for release"`
	}
}

// ButtonOutput is the output for a button edge.
type ButtonOutput struct {
	Body ModeResponse
}

// ControlHandler implements the volume and device HTTP handlers.
type ControlHandler struct {
	Control Controller
}

// GetStatus returns the mode, every monitor and the companion.
func (h *ControlHandler) GetStatus(_ context.Context, _ *GetStatusInput) (*GetStatusOutput, error) {
	snap := h.Control.Snapshot()
	out := &GetStatusOutput{}
	out.Body.Mode = ModeFromControl(snap.Mode)
	out.Body.Devices = DevicesFromSnapshots(snap.Devices)
	if snap.Companion != nil {
		c := CompanionFromStatus(*snap.Companion)
		out.Body.Companion = &c
	}
	return out, nil
}

// ListDevices returns every monitor in configuration order.
func (h *ControlHandler) ListDevices(_ context.Context, _ *ListDevicesInput) (*ListDevicesOutput, error) {
	return &ListDevicesOutput{Body: DevicesFromSnapshots(h.Control.Snapshot().Devices)}, nil
}

// GetDevice returns a single monitor by address.
func (h *ControlHandler) GetDevice(_ context.Context, input *GetDeviceInput) (*GetDeviceOutput, error) {
	for _, d := range h.Control.Snapshot().Devices {
		if d.Address == input.Address {
			return &GetDeviceOutput{Body: DeviceFromSnapshot(d)}, nil
		}
	}
	return nil, apiError(errors.NotFoundf("device %s", input.Address))
}

// SetAutoStandby changes a monitor's auto-standby timer.
func (h *ControlHandler) SetAutoStandby(ctx context.Context, input *SetAutoStandbyInput) (*SetAutoStandbyOutput, error) {
	if err := h.Control.SetAutoStandby(ctx, input.Address, input.Body.Minutes); err != nil {
		return nil, apiError(err)
	}
	return &SetAutoStandbyOutput{Body: ok()}, nil
}

// SetVolume queues an absolute volume. The command is debounced and rate
// limited; the returned status only means it was accepted.
func (h *ControlHandler) SetVolume(ctx context.Context, input *SetVolumeInput) (*SetVolumeOutput, error) {
	if err := h.Control.SetVolume(ctx, input.Body.Address, input.Body.Volume); err != nil {
		return nil, apiError(err)
	}
	return &SetVolumeOutput{Body: ok()}, nil
}

// AdjustVolume queues a relative volume change.
func (h *ControlHandler) AdjustVolume(ctx context.Context, input *AdjustVolumeInput) (*AdjustVolumeOutput, error) {
	if err := h.Control.AdjustVolume(ctx, input.Body.Delta); err != nil {
		return nil, apiError(err)
	}
	return &AdjustVolumeOutput{Body: ok()}, nil
}

// ToggleMute mutes every reachable monitor if any is unmuted, else unmutes all.
func (h *ControlHandler) ToggleMute(ctx context.Context, _ *ToggleMuteInput) (*ToggleMuteOutput, error) {
	if err := h.Control.ToggleMute(ctx); err != nil {
		return nil, apiError(err)
	}
	return &ToggleMuteOutput{Body: ok()}, nil
}

// Encoder injects an encoder turn and returns the resulting mode.
func (h *ControlHandler) Encoder(ctx context.Context, input *EncoderInput) (*EncoderOutput, error) {
	if err := h.Control.Encoder(ctx, input.Body.Delta, time.Time{}); err != nil {
		return nil, apiError(err)
	}
	return &EncoderOutput{Body: ModeFromControl(h.Control.Snapshot().Mode)}, nil
}

// Button injects a button edge and returns the resulting mode.
func (h *ControlHandler) Button(ctx context.Context, input *ButtonInput) (*ButtonOutput, error) {
	if err := h.Control.Button(ctx, input.Body.Pressed, time.Time{}); err != nil {
		return nil, apiError(err)
	}
	return &ButtonOutput{Body: ModeFromControl(h.Control.Snapshot().Mode)}, nil
}

// Ensure ControlHandler implements the interface at compile time.
var _ ControlHandlers = (*ControlHandler)(nil)

// ControlHandlers defines the interface for volume and device operations.
type ControlHandlers interface {
	GetStatus(ctx context.Context, input *GetStatusInput) (*GetStatusOutput, error)
	ListDevices(ctx context.Context, input *ListDevicesInput) (*ListDevicesOutput, error)
	GetDevice(ctx context.Context, input *GetDeviceInput) (*GetDeviceOutput, error)
	SetAutoStandby(ctx context.Context, input *SetAutoStandbyInput) (*SetAutoStandbyOutput, error)
	SetVolume(ctx context.Context, input *SetVolumeInput) (*SetVolumeOutput, error)
	AdjustVolume(ctx context.Context, input *AdjustVolumeInput) (*AdjustVolumeOutput, error)
	ToggleMute(ctx context.Context, input *ToggleMuteInput) (*ToggleMuteOutput, error)
	Encoder(ctx context.Context, input *EncoderInput) (*EncoderOutput, error)
	Button(ctx context.Context, input *ButtonInput) (*ButtonOutput, error)
}
