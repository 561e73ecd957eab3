package routes

import (
	"context"

	"github.com/jmylchreest/volctrld/internal/http/handlers"
)

// StubHandlers returns a Handlers instance with stub implementations.
// All handlers return nil responses; Huma only needs the signatures to
// build the OpenAPI document.
func StubHandlers() *Handlers {
	return &Handlers{
		HealthCheck: handlers.HealthCheck,
		VersionCheck: func(_ context.Context, _ *handlers.VersionInput) (*handlers.VersionOutput, error) {
			return nil, nil
		},
		Control:   &stubControlHandlers{},
		Companion: &stubCompanionHandlers{},
		Logging:   &stubLoggingHandlers{},
	}
}

// --- Control stubs ---

type stubControlHandlers struct{}

func (s *stubControlHandlers) GetStatus(_ context.Context, _ *handlers.GetStatusInput) (*handlers.GetStatusOutput, error) {
	return nil, nil
}

func (s *stubControlHandlers) ListDevices(_ context.Context, _ *handlers.ListDevicesInput) (*handlers.ListDevicesOutput, error) {
	return nil, nil
}

func (s *stubControlHandlers) GetDevice(_ context.Context, _ *handlers.GetDeviceInput) (*handlers.GetDeviceOutput, error) {
	return nil, nil
}

func (s *stubControlHandlers) SetAutoStandby(_ context.Context, _ *handlers.SetAutoStandbyInput) (*handlers.SetAutoStandbyOutput, error) {
	return nil, nil
}

func (s *stubControlHandlers) SetVolume(_ context.Context, _ *handlers.SetVolumeInput) (*handlers.SetVolumeOutput, error) {
	return nil, nil
}

func (s *stubControlHandlers) AdjustVolume(_ context.Context, _ *handlers.AdjustVolumeInput) (*handlers.AdjustVolumeOutput, error) {
	return nil, nil
}

func (s *stubControlHandlers) ToggleMute(_ context.Context, _ *handlers.ToggleMuteInput) (*handlers.ToggleMuteOutput, error) {
	return nil, nil
}

func (s *stubControlHandlers) Encoder(_ context.Context, _ *handlers.EncoderInput) (*handlers.EncoderOutput, error) {
	return nil, nil
}

func (s *stubControlHandlers) Button(_ context.Context, _ *handlers.ButtonInput) (*handlers.ButtonOutput, error) {
	return nil, nil
}

// --- Companion stubs ---

type stubCompanionHandlers struct{}

func (s *stubCompanionHandlers) GetCompanion(_ context.Context, _ *handlers.GetCompanionInput) (*handlers.GetCompanionOutput, error) {
	return nil, nil
}

func (s *stubCompanionHandlers) RunCommand(_ context.Context, _ *handlers.CompanionCommandInput) (*handlers.CompanionCommandOutput, error) {
	return nil, nil
}

// --- Logging stubs ---

type stubLoggingHandlers struct{}

func (s *stubLoggingHandlers) GetLevel(_ context.Context, _ *handlers.GetLevelInput) (*handlers.GetLevelOutput, error) {
	return nil, nil
}

func (s *stubLoggingHandlers) SetLevel(_ context.Context, _ *handlers.SetLevelInput) (*handlers.SetLevelOutput, error) {
	return nil, nil
}
