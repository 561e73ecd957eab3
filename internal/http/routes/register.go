package routes

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/volctrld/internal/http/mw"
)

// Register registers all API routes with the given Huma API instance.
// Reads are public; anything that changes state sits behind the API key.
func Register(api huma.API, h *Handlers) {
	// --- Health ---
	mw.PublicGet(api, "/api/v1/health", h.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithDescription("Returns service health status. This endpoint does not require authentication."),
		mw.WithOperationID("healthCheck"))

	mw.HiddenGet(api, "/healthz", h.HealthCheck)

	mw.PublicGet(api, "/api/v1/version", h.VersionCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Daemon version"),
		mw.WithOperationID("getVersion"))

	// --- Devices ---
	mw.PublicGet(api, "/api/v1/status", h.Control.GetStatus,
		mw.WithTags("Devices"),
		mw.WithSummary("Overall status"),
		mw.WithDescription("Returns the control surface mode, every monitor and the companion as of the last loop iteration."),
		mw.WithOperationID("getStatus"))

	mw.PublicGet(api, "/api/v1/devices", h.Control.ListDevices,
		mw.WithTags("Devices"),
		mw.WithSummary("List monitors"),
		mw.WithOperationID("listDevices"))

	mw.PublicGet(api, "/api/v1/devices/{address}", h.Control.GetDevice,
		mw.WithTags("Devices"),
		mw.WithSummary("Get a monitor"),
		mw.WithOperationID("getDevice"),
		mw.WithErrors(http.StatusNotFound))

	mw.ProtectedPut(api, "/api/v1/devices/{address}/standby", h.Control.SetAutoStandby,
		mw.WithTags("Devices"),
		mw.WithSummary("Set auto-standby timer"),
		mw.WithOperationID("setAutoStandby"),
		mw.WithErrors(http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable))

	// --- Volume ---
	mw.ProtectedPut(api, "/api/v1/volume", h.Control.SetVolume,
		mw.WithTags("Volume"),
		mw.WithSummary("Set volume"),
		mw.WithDescription("Queues an absolute level for one monitor or all of them. Commands are debounced and rate limited, so the change is visible once a poll confirms it."),
		mw.WithOperationID("setVolume"),
		mw.WithErrors(http.StatusBadRequest, http.StatusNotFound, http.StatusConflict))

	mw.ProtectedPost(api, "/api/v1/volume/adjust", h.Control.AdjustVolume,
		mw.WithTags("Volume"),
		mw.WithSummary("Adjust volume"),
		mw.WithOperationID("adjustVolume"),
		mw.WithErrors(http.StatusConflict))

	mw.ProtectedPost(api, "/api/v1/mute/toggle", h.Control.ToggleMute,
		mw.WithTags("Volume"),
		mw.WithSummary("Toggle mute"),
		mw.WithDescription("Mutes every reachable monitor if any is unmuted, otherwise unmutes them all."),
		mw.WithOperationID("toggleMute"))

	// --- Input ---
	mw.ProtectedPost(api, "/api/v1/input/encoder", h.Control.Encoder,
		mw.WithTags("Input"),
		mw.WithSummary("Inject an encoder turn"),
		mw.WithOperationID("injectEncoder"))

	mw.ProtectedPost(api, "/api/v1/input/button", h.Control.Button,
		mw.WithTags("Input"),
		mw.WithSummary("Inject a button edge"),
		mw.WithOperationID("injectButton"))

	// --- Companion ---
	mw.PublicGet(api, "/api/v1/companion", h.Companion.GetCompanion,
		mw.WithTags("Companion"),
		mw.WithSummary("Companion status"),
		mw.WithOperationID("getCompanion"),
		mw.WithErrors(http.StatusNotFound))

	mw.ProtectedPost(api, "/api/v1/companion/{command}", h.Companion.RunCommand,
		mw.WithTags("Companion"),
		mw.WithSummary("Run a companion command"),
		mw.WithDescription("Transport commands use UPnP when it was discovered and fall back to the vendor HTTP API."),
		mw.WithOperationID("runCompanionCommand"),
		mw.WithErrors(http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable))

	// --- Logging ---
	mw.PublicGet(api, "/api/v1/logging/level", h.Logging.GetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Get global log level"),
		mw.WithOperationID("getLogLevel"))

	mw.ProtectedPut(api, "/api/v1/logging/level", h.Logging.SetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Set global log level"),
		mw.WithDescription("Changes the global log level at runtime. Valid values: debug, info, warn, error."),
		mw.WithOperationID("setLogLevel"))
}
