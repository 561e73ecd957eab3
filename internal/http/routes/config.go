// Package routes provides shared route registration for the volctrld HTTP API.
// Both the main server and the OpenAPI generator use the same route definitions,
// ensuring the published document always matches the implementation.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/volctrld/internal/http/mw"
)

// NewHumaConfig creates the shared Huma configuration for the API.
func NewHumaConfig(version, baseURL string) huma.Config {
	cfg := huma.DefaultConfig("volctrld API", version)
	cfg.Info.Description = "REST API for controlling networked studio monitors and a companion streamer via volctrld."

	// Disable $schema field in responses
	cfg.CreateHooks = nil

	if baseURL != "" {
		cfg.Servers = []*huma.Server{
			{URL: baseURL, Description: "API Server"},
		}
	}

	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		mw.SecurityScheme: {
			Type:        "http",
			Scheme:      "bearer",
			Description: "Static API key. Send it as `Authorization: Bearer <key>` or `X-API-Key: <key>`.",
		},
	}

	cfg.Tags = []*huma.Tag{
		{Name: "Devices", Description: "Monitor state and settings"},
		{Name: "Volume", Description: "Volume and mute control"},
		{Name: "Input", Description: "Encoder and button injection"},
		{Name: "Companion", Description: "Companion streamer control"},
		{Name: "Logging", Description: "Runtime log level management"},
		{Name: "Health", Description: "Liveness and version"},
	}

	return cfg
}
