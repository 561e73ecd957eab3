package routes

import (
	"context"

	"github.com/jmylchreest/volctrld/internal/http/handlers"
)

// Handlers aggregates all handler interfaces for route registration.
// For the main server, pass real handler implementations.
// For OpenAPI generation, pass stub implementations.
type Handlers struct {
	HealthCheck  func(ctx context.Context, input *handlers.HealthInput) (*handlers.HealthOutput, error)
	VersionCheck func(ctx context.Context, input *handlers.VersionInput) (*handlers.VersionOutput, error)
	Control      handlers.ControlHandlers
	Companion    handlers.CompanionHandlers
	Logging      handlers.LoggingHandlers
}
