package routes

import (
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDocumentsEveryRoute(t *testing.T) {
	_, api := humatest.New(t, NewHumaConfig("test", ""))
	Register(api, StubHandlers())

	paths := api.OpenAPI().Paths
	for _, p := range []string{
		"/api/v1/health",
		"/api/v1/version",
		"/api/v1/status",
		"/api/v1/devices",
		"/api/v1/devices/{address}",
		"/api/v1/devices/{address}/standby",
		"/api/v1/volume",
		"/api/v1/volume/adjust",
		"/api/v1/mute/toggle",
		"/api/v1/input/encoder",
		"/api/v1/input/button",
		"/api/v1/companion",
		"/api/v1/companion/{command}",
		"/api/v1/logging/level",
	} {
		assert.Contains(t, paths, p)
	}
	assert.NotContains(t, paths, "/healthz", "hidden routes stay out of the document")
}

func TestRegisterProtectsMutations(t *testing.T) {
	_, api := humatest.New(t, NewHumaConfig("test", ""))
	Register(api, StubHandlers())

	paths := api.OpenAPI().Paths
	require.NotNil(t, paths["/api/v1/volume"].Put)
	assert.NotEmpty(t, paths["/api/v1/volume"].Put.Security)
	assert.NotEmpty(t, paths["/api/v1/logging/level"].Put.Security)
	assert.Empty(t, paths["/api/v1/status"].Get.Security)
	assert.Empty(t, paths["/api/v1/logging/level"].Get.Security)
}
