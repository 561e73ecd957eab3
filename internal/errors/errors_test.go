package errors

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrNotFound", ErrNotFound, "resource not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrDeviceUnavailable", ErrDeviceUnavailable, "device unavailable"},
		{"ErrInternal", ErrInternal, "internal error"},
		{"ErrTransport", ErrTransport, "transport error"},
		{"ErrParse", ErrParse, "parse error"},
		{"ErrRange", ErrRange, "value out of range"},
		{"ErrModeConflict", ErrModeConflict, "mode conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestLogErrorAndReturn(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.NoError(t, LogErrorAndReturn(logger, nil, "test message"))
	})

	t.Run("returns the same error", func(t *testing.T) {
		err := errors.New("test error")
		assert.Same(t, err, LogErrorAndReturn(logger, err, "test message", "key", "value"))
	})
}

func TestWrapErrorf(t *testing.T) {
	assert.Nil(t, WrapErrorf(nil, "context %s", "value"))

	original := errors.New("original error")
	wrapped := WrapErrorf(original, "context %s", "value")
	assert.Contains(t, wrapped.Error(), "context value")
	assert.ErrorIs(t, wrapped, original)
}

func TestFormattedConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		text     string
	}{
		{"NotFoundf", NotFoundf("key %q", "level"), ErrNotFound, `key "level": resource not found`},
		{"InvalidInputf", InvalidInputf("bad %d", 3), ErrInvalidInput, "bad 3: invalid input"},
		{"DeviceUnavailablef", DeviceUnavailablef("companion %s", "a"), ErrDeviceUnavailable, "companion a: device unavailable"},
		{"Internalf", Internalf("boom"), ErrInternal, "boom: internal error"},
		{"Transportf", Transportf("dial %s", "x"), ErrTransport, "dial x: transport error"},
		{"Parsef", Parsef("number %q", "1x"), ErrParse, `number "1x": parse error`},
		{"Rangef", Rangef("volume %v", 130.0), ErrRange, "volume 130: value out of range"},
		{"ModeConflictf", ModeConflictf("in menu"), ErrModeConflict, "in menu: mode conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.text, tt.err.Error())
		})
	}
}

func TestClassifiers(t *testing.T) {
	assert.True(t, IsNotFound(WrapErrorf(ErrNotFound, "outer")))
	assert.True(t, IsInvalidInput(InvalidInputf("x")))
	assert.True(t, IsDeviceUnavailable(DeviceUnavailablef("x")))
	assert.True(t, IsTransport(Transportf("x")))
	assert.True(t, IsParse(Parsef("x")))
	assert.True(t, IsModeConflict(ModeConflictf("x")))

	assert.False(t, IsNotFound(errors.New("other")))
	assert.False(t, IsTransport(nil))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{NotFoundf("x"), http.StatusNotFound},
		{InvalidInputf("x"), http.StatusBadRequest},
		{Rangef("x"), http.StatusBadRequest},
		{ModeConflictf("x"), http.StatusConflict},
		{DeviceUnavailablef("x"), http.StatusServiceUnavailable},
		{Transportf("x"), http.StatusServiceUnavailable},
		{errors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "%v", tt.err)
	}
}
