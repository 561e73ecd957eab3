// Package errors defines the error taxonomy shared by the volctrld packages.
//
// Every error produced by the daemon wraps exactly one sentinel so callers can
// classify it with errors.Is without string matching.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// ErrNotFound is returned when a requested resource or response field doesn't exist
var ErrNotFound = errors.New("resource not found")

// ErrInvalidInput is returned when the provided input is invalid
var ErrInvalidInput = errors.New("invalid input")

// ErrDeviceUnavailable is returned when a device is known to be down and the call was short-circuited
var ErrDeviceUnavailable = errors.New("device unavailable")

// ErrInternal is returned for unexpected internal errors
var ErrInternal = errors.New("internal error")

// ErrTransport is returned when a connect, send, or receive to a device fails
var ErrTransport = errors.New("transport error")

// ErrParse is returned when a device response holds a malformed field
var ErrParse = errors.New("parse error")

// ErrRange is returned when a command value lies outside what the device accepts
var ErrRange = errors.New("value out of range")

// ErrModeConflict is returned when an input arrives for the wrong controller mode
var ErrModeConflict = errors.New("mode conflict")

// LogErrorAndReturn logs an error with structured context and returns it
func LogErrorAndReturn(logger *slog.Logger, err error, message string, args ...any) error {
	if err == nil {
		return nil
	}

	logger.Error(message, append([]any{"error", err}, args...)...)
	return err
}

// WrapErrorf wraps an error with additional context using fmt.Errorf
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// IsNotFound returns true if the error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput returns true if the error is or wraps ErrInvalidInput
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsDeviceUnavailable returns true if the error is or wraps ErrDeviceUnavailable
func IsDeviceUnavailable(err error) bool {
	return errors.Is(err, ErrDeviceUnavailable)
}

// IsTransport returns true if the error is or wraps ErrTransport
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsParse returns true if the error is or wraps ErrParse
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsModeConflict returns true if the error is or wraps ErrModeConflict
func IsModeConflict(err error) bool {
	return errors.Is(err, ErrModeConflict)
}

// NotFoundf returns a formatted ErrNotFound error
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// InvalidInputf returns a formatted ErrInvalidInput error
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidInput)...)
}

// DeviceUnavailablef returns a formatted ErrDeviceUnavailable error
func DeviceUnavailablef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDeviceUnavailable)...)
}

// Internalf returns a formatted ErrInternal error
func Internalf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInternal)...)
}

// Transportf returns a formatted ErrTransport error
func Transportf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrTransport)...)
}

// Parsef returns a formatted ErrParse error
func Parsef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrParse)...)
}

// Rangef returns a formatted ErrRange error
func Rangef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrRange)...)
}

// ModeConflictf returns a formatted ErrModeConflict error
func ModeConflictf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrModeConflict)...)
}

// HTTPStatus maps an error onto the status code the API reports for it.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrRange):
		return http.StatusBadRequest
	case errors.Is(err, ErrModeConflict):
		return http.StatusConflict
	case errors.Is(err, ErrDeviceUnavailable), errors.Is(err, ErrTransport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
