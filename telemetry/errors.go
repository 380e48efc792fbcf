// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"errors"
	"fmt"
)

// ErrAlreadyInitialized is the cause of a [TelemetrySetupError] when
// [Bootstrapper.Initialize] is called after a successful registration
// or while a registration is still in progress.
var ErrAlreadyInitialized = errors.New("telemetry providers are already registered")

// TelemetrySetupError is returned when the telemetry pipeline fails to be
// constructed or registered. It is always fatal to process startup.
type TelemetrySetupError struct {
	Stage string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e TelemetrySetupError) Error() string {
	return fmt.Sprintf("failed to set up telemetry during %s: %s", e.Stage, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e TelemetrySetupError) Unwrap() error {
	return e.Cause
}

// AuthError is returned by a [CredentialSource] when a bearer token
// could not be obtained.
type AuthError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e AuthError) Error() string {
	return fmt.Sprintf("failed to obtain export credentials: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e AuthError) Unwrap() error {
	return e.Cause
}

// ExportError wraps a failure to deliver a batch of telemetry to the backend.
// It never reaches request handling code.
type ExportError struct {
	Signal Signal
	Cause  error
}

// Error implements the [builtin.error] interface.
func (e ExportError) Error() string {
	return fmt.Sprintf("failed to export %s: %s", e.Signal, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ExportError) Unwrap() error {
	return e.Cause
}

// Signal names the kind of telemetry carried by an export.
type Signal string

const (
	SignalTraces  Signal = "traces"
	SignalMetrics Signal = "metrics"
)
