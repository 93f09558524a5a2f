// Package asprof stages the embedded async-profiler library on local disk and
// binds its native control API.
package asprof

import "errors"

// ErrEngineUnavailable is returned when the native library cannot be loaded
// or driven on this platform.
var ErrEngineUnavailable = errors.New("profiler engine unavailable")

// Engine is the control surface of a loaded sampling engine.
type Engine interface {
	// Start begins (or restarts) sample accumulation.
	Start(event EventType, intervalNanos int64) error
	// DumpCollapsed returns the samples accumulated since Start.
	DumpCollapsed(counter Counter) (string, error)
}

var _ Engine = (*NativeEngine)(nil)
