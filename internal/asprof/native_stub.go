//go:build !((linux || darwin) && (amd64 || arm64))

package asprof

import (
	"fmt"
	"runtime"

	"github.com/coral-mesh/coral-asprof/internal/platform"
)

// NativeEngine stub for platforms the dynamic loader binding does not support.
type NativeEngine struct{}

// NativeSupported reports whether this build can load the library for id.
func NativeSupported(platform.BinaryIdentifier) bool {
	return false
}

// Load is not supported on this platform.
func Load(path string) (*NativeEngine, error) {
	return nil, fmt.Errorf("%w: native loading not supported on %s/%s", ErrEngineUnavailable, runtime.GOOS, runtime.GOARCH)
}

// Path is a no-op on this platform.
func (e *NativeEngine) Path() string {
	return ""
}

// Start is not supported on this platform.
func (e *NativeEngine) Start(EventType, int64) error {
	return ErrEngineUnavailable
}

// DumpCollapsed is not supported on this platform.
func (e *NativeEngine) DumpCollapsed(Counter) (string, error) {
	return "", ErrEngineUnavailable
}
