//go:build (linux || darwin) && (amd64 || arm64)

package asprof

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/coral-mesh/coral-asprof/internal/platform"
)

// The engine writes command output through a C callback. purego callbacks are
// a scarce resource, so a single one is shared and routed to whichever
// execute call currently holds execMu.
var (
	execMu       sync.Mutex
	execOut      *strings.Builder
	callbackOnce sync.Once
	callbackPtr  uintptr
)

// NativeSupported reports whether this build can load the library for id.
// The output callback needs purego.NewCallback, which exists only for 64-bit
// targets.
func NativeSupported(id platform.BinaryIdentifier) bool {
	return id.Arch == platform.ArchX64 || id.Arch == platform.ArchAArch64
}

func outputCallback() uintptr {
	callbackOnce.Do(func() {
		callbackPtr = purego.NewCallback(func(buf unsafe.Pointer, size uintptr) {
			if execOut == nil || buf == nil || size == 0 {
				return
			}
			execOut.Write(unsafe.Slice((*byte)(buf), size))
		})
	})
	return callbackPtr
}

// NativeEngine drives a loaded async-profiler library through its C API
// (asprof_init, asprof_execute, asprof_error_str).
type NativeEngine struct {
	path    string
	handle  uintptr
	running bool
	mu      sync.Mutex

	asprofInit     func()
	asprofExecute  func(command string, callback uintptr) uintptr
	asprofErrorStr func(err uintptr) string
}

// Load opens the profiler library at path and initializes it.
func Load(path string) (*NativeEngine, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("%w: dlopen %s: %w", ErrEngineUnavailable, path, err)
	}

	e := &NativeEngine{path: path, handle: handle}

	symbols := []struct {
		name string
		fptr any
	}{
		{"asprof_init", &e.asprofInit},
		{"asprof_execute", &e.asprofExecute},
		{"asprof_error_str", &e.asprofErrorStr},
	}
	for _, sym := range symbols {
		addr, err := purego.Dlsym(handle, sym.name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: missing symbol %s: %w", ErrEngineUnavailable, path, sym.name, err)
		}
		purego.RegisterFunc(sym.fptr, addr)
	}

	e.asprofInit()

	return e, nil
}

// Path returns the library the engine was loaded from.
func (e *NativeEngine) Path() string {
	return e.path
}

// Start begins sample accumulation, discarding anything collected by a
// previous run.
func (e *NativeEngine) Start(event EventType, intervalNanos int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		if _, err := e.execute("stop"); err != nil {
			return err
		}
		e.running = false
	}

	if _, err := e.execute(fmt.Sprintf("start,event=%s,interval=%d", event.Name, intervalNanos)); err != nil {
		return err
	}
	e.running = true

	return nil
}

// DumpCollapsed stops accumulation and returns the collected stacks in
// collapsed format. Stop and dump happen in one engine call.
func (e *NativeEngine) DumpCollapsed(counter Counter) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return "", fmt.Errorf("engine is not running")
	}

	out, err := e.execute("stop,collapsed," + string(counter))
	e.running = false
	if err != nil {
		return "", err
	}

	return out, nil
}

func (e *NativeEngine) execute(command string) (string, error) {
	cb := outputCallback()

	execMu.Lock()
	defer execMu.Unlock()

	var out strings.Builder
	execOut = &out
	defer func() { execOut = nil }()

	if errPtr := e.asprofExecute(command, cb); errPtr != 0 {
		return "", fmt.Errorf("asprof %q: %s", command, e.asprofErrorStr(errPtr))
	}

	return out.String(), nil
}
