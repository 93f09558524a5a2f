package platform

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// HostInfo holds the raw, unnormalized names reported by the host.
type HostInfo struct {
	OS   string // e.g. "linux", "darwin"
	Arch string // architecture of the running process, e.g. "amd64", "386"
}

// Host reports raw operating system and architecture names.
type Host interface {
	Info(ctx context.Context) (HostInfo, error)
}

// SystemHost reads the OS name through gopsutil and the architecture from the
// Go runtime. The library is loaded into this process, so the process
// architecture decides the binary, not the kernel's: a 386 build on an
// x86_64 kernel needs the x86 library.
type SystemHost struct{}

// Info implements Host.
func (SystemHost) Info(ctx context.Context) (HostInfo, error) {
	info := HostInfo{OS: runtime.GOOS, Arch: runtime.GOARCH}

	stat, err := host.InfoWithContext(ctx)
	if err != nil {
		return info, nil
	}
	if stat.OS != "" {
		info.OS = stat.OS
	}

	return info, nil
}

// StaticHost returns fixed values, for callers that already know the
// platform.
type StaticHost HostInfo

// Info implements Host.
func (h StaticHost) Info(context.Context) (HostInfo, error) {
	return HostInfo(h), nil
}
